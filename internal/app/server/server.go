package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/backup"
	"jornada/internal/domain/directory"
	"jornada/internal/domain/incident"
	"jornada/internal/domain/notifications"
	"jornada/internal/domain/settings"
	"jornada/internal/domain/timerecord"
	"jornada/internal/platform/config"
	cryptoutil "jornada/internal/platform/crypto"
	"jornada/internal/platform/db"
	"jornada/internal/platform/email"
	"jornada/internal/platform/jobs"
	"jornada/internal/platform/metrics"
	"jornada/internal/transport/http/api"
	authhandler "jornada/internal/transport/http/handlers/auth"
	backupshandler "jornada/internal/transport/http/handlers/backups"
	companieshandler "jornada/internal/transport/http/handlers/companies"
	incidentshandler "jornada/internal/transport/http/handlers/incidents"
	settingshandler "jornada/internal/transport/http/handlers/settings"
	timerecordshandler "jornada/internal/transport/http/handlers/timerecords"
	workershandler "jornada/internal/transport/http/handlers/workers"
	"jornada/internal/transport/http/middleware"
)

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			slog.Error("migrations failed", "err", err)
			os.Exit(1)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			slog.Error("seed failed", "err", err)
			os.Exit(1)
		}
	}

	crypto := cryptoutil.New(cfg.MasterSecret)
	collector := metrics.New()
	mailer := email.New(cfg)

	authStore := auth.NewStore(pool)
	authService := auth.NewService(authStore)

	directoryService := directory.NewService(directory.NewStore(pool))

	recordStore := timerecord.NewStore(pool)
	recordService := timerecord.NewService(recordStore, directoryService, cfg.DefaultTimezone)

	incidentService := incident.NewService(incident.NewStore(pool))

	settingsService := settings.NewService(settings.NewStore(pool), crypto, slog.Default())
	backupService := backup.NewService(
		backup.NewStore(pool),
		settingsService,
		backup.NewPgTool(cfg.PgDumpPath, cfg.PgRestorePath, cfg.DatabaseURL),
		cfg.BackupTempDir,
		slog.Default(),
	)

	jobService := jobs.New(pool, cfg, settingsService, backupService, collector)
	jobService.Start(ctx)

	router := buildRouter(cfg, pool, routerDeps{
		crypto:    crypto,
		collector: collector,
		mailer:    mailer,
		auth:      authService,
		authStore: authStore,
		directory: directoryService,
		records:   recordService,
		incidents: incidentService,
		settings:  settingsService,
		backups:   backupService,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
	}()

	slog.Info("jornada server listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

type routerDeps struct {
	crypto    *cryptoutil.Service
	collector *metrics.Collector
	mailer    notifications.Mailer
	auth      *auth.Service
	authStore *auth.Store
	directory *directory.Service
	records   *timerecord.Service
	incidents *incident.Service
	settings  *settings.Service
	backups   *backup.Service
}

func buildRouter(cfg config.Config, pool *pgxpool.Pool, deps routerDeps) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

		authHandler := authhandler.NewHandler(deps.auth, deps.authStore, deps.directory, deps.mailer, deps.crypto, cfg)
		authLimit := middleware.AuthRateLimit(max(cfg.RateLimitPerMinute/4, 1), time.Minute)
		r.With(authLimit).Post("/auth/login", authHandler.HandleLogin)
		r.With(authLimit).Post("/auth/request-reset", authHandler.HandleRequestReset)
		r.With(authLimit).Post("/auth/reset", authHandler.HandleResetPassword)
		authHandler.RegisterRoutes(r)

		companieshandler.NewHandler(deps.directory).RegisterRoutes(r)
		workershandler.NewHandler(deps.directory).RegisterRoutes(r)
		timerecordshandler.NewHandler(deps.records, deps.directory, deps.collector).RegisterRoutes(r)
		incidentshandler.NewHandler(deps.incidents).RegisterRoutes(r)
		settingshandler.NewHandler(deps.settings, deps.backups).RegisterRoutes(r)
		backupshandler.NewHandler(deps.backups, deps.collector).RegisterRoutes(r)

		if cfg.MetricsEnabled {
			r.With(middleware.RequirePermission(auth.PermSettingsRead)).
				Get("/admin/metrics", func(w http.ResponseWriter, req *http.Request) {
					api.Success(w, deps.collector.Snapshot(), middleware.GetRequestID(req.Context()))
				})
		}
	})

	return router
}
