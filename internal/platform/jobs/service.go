package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"jornada/internal/domain/backup"
	"jornada/internal/domain/settings"
	"jornada/internal/platform/config"
	"jornada/internal/platform/metrics"
)

const (
	JobBackup    = "scheduled_backup"
	JobRetention = "backup_retention"
)

type Service struct {
	DB       *pgxpool.Pool
	Cfg      config.Config
	Settings *settings.Service
	Backups  *backup.Service
	Metrics  *metrics.Collector
	queue    chan job

	lastEnqueued time.Time
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config, settingsSvc *settings.Service, backups *backup.Service, collector *metrics.Collector) *Service {
	return &Service{
		DB:       db,
		Cfg:      cfg,
		Settings: settingsSvc,
		Backups:  backups,
		Metrics:  collector,
		queue:    make(chan job, 16),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.BackupCheckInterval > 0 {
		go s.scheduleBackups(ctx, s.Cfg.BackupCheckInterval)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Type, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

// scheduleBackups polls the settings singleton and enqueues a backup when
// the configured slot comes due, including catch-up after downtime.
func (s *Service) scheduleBackups(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkSchedule(ctx)
		}
	}
}

func (s *Service) checkSchedule(ctx context.Context) {
	current, err := s.Settings.Get(ctx)
	if err != nil {
		slog.Warn("backup scheduler settings lookup failed", "err", err)
		return
	}

	slot, ok := dueSlot(current.Backup, time.Now().UTC())
	if !ok {
		return
	}
	if s.lastEnqueued.Equal(slot) {
		return
	}

	last, err := s.Backups.LastScheduled(ctx)
	if err != nil {
		slog.Warn("backup scheduler last-run lookup failed", "err", err)
		return
	}
	if last != nil && !last.StartedAt.Before(slot) {
		s.lastEnqueued = slot
		return
	}

	s.lastEnqueued = slot
	s.Enqueue(JobBackup, func(ctx context.Context) (any, error) {
		rec, err := s.Backups.Run(ctx, backup.TriggerScheduled)
		if s.Metrics != nil {
			s.Metrics.RecordBackup(err != nil)
		}
		if err != nil {
			return nil, err
		}
		return map[string]any{"backupId": rec.ID, "sizeBytes": rec.SizeBytes}, nil
	})
	s.Enqueue(JobRetention, func(ctx context.Context) (any, error) {
		removed, err := s.Backups.Cleanup(ctx)
		return map[string]any{"removed": removed}, err
	})
}

// dueSlot returns the most recent scheduled slot at or before now, looking
// back up to a month so missed slots are caught up on restart.
func dueSlot(cfg settings.BackupConfig, now time.Time) (time.Time, bool) {
	if !cfg.Enabled {
		return time.Time{}, false
	}
	for d := 0; d <= 31; d++ {
		day := now.AddDate(0, 0, -d)
		if !dayMatches(cfg, day) {
			continue
		}
		slot := time.Date(day.Year(), day.Month(), day.Day(), cfg.HourUTC, 0, 0, 0, time.UTC)
		if slot.After(now) {
			continue
		}
		return slot, true
	}
	return time.Time{}, false
}

func dayMatches(cfg settings.BackupConfig, day time.Time) bool {
	switch cfg.Frequency {
	case settings.FrequencyWeekly:
		return mondayIndex(day.Weekday()) == cfg.DayOfWeek
	case settings.FrequencyMonthly:
		return day.Day() == cfg.DayOfMonth
	default:
		return true
	}
}

// mondayIndex maps time.Weekday to the 0=Monday convention used in the
// backup configuration.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}
