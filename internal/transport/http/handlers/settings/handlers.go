package settingshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/backup"
	"jornada/internal/domain/settings"
	"jornada/internal/platform/requestctx"
	"jornada/internal/transport/http/api"
	"jornada/internal/transport/http/middleware"
)

type Handler struct {
	Settings *settings.Service
	Backups  *backup.Service
}

func NewHandler(settingsSvc *settings.Service, backups *backup.Service) *Handler {
	return &Handler{Settings: settingsSvc, Backups: backups}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSettingsRead)).Get("/", h.HandleGet)
		r.With(middleware.RequirePermission(auth.PermSettingsWrite)).Put("/", h.HandleUpdate)
		r.With(middleware.RequirePermission(auth.PermSettingsWrite)).Post("/backup/test-connection", h.HandleTestStorage)
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	view, err := h.Settings.View(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "settings_get_failed", "failed to load settings", reqID)
		return
	}
	api.Success(w, view, reqID)
}

type updateRequest struct {
	ContactEmail *string              `json:"contactEmail"`
	WebappURL    *string              `json:"webappUrl"`
	Backup       *backupConfigRequest `json:"backupConfig"`
}

type backupConfigRequest struct {
	Enabled       bool                  `json:"enabled"`
	Frequency     string                `json:"frequency"`
	HourUTC       int                   `json:"hourUtc"`
	DayOfWeek     int                   `json:"dayOfWeek"`
	DayOfMonth    int                   `json:"dayOfMonth"`
	RetentionDays int                   `json:"retentionDays"`
	StorageType   string                `json:"storageType"`
	S3            *settings.S3Input     `json:"s3Config"`
	SFTP          *settings.SFTPInput   `json:"sftpConfig"`
	Local         *settings.LocalConfig `json:"localConfig"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload updateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	upd := settings.Update{ContactEmail: payload.ContactEmail, WebappURL: payload.WebappURL}
	if payload.Backup != nil {
		upd.Backup = &settings.BackupUpdate{
			Enabled:       payload.Backup.Enabled,
			Frequency:     payload.Backup.Frequency,
			HourUTC:       payload.Backup.HourUTC,
			DayOfWeek:     payload.Backup.DayOfWeek,
			DayOfMonth:    payload.Backup.DayOfMonth,
			RetentionDays: payload.Backup.RetentionDays,
			StorageType:   payload.Backup.StorageType,
			S3:            payload.Backup.S3,
			SFTP:          payload.Backup.SFTP,
			Local:         payload.Backup.Local,
		}
	}

	view, err := h.Settings.Apply(r.Context(), upd)
	if err != nil {
		if isValidationError(err) {
			api.Fail(w, http.StatusBadRequest, "invalid_settings", err.Error(), reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "settings_update_failed", "failed to update settings", reqID)
		return
	}
	api.Success(w, view, reqID)
}

func (h *Handler) HandleTestStorage(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	if err := h.Backups.TestStorage(r.Context()); err != nil {
		api.Fail(w, http.StatusBadGateway, "storage_unreachable", err.Error(), reqID)
		return
	}
	api.Success(w, map[string]string{"status": "storage_ok"}, reqID)
}

func isValidationError(err error) bool {
	for _, candidate := range []error{
		settings.ErrInvalidFrequency,
		settings.ErrInvalidHour,
		settings.ErrInvalidDayOfWeek,
		settings.ErrInvalidDayOfMonth,
		settings.ErrInvalidRetention,
		settings.ErrInvalidStorageType,
		settings.ErrStorageIncomplete,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
