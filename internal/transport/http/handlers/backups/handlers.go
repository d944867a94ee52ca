package backupshandler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/backup"
	"jornada/internal/platform/metrics"
	"jornada/internal/platform/requestctx"
	"jornada/internal/transport/http/api"
	"jornada/internal/transport/http/middleware"
	"jornada/internal/transport/http/shared"
)

type Handler struct {
	Backups *backup.Service
	Metrics *metrics.Collector
}

func NewHandler(backups *backup.Service, collector *metrics.Collector) *Handler {
	return &Handler{Backups: backups, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/backups", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBackupsRead)).Get("/", h.HandleList)
		r.With(middleware.RequirePermission(auth.PermBackupsManage)).Post("/", h.HandleRun)
		r.With(middleware.RequirePermission(auth.PermBackupsRead)).Get("/{backupID}", h.HandleGet)
		r.With(middleware.RequirePermission(auth.PermBackupsRead)).Get("/{backupID}/download", h.HandleDownload)
		r.With(middleware.RequirePermission(auth.PermBackupsManage)).Post("/{backupID}/restore", h.HandleRestore)
		r.With(middleware.RequirePermission(auth.PermBackupsManage)).Delete("/{backupID}", h.HandleDelete)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 200)

	items, total, err := h.Backups.List(r.Context(), backup.ListFilter{
		Status:  backup.Status(q.Get("status")),
		Trigger: backup.Trigger(q.Get("trigger")),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "backup_list_failed", "failed to list backups", reqID)
		return
	}
	api.Success(w, api.Page{Items: items, Total: total}, reqID)
}

func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	rec, err := h.Backups.Run(r.Context(), backup.TriggerManual)
	if h.Metrics != nil {
		h.Metrics.RecordBackup(err != nil)
	}
	if err != nil {
		h.writeBackupError(w, err, reqID, "backup_failed", "backup run failed")
		return
	}
	api.Created(w, rec, reqID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	rec, err := h.Backups.Get(r.Context(), chi.URLParam(r, "backupID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "backup_get_failed", "failed to load backup", reqID)
		return
	}
	if rec == nil {
		api.Fail(w, http.StatusNotFound, "backup_not_found", "backup not found", reqID)
		return
	}
	api.Success(w, rec, reqID)
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	body, rec, err := h.Backups.Download(r.Context(), chi.URLParam(r, "backupID"))
	if err != nil {
		h.writeBackupError(w, err, reqID, "backup_download_failed", "failed to download backup")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rec.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	if err := h.Backups.Restore(r.Context(), chi.URLParam(r, "backupID")); err != nil {
		h.writeBackupError(w, err, reqID, "restore_failed", "restore failed")
		return
	}
	api.Success(w, map[string]string{"status": "restored"}, reqID)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	if err := h.Backups.Delete(r.Context(), chi.URLParam(r, "backupID")); err != nil {
		h.writeBackupError(w, err, reqID, "backup_delete_failed", "failed to delete backup")
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) writeBackupError(w http.ResponseWriter, err error, reqID, fallbackCode, fallbackMsg string) {
	switch {
	case errors.Is(err, backup.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "backup_not_found", "backup not found", reqID)
	case errors.Is(err, backup.ErrNotReady):
		api.Fail(w, http.StatusConflict, "backup_not_ready", "backup artifact is not available", reqID)
	case errors.Is(err, backup.ErrAlreadyRunning):
		api.Fail(w, http.StatusConflict, "backup_running", "another backup or restore is in progress", reqID)
	case errors.Is(err, backup.ErrStorageUnavailable):
		api.Fail(w, http.StatusBadRequest, "storage_unavailable", "backup storage is not configured", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMsg, reqID)
	}
}
