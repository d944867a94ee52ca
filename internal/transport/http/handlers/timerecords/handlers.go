package timerecordshandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/directory"
	"jornada/internal/domain/timerecord"
	"jornada/internal/platform/metrics"
	"jornada/internal/platform/requestctx"
	"jornada/internal/transport/http/api"
	"jornada/internal/transport/http/middleware"
	"jornada/internal/transport/http/shared"
)

type Handler struct {
	Records   *timerecord.Service
	Directory *directory.Service
	Metrics   *metrics.Collector
}

func NewHandler(records *timerecord.Service, dir *directory.Service, collector *metrics.Collector) *Handler {
	return &Handler{Records: records, Directory: dir, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermTimeRecordsCreate)).Post("/time-records", h.HandleSubmit)
	r.With(middleware.RequirePermission(auth.PermTimeRecordsRead)).Get("/time-records", h.HandleList)
	r.With(middleware.RequirePermission(auth.PermTimeRecordsRead)).
		Get("/workers/{workerID}/time-records", h.HandleWorkerList)
	r.With(middleware.RequirePermission(auth.PermTimeRecordsCreate)).
		Get("/workers/{workerID}/time-records/latest", h.HandleLatest)
	r.With(middleware.RequirePermission(auth.PermTimeRecordsRead)).
		Get("/workers/{workerID}/time-records/report", h.HandleReport)
}

type submitRequest struct {
	WorkerID  string `json:"workerId"`
	CompanyID string `json:"companyId"`
	Password  string `json:"password"`
	Timezone  string `json:"timezone"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload submitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("workerId", payload.WorkerID, "worker is required")
	v.Required("companyId", payload.CompanyID, "company is required")
	v.Required("password", payload.Password, "password is required")
	if v.Reject(w, reqID) {
		return
	}

	record, err := h.Records.Submit(r.Context(), timerecord.SubmitRequest{
		WorkerID:  payload.WorkerID,
		CompanyID: payload.CompanyID,
		Password:  payload.Password,
		Timezone:  payload.Timezone,
	})
	if err != nil {
		h.writeSubmitError(w, err, reqID)
		return
	}

	if h.Metrics != nil {
		if record.Type == timerecord.TypeEntry {
			h.Metrics.RecordEntry()
		} else {
			h.Metrics.RecordExit()
		}
	}
	api.Created(w, record, reqID)
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, timerecord.ErrCredentialInvalid):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "worker credential rejected", reqID)
	case errors.Is(err, timerecord.ErrWorkerNotEligible):
		api.Fail(w, http.StatusForbidden, "worker_not_eligible", "worker may not record time for this company", reqID)
	case errors.Is(err, timerecord.ErrConcurrentEntry):
		if h.Metrics != nil {
			h.Metrics.RecordEntryConflict()
		}
		api.Fail(w, http.StatusConflict, "concurrent_entry", "another entry is already open for this worker", reqID)
	case errors.Is(err, timerecord.ErrMismatchedExitCompany):
		api.Fail(w, http.StatusConflict, "mismatched_exit_company", "open entry belongs to a different company", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "record_failed", "failed to record time", reqID)
	}
}

func (h *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	workerID := chi.URLParam(r, "workerID")

	record, err := h.Records.LatestRecord(r.Context(), workerID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "record_lookup_failed", "failed to load latest record", reqID)
		return
	}
	api.Success(w, record, reqID)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, "")
}

// HandleWorkerList serves one worker's history; the path segment wins over
// any workerId query parameter.
func (h *Handler) HandleWorkerList(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, chi.URLParam(r, "workerID"))
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, workerID string) {
	reqID := requestctx.GetRequestID(r.Context())
	filter, ok := h.parseFilter(w, r, reqID)
	if !ok {
		return
	}
	if workerID != "" {
		filter.WorkerID = workerID
	}

	records, total, err := h.Records.List(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "record_list_failed", "failed to list time records", reqID)
		return
	}
	api.Success(w, api.Page{Items: records, Total: int64(total)}, reqID)
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request, reqID string) (timerecord.ListFilter, bool) {
	q := r.URL.Query()
	page := shared.ParsePagination(r, 50, 500)
	filter := timerecord.ListFilter{
		WorkerID:  q.Get("workerId"),
		CompanyID: q.Get("companyId"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}

	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		if ts, ok := v.Date("from", raw); ok {
			filter.From = ts
		}
	}
	if raw := q.Get("to"); raw != "" {
		if ts, ok := v.Date("to", raw); ok {
			filter.To = ts
		}
	}
	if v.Reject(w, reqID) {
		return timerecord.ListFilter{}, false
	}
	return filter, true
}

// HandleReport renders the worker's time records over a range as a PDF.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	workerID := chi.URLParam(r, "workerID")

	worker, err := h.Directory.WorkerByID(r.Context(), workerID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load worker", reqID)
		return
	}
	if worker == nil {
		api.Fail(w, http.StatusNotFound, "worker_not_found", "worker not found", reqID)
		return
	}

	q := r.URL.Query()
	v := shared.NewValidator()
	from, _ := v.Date("from", q.Get("from"))
	to, _ := v.Date("to", q.Get("to"))
	if v.Reject(w, reqID) {
		return
	}
	if from.IsZero() {
		from = time.Now().UTC().AddDate(0, -1, 0)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	records, _, err := h.Records.List(r.Context(), timerecord.ListFilter{
		WorkerID: workerID,
		From:     from,
		To:       to,
		Limit:    10000,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load records", reqID)
		return
	}

	pdf, err := timerecord.RenderReportPDF(worker, from, to, records)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="time-report-%s-%s.pdf"`, worker.IDNumber, from.Format("2006-01")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
