package incidentshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/incident"
	"jornada/internal/platform/requestctx"
	"jornada/internal/transport/http/api"
	"jornada/internal/transport/http/middleware"
	"jornada/internal/transport/http/shared"
)

type Handler struct {
	Incidents *incident.Service
}

func NewHandler(incidents *incident.Service) *Handler {
	return &Handler{Incidents: incidents}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermIncidentsCreate)).Post("/", h.HandleReport)
		r.With(middleware.RequirePermission(auth.PermIncidentsRead)).Get("/", h.HandleList)
		r.With(middleware.RequirePermission(auth.PermIncidentsRead)).Get("/{incidentID}", h.HandleGet)
		r.With(middleware.RequirePermission(auth.PermIncidentsManage)).Patch("/{incidentID}/status", h.HandleTransition)
	})
}

type reportRequest struct {
	WorkerID    string `json:"workerId"`
	Description string `json:"description"`
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload reportRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("workerId", payload.WorkerID, "worker is required")
	if v.Reject(w, reqID) {
		return
	}

	inc, err := h.Incidents.Report(r.Context(), payload.WorkerID, payload.Description)
	if err != nil {
		if errors.Is(err, incident.ErrEmptyDescription) {
			api.Fail(w, http.StatusBadRequest, "empty_description", "description must not be empty", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "incident_create_failed", "failed to file incident", reqID)
		return
	}
	api.Created(w, inc, reqID)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	q := r.URL.Query()

	status := incident.Status(q.Get("status"))
	if status != "" && !incident.ValidStatus(status) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown incident status", reqID)
		return
	}

	incidents, err := h.Incidents.List(r.Context(), q.Get("workerId"), status)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "incident_list_failed", "failed to list incidents", reqID)
		return
	}
	api.Success(w, incidents, reqID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	inc, err := h.Incidents.Get(r.Context(), chi.URLParam(r, "incidentID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "incident_get_failed", "failed to load incident", reqID)
		return
	}
	if inc == nil {
		api.Fail(w, http.StatusNotFound, "incident_not_found", "incident not found", reqID)
		return
	}
	api.Success(w, inc, reqID)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	to := incident.Status(payload.Status)
	if !incident.ValidStatus(to) {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown incident status", reqID)
		return
	}

	inc, err := h.Incidents.Transition(r.Context(), chi.URLParam(r, "incidentID"), to)
	if err != nil {
		switch {
		case errors.Is(err, incident.ErrNotFound):
			api.Fail(w, http.StatusNotFound, "incident_not_found", "incident not found", reqID)
		case errors.Is(err, incident.ErrInvalidTransition):
			api.Fail(w, http.StatusConflict, "invalid_transition", "incident status can only move forward", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "incident_update_failed", "failed to update incident", reqID)
		}
		return
	}
	api.Success(w, inc, reqID)
}
