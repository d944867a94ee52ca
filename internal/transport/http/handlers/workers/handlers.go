package workershandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/directory"
	"jornada/internal/platform/requestctx"
	"jornada/internal/transport/http/api"
	"jornada/internal/transport/http/middleware"
	"jornada/internal/transport/http/shared"
)

type Handler struct {
	Directory *directory.Service
}

func NewHandler(dir *directory.Service) *Handler {
	return &Handler{Directory: dir}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	// Registered as flat patterns so the time-record handler can hang its
	// per-worker routes off the same /workers/{workerID} subtree.
	r.With(middleware.RequirePermission(auth.PermWorkersRead)).Get("/workers", h.HandleList)
	r.With(middleware.RequirePermission(auth.PermWorkersWrite)).Post("/workers", h.HandleCreate)
	r.With(middleware.RequirePermission(auth.PermWorkersRead)).Get("/workers/{workerID}", h.HandleGet)
	r.With(middleware.RequirePermission(auth.PermWorkersWrite)).Put("/workers/{workerID}", h.HandleUpdate)
	r.With(middleware.RequirePermission(auth.PermWorkersWrite)).Delete("/workers/{workerID}", h.HandleDelete)
	r.Put("/workers/{workerID}/password", h.HandleChangePassword)

	// Roster is the kiosk view: live workers with their company names, no
	// contact details. Gated on the submission capability so tracker
	// terminals can render the clock-in screen.
	r.With(middleware.RequirePermission(auth.PermTimeRecordsCreate)).Get("/roster", h.HandleRoster)
}

type workerRequest struct {
	FirstName  string   `json:"firstName"`
	LastName   string   `json:"lastName"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	IDNumber   string   `json:"idNumber"`
	Password   string   `json:"password"`
	CompanyIDs []string `json:"companyIds"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload workerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("firstName", payload.FirstName, "first name is required")
	v.Required("lastName", payload.LastName, "last name is required")
	v.Required("email", payload.Email, "email is required")
	v.Email("email", payload.Email)
	v.Required("idNumber", payload.IDNumber, "id number is required")
	v.Required("password", payload.Password, "password is required")
	v.MinLength("password", payload.Password, 8, "password must be at least 8 characters")
	if len(payload.CompanyIDs) == 0 {
		v.Add("companyIds", "at least one company is required")
	}
	if v.Reject(w, reqID) {
		return
	}

	worker, err := h.Directory.CreateWorker(r.Context(), directory.NewWorker{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Email:      payload.Email,
		Phone:      payload.Phone,
		IDNumber:   payload.IDNumber,
		Password:   payload.Password,
		CompanyIDs: payload.CompanyIDs,
		CreatedBy:  user.UserID,
	})
	if err != nil {
		writeDirectoryError(w, err, reqID, "worker_create_failed", "failed to create worker")
		return
	}
	api.Created(w, worker, reqID)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	workers, err := h.Directory.ListWorkers(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "worker_list_failed", "failed to list workers", reqID)
		return
	}
	api.Success(w, workers, reqID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	worker, err := h.Directory.WorkerByID(r.Context(), chi.URLParam(r, "workerID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "worker_get_failed", "failed to load worker", reqID)
		return
	}
	if worker == nil {
		api.Fail(w, http.StatusNotFound, "worker_not_found", "worker not found", reqID)
		return
	}
	api.Success(w, worker, reqID)
}

type workerUpdateRequest struct {
	FirstName  *string  `json:"firstName"`
	LastName   *string  `json:"lastName"`
	Email      *string  `json:"email"`
	Phone      *string  `json:"phone"`
	IDNumber   *string  `json:"idNumber"`
	CompanyIDs []string `json:"companyIds"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload workerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	worker, err := h.Directory.UpdateWorker(r.Context(), chi.URLParam(r, "workerID"), directory.WorkerUpdate{
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		Email:      payload.Email,
		Phone:      payload.Phone,
		IDNumber:   payload.IDNumber,
		CompanyIDs: payload.CompanyIDs,
	})
	if err != nil {
		writeDirectoryError(w, err, reqID, "worker_update_failed", "failed to update worker")
		return
	}
	api.Success(w, worker, reqID)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	if err := h.Directory.DeleteWorker(r.Context(), chi.URLParam(r, "workerID"), user.UserID); err != nil {
		writeDirectoryError(w, err, reqID, "worker_delete_failed", "failed to delete worker")
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// HandleChangePassword requires the current password, so it is safe for any
// authenticated caller acting on a worker's behalf at a kiosk.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("oldPassword", payload.OldPassword, "current password is required")
	v.Required("newPassword", payload.NewPassword, "new password is required")
	v.MinLength("newPassword", payload.NewPassword, 8, "password must be at least 8 characters")
	if v.Reject(w, reqID) {
		return
	}

	err := h.Directory.ChangeWorkerPassword(r.Context(), chi.URLParam(r, "workerID"), payload.OldPassword, payload.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "current password is incorrect", reqID)
			return
		}
		writeDirectoryError(w, err, reqID, "password_change_failed", "failed to change password")
		return
	}
	api.Success(w, map[string]string{"status": "password_updated"}, reqID)
}

type rosterEntry struct {
	ID        string   `json:"id"`
	FullName  string   `json:"fullName"`
	Companies []string `json:"companies"`
}

func (h *Handler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	workers, err := h.Directory.ListWorkers(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "roster_failed", "failed to load roster", reqID)
		return
	}

	out := make([]rosterEntry, 0, len(workers))
	for _, worker := range workers {
		names, err := h.Directory.CompanyNames(r.Context(), worker.CompanyIDs)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "roster_failed", "failed to load roster", reqID)
			return
		}
		out = append(out, rosterEntry{ID: worker.ID, FullName: worker.FullName(), Companies: names})
	}
	api.Success(w, out, reqID)
}

func writeDirectoryError(w http.ResponseWriter, err error, reqID, fallbackCode, fallbackMsg string) {
	switch {
	case errors.Is(err, directory.ErrWorkerNotFound):
		api.Fail(w, http.StatusNotFound, "worker_not_found", "worker not found", reqID)
	case errors.Is(err, directory.ErrCompanyNotFound):
		api.Fail(w, http.StatusBadRequest, "company_not_found", "a referenced company does not exist", reqID)
	case errors.Is(err, directory.ErrNoCompanies):
		api.Fail(w, http.StatusBadRequest, "no_companies", "worker must belong to at least one company", reqID)
	case errors.Is(err, directory.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already in use", reqID)
	case errors.Is(err, directory.ErrIDNumberTaken):
		api.Fail(w, http.StatusConflict, "id_number_taken", "id number already in use", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, fallbackCode, fallbackMsg, reqID)
	}
}
