package companieshandler

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
	r.Route("/companies", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCompaniesRead)).Get("/", h.HandleList)
		r.With(middleware.RequirePermission(auth.PermCompaniesWrite)).Post("/", h.HandleCreate)
		r.With(middleware.RequirePermission(auth.PermCompaniesRead)).Get("/{companyID}", h.HandleGet)
		r.With(middleware.RequirePermission(auth.PermCompaniesWrite)).Put("/{companyID}", h.HandleUpdate)
		r.With(middleware.RequirePermission(auth.PermCompaniesWrite)).Delete("/{companyID}", h.HandleDelete)
	})
}

type companyRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	companies, err := h.Directory.ListCompanies(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_list_failed", "failed to list companies", reqID)
		return
	}
	api.Success(w, companies, reqID)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload companyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "company name is required")
	if v.Reject(w, reqID) {
		return
	}

	company, err := h.Directory.CreateCompany(r.Context(), payload.Name)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_create_failed", "failed to create company", reqID)
		return
	}
	api.Created(w, company, reqID)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	company, err := h.Directory.CompanyByID(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "company_get_failed", "failed to load company", reqID)
		return
	}
	if company == nil {
		api.Fail(w, http.StatusNotFound, "company_not_found", "company not found", reqID)
		return
	}
	api.Success(w, company, reqID)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload companyRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "company name is required")
	if v.Reject(w, reqID) {
		return
	}

	company, err := h.Directory.UpdateCompany(r.Context(), chi.URLParam(r, "companyID"), payload.Name)
	if err != nil {
		if errors.Is(err, directory.ErrCompanyNotFound) {
			api.Fail(w, http.StatusNotFound, "company_not_found", "company not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "company_update_failed", "failed to update company", reqID)
		return
	}
	api.Success(w, company, reqID)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	err := h.Directory.DeleteCompany(r.Context(), chi.URLParam(r, "companyID"), user.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrCompanyNotFound) {
			api.Fail(w, http.StatusNotFound, "company_not_found", "company not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "company_delete_failed", "failed to delete company", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}
