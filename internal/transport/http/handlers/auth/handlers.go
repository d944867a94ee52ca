package authhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp/totp"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/directory"
	"jornada/internal/domain/notifications"
	"jornada/internal/platform/config"
	cryptoutil "jornada/internal/platform/crypto"
	"jornada/internal/platform/requestctx"
	"jornada/internal/transport/http/api"
	"jornada/internal/transport/http/middleware"
	"jornada/internal/transport/http/shared"
)

type Handler struct {
	Service   *auth.Service
	Store     *auth.Store
	Directory *directory.Service
	Mailer    notifications.Mailer
	Crypto    *cryptoutil.Service
	Cfg       config.Config
}

func NewHandler(svc *auth.Service, store *auth.Store, dir *directory.Service, mailer notifications.Mailer, crypto *cryptoutil.Service, cfg config.Config) *Handler {
	return &Handler{Service: svc, Store: store, Directory: dir, Mailer: mailer, Crypto: crypto, Cfg: cfg}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.With(middleware.RequireAuth).Get("/auth/me", h.HandleMe)
	r.With(middleware.RequireAuth).Post("/auth/mfa/setup", h.HandleMFASetup)
	r.With(middleware.RequireAuth).Post("/auth/mfa/enable", h.HandleMFAEnable)
	r.With(middleware.RequireAuth).Post("/auth/mfa/disable", h.HandleMFADisable)
	r.With(middleware.RequirePermission(auth.PermUsersManage)).Get("/users", h.HandleListUsers)
	r.With(middleware.RequirePermission(auth.PermUsersManage)).Post("/users", h.HandleCreateUser)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	user, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}

	if user.MFAEnabled {
		if payload.MFACode == "" {
			api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", reqID)
			return
		}
		if !h.validateMFACode(r, user.ID, payload.MFACode) {
			api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
			return
		}
	}

	token, err := auth.GenerateToken(h.Cfg.JWTSecret, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}, h.Cfg.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}

	api.Success(w, map[string]any{"token": token, "user": user}, reqID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; logout is client-side discard.
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	userCtx, _ := middleware.GetUser(r.Context())

	user, err := h.Store.FindUserByID(r.Context(), userCtx.UserID)
	if err != nil || user == nil {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "account no longer exists", reqID)
		return
	}
	api.Success(w, user, reqID)
}

type resetRequest struct {
	Email string `json:"email"`
}

// HandleRequestReset always answers with a generic acknowledgement so the
// endpoint cannot be used to probe which emails exist.
func (h *Handler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload resetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	email := strings.TrimSpace(payload.Email)
	ack := map[string]string{"status": "reset_requested"}
	if email == "" {
		api.Success(w, ack, reqID)
		return
	}

	subjectType, subjectID := h.findResetSubject(r, email)
	if subjectID == "" {
		api.Success(w, ack, reqID)
		return
	}

	token, err := h.Service.RequestReset(r.Context(), subjectType, subjectID)
	if err != nil {
		slog.Warn("reset request not issued", "err", err, "requestId", reqID)
		api.Success(w, ack, reqID)
		return
	}

	subject, body := notifications.ResetMessage(h.Cfg.WebappURL, token)
	if err := h.Mailer.Send(r.Context(), h.Cfg.EmailFrom, email, subject, body); err != nil {
		slog.Warn("reset mail send failed", "err", err, "requestId", reqID)
	}
	api.Success(w, ack, reqID)
}

func (h *Handler) findResetSubject(r *http.Request, email string) (string, string) {
	if user, err := h.Store.FindUserByEmail(r.Context(), email); err == nil && user != nil {
		return auth.SubjectAPIUser, user.ID
	}
	if worker, err := h.Directory.WorkerByEmail(r.Context(), email); err == nil && worker != nil {
		return auth.SubjectWorker, worker.ID
	}
	return "", ""
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("token", payload.Token, "token is required")
	v.MinLength("newPassword", payload.NewPassword, 8, "password must be at least 8 characters")
	v.Required("newPassword", payload.NewPassword, "new password is required")
	if v.Reject(w, reqID) {
		return
	}

	hash, err := auth.HashPassword(payload.NewPassword)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "hash_error", "failed to process password", reqID)
		return
	}
	if err := h.Service.ConsumeReset(r.Context(), payload.Token, hash); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_token", "reset token is invalid or expired", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "password_updated"}, reqID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	userCtx, _ := middleware.GetUser(r.Context())

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Jornada",
		AccountName: userCtx.Email,
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_error", "failed to generate mfa secret", reqID)
		return
	}

	enc, err := h.Crypto.EncryptString(key.Secret())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_error", "failed to store mfa secret", reqID)
		return
	}
	if err := h.Store.SetMFASecret(r.Context(), userCtx.UserID, []byte(enc)); err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_error", "failed to store mfa secret", reqID)
		return
	}

	api.Success(w, map[string]string{"secret": key.Secret(), "otpauthUrl": key.URL()}, reqID)
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, true)
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.toggleMFA(w, r, false)
}

func (h *Handler) toggleMFA(w http.ResponseWriter, r *http.Request, enable bool) {
	reqID := requestctx.GetRequestID(r.Context())
	userCtx, _ := middleware.GetUser(r.Context())

	var payload mfaCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Code == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "mfa code is required", reqID)
		return
	}
	if !h.validateMFACode(r, userCtx.UserID, payload.Code) {
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", reqID)
		return
	}
	if err := h.Store.SetMFAEnabled(r.Context(), userCtx.UserID, enable); err != nil {
		api.Fail(w, http.StatusInternalServerError, "mfa_error", "failed to update mfa state", reqID)
		return
	}

	status := "mfa_disabled"
	if enable {
		status = "mfa_enabled"
	}
	api.Success(w, map[string]string{"status": status}, reqID)
}

func (h *Handler) validateMFACode(r *http.Request, userID, code string) bool {
	secretEnc, err := h.Store.MFASecret(r.Context(), userID)
	if err != nil || len(secretEnc) == 0 {
		return false
	}
	secret, err := h.Crypto.DecryptString(string(secretEnc))
	if err != nil || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "user_list_failed", "failed to list users", reqID)
		return
	}
	api.Success(w, users, reqID)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := requestctx.GetRequestID(r.Context())
	var payload createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	v.Email("email", payload.Email)
	v.Required("password", payload.Password, "password is required")
	v.MinLength("password", payload.Password, 8, "password must be at least 8 characters")
	if !auth.ValidRole(payload.Role) {
		v.Add("role", "must be admin or tracker")
	}
	if v.Reject(w, reqID) {
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "hash_error", "failed to process password", reqID)
		return
	}
	id, err := h.Store.CreateUser(r.Context(), strings.ToLower(payload.Email), hash, payload.Role)
	if err != nil {
		api.Fail(w, http.StatusConflict, "user_create_failed", "email already registered", reqID)
		return
	}
	api.Created(w, map[string]string{"id": id}, reqID)
}
