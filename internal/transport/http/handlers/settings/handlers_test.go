package settingshandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/settings"
	"jornada/internal/platform/crypto"
	"jornada/internal/transport/http/middleware"
	settingshandler "jornada/internal/transport/http/handlers/settings"
)

type memStore struct {
	current settings.Settings
}

func (m *memStore) Get(context.Context) (*settings.Settings, error) {
	copied := m.current
	return &copied, nil
}

func (m *memStore) Save(_ context.Context, s *settings.Settings) error {
	m.current = *s
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newRouter(t *testing.T) (chi.Router, *memStore) {
	t.Helper()
	store := &memStore{current: settings.Settings{
		ContactEmail: "ops@example.com",
		Backup: settings.BackupConfig{
			Frequency:     settings.FrequencyDaily,
			RetentionDays: 730,
			StorageType:   settings.StorageLocal,
			Local:         &settings.LocalConfig{Path: t.TempDir()},
		},
	}}
	svc := settings.NewService(store, crypto.New("unit-test-master-secret"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := settingshandler.NewHandler(svc, nil)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, store
}

func do(t *testing.T, r http.Handler, role, method, target, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if role != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{
			UserID: "u1", Email: "admin@example.com", Role: role,
		}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec.Code, env
}

func TestGetReturnsRedactedView(t *testing.T) {
	r, _ := newRouter(t)
	status, env := do(t, r, auth.RoleAdmin, http.MethodGet, "/settings", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if strings.Contains(string(env.Data), "Enc") {
		t.Fatalf("redacted view leaks encrypted fields: %s", env.Data)
	}
	var view settings.Redacted
	if err := json.Unmarshal(env.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.ContactEmail != "ops@example.com" {
		t.Fatalf("contactEmail = %q", view.ContactEmail)
	}
}

func TestUpdateContactEmail(t *testing.T) {
	r, store := newRouter(t)
	status, _ := do(t, r, auth.RoleAdmin, http.MethodPut, "/settings",
		`{"contactEmail":"new@example.com"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if store.current.ContactEmail != "new@example.com" {
		t.Fatalf("stored contactEmail = %q", store.current.ContactEmail)
	}
	if store.current.Backup.RetentionDays != 730 {
		t.Fatalf("backup config changed by unrelated patch: %+v", store.current.Backup)
	}
}

func TestUpdateRejectsInvalidBackupConfig(t *testing.T) {
	r, _ := newRouter(t)
	status, env := do(t, r, auth.RoleAdmin, http.MethodPut, "/settings",
		`{"backupConfig":{"frequency":"hourly","retentionDays":30,"storageType":"local","localConfig":{"path":"/tmp/x"}}}`)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if env.Error == nil || env.Error.Code != "invalid_settings" {
		t.Fatalf("error = %+v, want invalid_settings", env.Error)
	}
}

func TestSettingsRequireAdminPermissions(t *testing.T) {
	r, _ := newRouter(t)
	if status, _ := do(t, r, auth.RoleTracker, http.MethodGet, "/settings", ""); status != http.StatusForbidden {
		t.Fatalf("tracker read status = %d, want 403", status)
	}
	if status, _ := do(t, r, "", http.MethodPut, "/settings", `{}`); status != http.StatusUnauthorized {
		t.Fatalf("anonymous write status = %d, want 401", status)
	}
}
