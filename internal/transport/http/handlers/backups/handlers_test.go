package backupshandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"jornada/internal/domain/auth"
	"jornada/internal/domain/backup"
	"jornada/internal/domain/settings"
	"jornada/internal/platform/crypto"
	"jornada/internal/platform/metrics"
	"jornada/internal/transport/http/middleware"
	backupshandler "jornada/internal/transport/http/handlers/backups"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]*backup.Backup
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*backup.Backup{}}
}

func (m *memStore) Create(_ context.Context, b *backup.Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.CreatedAt = time.Now().UTC()
	copied := *b
	m.records[b.ID] = &copied
	return nil
}

func (m *memStore) MarkCompleted(_ context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return backup.ErrNotFound
	}
	rec.Status = backup.StatusCompleted
	rec.StoragePath = storagePath
	rec.SizeBytes = sizeBytes
	rec.ChecksumSHA256 = checksum
	rec.CompletedAt = &completedAt
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id, errMsg string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return backup.ErrNotFound
	}
	rec.Status = backup.StatusFailed
	rec.Error = errMsg
	rec.CompletedAt = &completedAt
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*backup.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *memStore) List(_ context.Context, filter backup.ListFilter) ([]backup.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []backup.Backup
	for _, rec := range m.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Trigger != "" && rec.Trigger != filter.Trigger {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, filter backup.ListFilter) (int64, error) {
	records, err := m.List(ctx, filter)
	return int64(len(records)), err
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *memStore) ListExpired(_ context.Context, before time.Time) ([]backup.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []backup.Backup
	for _, rec := range m.records {
		if rec.Status == backup.StatusCompleted && rec.Trigger != backup.TriggerPreRestore && rec.CreatedAt.Before(before) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) LastCompleted(_ context.Context, trigger backup.Trigger) (*backup.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *backup.Backup
	for _, rec := range m.records {
		if rec.Trigger != trigger || rec.Status != backup.StatusCompleted {
			continue
		}
		if latest == nil || rec.CompletedAt.After(*latest.CompletedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

type settingsMemStore struct {
	current settings.Settings
}

func (m *settingsMemStore) Get(context.Context) (*settings.Settings, error) {
	copied := m.current
	return &copied, nil
}

func (m *settingsMemStore) Save(_ context.Context, s *settings.Settings) error {
	m.current = *s
	return nil
}

type fakeTool struct {
	content string
	dumpErr error
}

func (f *fakeTool) Dump(_ context.Context, outPath string) error {
	if f.dumpErr != nil {
		return f.dumpErr
	}
	return os.WriteFile(outPath, []byte(f.content), 0o600)
}

func (f *fakeTool) Restore(context.Context, string) error { return nil }

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
	settingsSvc := settings.NewService(&settingsMemStore{current: settings.Settings{
		Backup: settings.BackupConfig{
			Enabled:       true,
			Frequency:     settings.FrequencyDaily,
			RetentionDays: 30,
			StorageType:   settings.StorageLocal,
			Local:         &settings.LocalConfig{Path: t.TempDir()},
		},
	}}, crypto.New("unit-test-master-secret"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	store := newMemStore()
	svc := backup.NewService(store, settingsSvc, &fakeTool{content: "dump-bytes"}, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := backupshandler.NewHandler(svc, metrics.New())

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, store
}

func do(t *testing.T, r http.Handler, role, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(nil))
	if role != "" {
		req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{
			UserID: "u1", Email: "admin@example.com", Role: role,
		}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}

func runManualBackup(t *testing.T, r http.Handler) backup.Backup {
	t.Helper()
	rec := do(t, r, auth.RoleAdmin, http.MethodPost, "/backups")
	if rec.Code != http.StatusCreated {
		t.Fatalf("run status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var b backup.Backup
	if err := json.Unmarshal(decode(t, rec).Data, &b); err != nil {
		t.Fatalf("decode backup: %v", err)
	}
	return b
}

func TestRunAndListBackups(t *testing.T) {
	r, _ := newRouter(t)
	b := runManualBackup(t, r)
	if b.Status != backup.StatusCompleted {
		t.Fatalf("status = %q, want completed", b.Status)
	}
	if b.ChecksumSHA256 == "" || b.SizeBytes == 0 {
		t.Fatalf("backup missing checksum or size: %+v", b)
	}

	rec := do(t, r, auth.RoleAdmin, http.MethodGet, "/backups?trigger=manual")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var page struct {
		Items []backup.Backup `json:"items"`
		Total int64           `json:"total"`
	}
	if err := json.Unmarshal(decode(t, rec).Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("page = %+v, want one manual backup", page)
	}
}

func TestDownloadStreamsArtifact(t *testing.T) {
	r, _ := newRouter(t)
	b := runManualBackup(t, r)

	rec := do(t, r, auth.RoleAdmin, http.MethodGet, "/backups/"+b.ID+"/download")
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "dump-bytes" {
		t.Fatalf("downloaded body = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestGetUnknownBackup(t *testing.T) {
	r, _ := newRouter(t)
	rec := do(t, r, auth.RoleAdmin, http.MethodGet, "/backups/7b8d3a60-0000-0000-0000-000000000000")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env := decode(t, rec); env.Error == nil || env.Error.Code != "backup_not_found" {
		t.Fatalf("error = %+v, want backup_not_found", env.Error)
	}
}

func TestRestoreUnknownBackup(t *testing.T) {
	r, _ := newRouter(t)
	rec := do(t, r, auth.RoleAdmin, http.MethodPost, "/backups/7b8d3a60-0000-0000-0000-000000000000/restore")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteBackup(t *testing.T) {
	r, store := newRouter(t)
	b := runManualBackup(t, r)

	rec := do(t, r, auth.RoleAdmin, http.MethodDelete, "/backups/"+b.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if remaining, _ := store.Get(context.Background(), b.ID); remaining != nil {
		t.Fatal("record still present after delete")
	}
}

func TestBackupsRequireManagePermission(t *testing.T) {
	r, _ := newRouter(t)
	if rec := do(t, r, auth.RoleTracker, http.MethodPost, "/backups"); rec.Code != http.StatusForbidden {
		t.Fatalf("tracker run status = %d, want 403", rec.Code)
	}
	if rec := do(t, r, "", http.MethodGet, "/backups"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list status = %d, want 401", rec.Code)
	}
}
