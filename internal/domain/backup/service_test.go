package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"jornada/internal/domain/settings"
	"jornada/internal/platform/crypto"
)

type memStore struct {
	mu    sync.Mutex
	items map[string]*Backup
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]*Backup)}
}

func (m *memStore) Create(ctx context.Context, b *Backup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	cp.CreatedAt = cp.StartedAt
	b.CreatedAt = cp.CreatedAt
	m.items[b.ID] = &cp
	return nil
}

func (m *memStore) MarkCompleted(ctx context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = StatusCompleted
	b.StoragePath = storagePath
	b.SizeBytes = sizeBytes
	b.ChecksumSHA256 = checksum
	b.CompletedAt = &completedAt
	return nil
}

func (m *memStore) MarkFailed(ctx context.Context, id, errMsg string, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = StatusFailed
	b.Error = errMsg
	b.CompletedAt = &completedAt
	return nil
}

func (m *memStore) Get(ctx context.Context, id string) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, filter ListFilter) ([]Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Backup
	for _, b := range m.items {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Trigger != "" && b.Trigger != filter.Trigger {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, filter ListFilter) (int64, error) {
	items, _ := m.List(ctx, filter)
	return int64(len(items)), nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) ListExpired(ctx context.Context, before time.Time) ([]Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Backup
	for _, b := range m.items {
		if b.Status == StatusCompleted && b.Trigger != TriggerPreRestore && b.CreatedAt.Before(before) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memStore) LastCompleted(ctx context.Context, trigger Trigger) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *Backup
	for _, b := range m.items {
		if b.Status != StatusCompleted || b.Trigger != trigger || b.CompletedAt == nil {
			continue
		}
		if latest == nil || b.CompletedAt.After(*latest.CompletedAt) {
			cp := *b
			latest = &cp
		}
	}
	return latest, nil
}

func (m *memStore) byTrigger(trigger Trigger) []*Backup {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Backup
	for _, b := range m.items {
		if b.Trigger == trigger {
			out = append(out, b)
		}
	}
	return out
}

// fakeTool writes fixed dump content; Restore records the path it was given.
type fakeTool struct {
	mu       sync.Mutex
	content  []byte
	dumpErr  error
	restored []string
	block    chan struct{}
}

func (f *fakeTool) Dump(ctx context.Context, outPath string) error {
	if f.block != nil {
		<-f.block
	}
	if f.dumpErr != nil {
		return f.dumpErr
	}
	return os.WriteFile(outPath, f.content, 0o600)
}

func (f *fakeTool) Restore(ctx context.Context, dumpPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored = append(f.restored, dumpPath)
	return nil
}

// fakeStorage keeps artifacts in memory.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Upload(ctx context.Context, body io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "mem/" + filename
	f.objects[path] = data
	return path, nil
}

func (f *fakeStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[storagePath]
	if !ok {
		return nil, fmt.Errorf("no object at %s", storagePath)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Delete(ctx context.Context, storagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storagePath)
	return nil
}

func (f *fakeStorage) TestConnection(ctx context.Context) error { return nil }

type settingsMemStore struct {
	current settings.Settings
}

func (s *settingsMemStore) Get(ctx context.Context) (*settings.Settings, error) {
	cp := s.current
	return &cp, nil
}

func (s *settingsMemStore) Save(ctx context.Context, in *settings.Settings) error {
	s.current = *in
	return nil
}

type fixture struct {
	svc     *Service
	store   *memStore
	storage *fakeStorage
	tool    *fakeTool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	settingsStore := &settingsMemStore{
		current: settings.Settings{
			Backup: settings.BackupConfig{
				Enabled:       true,
				Frequency:     settings.FrequencyDaily,
				RetentionDays: 30,
				StorageType:   settings.StorageLocal,
				Local:         &settings.LocalConfig{Path: t.TempDir()},
			},
		},
	}
	settingsSvc := settings.NewService(settingsStore, crypto.New("test-secret"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	store := newMemStore()
	storage := newFakeStorage()
	tool := &fakeTool{content: []byte("pg custom dump bytes")}

	svc := NewService(store, settingsSvc, tool, t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.newStorage = func(cfg *settings.BackupConfig, storageType string) (Storage, error) {
		return storage, nil
	}
	return &fixture{svc: svc, store: store, storage: storage, tool: tool}
}

func TestRunUploadsDumpAndRecordsChecksum(t *testing.T) {
	fx := newFixture(t)

	rec, err := fx.svc.Run(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("status = %s", rec.Status)
	}

	want := sha256.Sum256(fx.tool.content)
	if rec.ChecksumSHA256 != hex.EncodeToString(want[:]) {
		t.Errorf("checksum = %s", rec.ChecksumSHA256)
	}
	if rec.SizeBytes != int64(len(fx.tool.content)) {
		t.Errorf("size = %d", rec.SizeBytes)
	}
	if got := fx.storage.objects[rec.StoragePath]; !bytes.Equal(got, fx.tool.content) {
		t.Error("uploaded artifact does not match dump")
	}
}

func TestRunRecordsFailure(t *testing.T) {
	fx := newFixture(t)
	fx.tool.dumpErr = errors.New("connection refused")

	if _, err := fx.svc.Run(context.Background(), TriggerScheduled); err == nil {
		t.Fatal("expected error")
	}

	recs := fx.store.byTrigger(TriggerScheduled)
	if len(recs) != 1 {
		t.Fatalf("records = %d", len(recs))
	}
	if recs[0].Status != StatusFailed {
		t.Errorf("status = %s", recs[0].Status)
	}
	if recs[0].Error == "" {
		t.Error("expected error message on record")
	}
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	fx := newFixture(t)
	fx.tool.block = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		_, err := fx.svc.Run(context.Background(), TriggerManual)
		firstDone <- err
	}()

	// Wait until the first run holds the lock.
	deadline := time.After(2 * time.Second)
	for !fx.svc.running.Load() {
		select {
		case <-deadline:
			t.Fatal("first run never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := fx.svc.Run(context.Background(), TriggerManual); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("err = %v, want ErrAlreadyRunning", err)
	}

	close(fx.tool.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRestoreTakesPreRestoreBackupFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec, err := fx.svc.Run(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := fx.svc.Restore(ctx, rec.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if got := fx.store.byTrigger(TriggerPreRestore); len(got) != 1 {
		t.Errorf("pre-restore backups = %d, want 1", len(got))
	}
	if len(fx.tool.restored) != 1 {
		t.Fatalf("restore invocations = %d", len(fx.tool.restored))
	}
}

func TestRestoreRejectsChecksumMismatch(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec, err := fx.svc.Run(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fx.storage.objects[rec.StoragePath] = []byte("tampered")

	err = fx.svc.Restore(ctx, rec.ID)
	if err == nil {
		t.Fatal("expected checksum error")
	}
	if len(fx.tool.restored) != 0 {
		t.Error("restore must not run on a corrupt artifact")
	}
}

func TestRestoreUnknownBackup(t *testing.T) {
	fx := newFixture(t)
	if err := fx.svc.Restore(context.Background(), "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCleanupSkipsPreRestoreAndRecentBackups(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	mk := func(trigger Trigger, age time.Duration) string {
		fx.svc.now = func() time.Time { return time.Now().UTC().Add(-age) }
		rec, err := fx.svc.Run(ctx, trigger)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return rec.ID
	}

	oldScheduled := mk(TriggerScheduled, 60*24*time.Hour)
	oldPreRestore := mk(TriggerPreRestore, 60*24*time.Hour)
	recent := mk(TriggerScheduled, 24*time.Hour)

	fx.svc.now = func() time.Time { return time.Now().UTC() }
	removed, err := fx.svc.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	if got, _ := fx.store.Get(ctx, oldScheduled); got != nil {
		t.Error("expired scheduled backup should be removed")
	}
	if got, _ := fx.store.Get(ctx, oldPreRestore); got == nil {
		t.Error("pre-restore backup must survive retention")
	}
	if got, _ := fx.store.Get(ctx, recent); got == nil {
		t.Error("recent backup must survive retention")
	}
}

func TestDeleteRemovesArtifactAndRecord(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec, err := fx.svc.Run(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := fx.svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := fx.storage.objects[rec.StoragePath]; ok {
		t.Error("artifact should be deleted")
	}
	if got, _ := fx.store.Get(ctx, rec.ID); got != nil {
		t.Error("record should be deleted")
	}
}

func TestDownloadStreamsArtifact(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	rec, err := fx.svc.Run(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	body, meta, err := fx.svc.Download(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, fx.tool.content) {
		t.Error("downloaded bytes differ from dump")
	}
	if meta.Filename != rec.Filename {
		t.Errorf("filename = %q", meta.Filename)
	}
}
