package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"jornada/internal/domain/settings"
)

// StorageFactory builds the backend for a given storage type from the
// current settings, decrypting credentials as needed.
type StorageFactory func(cfg *settings.BackupConfig, storageType string) (Storage, error)

type Service struct {
	store      StoreAPI
	settings   *settings.Service
	tool       DumpTool
	newStorage StorageFactory
	tempDir    string
	logger     *slog.Logger
	now        func() time.Time

	running atomic.Bool
}

func NewService(store StoreAPI, settingsSvc *settings.Service, tool DumpTool, tempDir string, logger *slog.Logger) *Service {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	s := &Service{
		store:    store,
		settings: settingsSvc,
		tool:     tool,
		tempDir:  tempDir,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.newStorage = s.defaultStorage
	return s
}

func (s *Service) defaultStorage(cfg *settings.BackupConfig, storageType string) (Storage, error) {
	switch storageType {
	case settings.StorageLocal:
		if cfg.Local == nil || cfg.Local.Path == "" {
			return nil, ErrStorageUnavailable
		}
		return NewLocalStorage(cfg.Local.Path), nil
	case settings.StorageS3:
		if cfg.S3 == nil {
			return nil, ErrStorageUnavailable
		}
		access, secret, err := s.settings.S3Credentials(cfg.S3)
		if err != nil {
			return nil, err
		}
		return NewS3Storage(S3Options{
			Endpoint:  cfg.S3.EndpointURL,
			Bucket:    cfg.S3.BucketName,
			Region:    cfg.S3.Region,
			AccessKey: access,
			SecretKey: secret,
			Prefix:    "backups",
		}), nil
	case settings.StorageSFTP:
		if cfg.SFTP == nil {
			return nil, ErrStorageUnavailable
		}
		password, err := s.settings.SFTPPassword(cfg.SFTP)
		if err != nil {
			return nil, err
		}
		return NewSFTPStorage(SFTPOptions{
			Host:       cfg.SFTP.Host,
			Port:       cfg.SFTP.Port,
			Username:   cfg.SFTP.Username,
			Password:   password,
			RemotePath: cfg.SFTP.RemotePath,
		}), nil
	default:
		return nil, ErrStorageUnavailable
	}
}

// Run produces a dump, uploads it and records the outcome. Only one backup
// or restore runs at a time.
func (s *Service) Run(ctx context.Context, trigger Trigger) (*Backup, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	return s.run(ctx, trigger)
}

func (s *Service) run(ctx context.Context, trigger Trigger) (*Backup, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	storage, err := s.newStorage(&cfg.Backup, cfg.Backup.StorageType)
	if err != nil {
		return nil, err
	}

	started := s.now()
	rec := &Backup{
		ID:          uuid.NewString(),
		Filename:    fmt.Sprintf("jornada-%s.dump", started.Format("20060102T150405Z")),
		StorageType: cfg.Backup.StorageType,
		Trigger:     trigger,
		Status:      StatusInProgress,
		StartedAt:   started,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	storagePath, size, checksum, err := s.produce(ctx, storage, rec)
	if err != nil {
		s.fail(ctx, rec, err)
		return nil, err
	}

	completed := s.now()
	if err := s.store.MarkCompleted(ctx, rec.ID, storagePath, size, checksum, completed); err != nil {
		return nil, err
	}
	rec.Status = StatusCompleted
	rec.StoragePath = storagePath
	rec.SizeBytes = size
	rec.ChecksumSHA256 = checksum
	rec.CompletedAt = &completed

	s.logger.Info("backup completed",
		slog.String("backupId", rec.ID),
		slog.String("trigger", string(trigger)),
		slog.String("storageType", rec.StorageType),
		slog.Int64("sizeBytes", size))
	return rec, nil
}

func (s *Service) produce(ctx context.Context, storage Storage, rec *Backup) (string, int64, string, error) {
	dumpFile := filepath.Join(s.tempDir, rec.ID+".dump")
	defer os.Remove(dumpFile)

	if err := s.tool.Dump(ctx, dumpFile); err != nil {
		return "", 0, "", err
	}

	f, err := os.Open(dumpFile)
	if err != nil {
		return "", 0, "", fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, "", fmt.Errorf("checksum dump: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", 0, "", err
	}

	storagePath, err := storage.Upload(ctx, f, rec.Filename)
	if err != nil {
		return "", 0, "", err
	}
	return storagePath, size, hex.EncodeToString(hasher.Sum(nil)), nil
}

func (s *Service) fail(ctx context.Context, rec *Backup, cause error) {
	// The failure row must land even when the run was aborted by shutdown.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.MarkFailed(ctx, rec.ID, cause.Error(), s.now()); err != nil {
		s.logger.Error("mark backup failed", slog.String("backupId", rec.ID), slog.String("error", err.Error()))
	}
	s.logger.Error("backup failed",
		slog.String("backupId", rec.ID),
		slog.String("trigger", string(rec.Trigger)),
		slog.String("error", cause.Error()))
}

// Restore takes a pre-restore safety backup, downloads the artifact,
// verifies its checksum and applies it with pg_restore.
func (s *Service) Restore(ctx context.Context, id string) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}
	if rec.Status != StatusCompleted {
		return ErrNotReady
	}

	if _, err := s.run(ctx, TriggerPreRestore); err != nil {
		return fmt.Errorf("pre-restore backup: %w", err)
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	storage, err := s.newStorage(&cfg.Backup, rec.StorageType)
	if err != nil {
		return err
	}

	body, err := storage.Download(ctx, rec.StoragePath)
	if err != nil {
		return err
	}
	defer body.Close()

	dumpFile := filepath.Join(s.tempDir, "restore-"+rec.ID+".dump")
	defer os.Remove(dumpFile)

	if err := writeVerified(dumpFile, body, rec.ChecksumSHA256); err != nil {
		return err
	}
	if err := s.tool.Restore(ctx, dumpFile); err != nil {
		return err
	}

	s.logger.Info("restore completed", slog.String("backupId", rec.ID))
	return nil
}

func writeVerified(dst string, body io.Reader, wantChecksum string) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create restore file: %w", err)
	}
	hasher := sha256.New()
	_, err = io.Copy(io.MultiWriter(out, hasher), body)
	closeErr := out.Close()
	if err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}
	if closeErr != nil {
		return closeErr
	}
	if got := hex.EncodeToString(hasher.Sum(nil)); wantChecksum != "" && got != wantChecksum {
		return fmt.Errorf("checksum mismatch: got %s want %s", got, wantChecksum)
	}
	return nil
}

// Download streams a stored artifact for the admin UI.
func (s *Service) Download(ctx context.Context, id string) (io.ReadCloser, *Backup, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec == nil {
		return nil, nil, ErrNotFound
	}
	if rec.Status != StatusCompleted {
		return nil, nil, ErrNotReady
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	storage, err := s.newStorage(&cfg.Backup, rec.StorageType)
	if err != nil {
		return nil, nil, err
	}
	body, err := storage.Download(ctx, rec.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return body, rec, nil
}

// Delete removes the remote artifact and the record. A missing remote
// object does not keep the record alive.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotFound
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if storage, err := s.newStorage(&cfg.Backup, rec.StorageType); err == nil {
		if err := storage.Delete(ctx, rec.StoragePath); err != nil {
			s.logger.Warn("delete backup artifact",
				slog.String("backupId", rec.ID),
				slog.String("error", err.Error()))
		}
	}
	return s.store.Delete(ctx, rec.ID)
}

// Cleanup drops completed backups older than the retention window.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	retention := cfg.Backup.RetentionDays
	if retention <= 0 {
		return 0, nil
	}

	before := s.now().AddDate(0, 0, -retention)
	expired, err := s.store.ListExpired(ctx, before)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range expired {
		if storage, err := s.newStorage(&cfg.Backup, rec.StorageType); err == nil {
			if err := storage.Delete(ctx, rec.StoragePath); err != nil {
				s.logger.Warn("delete expired artifact",
					slog.String("backupId", rec.ID),
					slog.String("error", err.Error()))
			}
		}
		if err := s.store.Delete(ctx, rec.ID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("backup retention cleanup", slog.Int("removed", removed))
	}
	return removed, nil
}

// TestStorage verifies the currently configured backend is reachable.
func (s *Service) TestStorage(ctx context.Context) error {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	storage, err := s.newStorage(&cfg.Backup, cfg.Backup.StorageType)
	if err != nil {
		return err
	}
	return storage.TestConnection(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Backup, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Backup, int64, error) {
	items, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// LastScheduled reports the most recent completed scheduled run, used by
// the scheduler to decide whether the current slot already ran.
func (s *Service) LastScheduled(ctx context.Context) (*Backup, error) {
	return s.store.LastCompleted(ctx, TriggerScheduled)
}
