package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// localStorage keeps artifacts on the server filesystem.
type localStorage struct {
	dir string
}

func NewLocalStorage(dir string) Storage {
	return &localStorage{dir: dir}
}

func (l *localStorage) Upload(ctx context.Context, body io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	dst := filepath.Join(l.dir, filename)
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

func (l *localStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	f, err := os.Open(storagePath)
	if err != nil {
		return nil, fmt.Errorf("open backup file: %w", err)
	}
	return f, nil
}

func (l *localStorage) Delete(ctx context.Context, storagePath string) error {
	if err := os.Remove(storagePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete backup file: %w", err)
	}
	return nil
}

func (l *localStorage) TestConnection(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("backup dir not writable: %w", err)
	}
	probe := filepath.Join(l.dir, ".write-test")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("backup dir not writable: %w", err)
	}
	return os.Remove(probe)
}
