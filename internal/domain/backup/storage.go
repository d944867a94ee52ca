package backup

import (
	"context"
	"io"
)

// Storage abstracts where dump artifacts live. Upload returns the
// backend-specific storage path used for later Download/Delete calls.
type Storage interface {
	Upload(ctx context.Context, body io.Reader, filename string) (string, error)
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
	TestConnection(ctx context.Context) error
}
