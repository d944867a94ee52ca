package backup

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStorage(t.TempDir())

	if err := store.TestConnection(ctx); err != nil {
		t.Fatalf("TestConnection: %v", err)
	}

	path, err := store.Upload(ctx, strings.NewReader("dump-bytes"), "jornada-20260101T000000Z.dump")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	body, err := store.Download(ctx, path)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "dump-bytes" {
		t.Errorf("data = %q", data)
	}

	if err := store.Delete(ctx, path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Download(ctx, path); err == nil {
		t.Error("expected error after delete")
	}
	// Deleting again is not an error.
	if err := store.Delete(ctx, path); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

type mockS3 struct {
	objects map[string][]byte
	puts    []string
}

func (m *mockS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.objects[*input.Key] = data
	m.puts = append(m.puts, *input.Key)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &noSuchKeyError{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3) HeadBucket(ctx context.Context, input *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

type noSuchKeyError struct{}

func (e *noSuchKeyError) Error() string { return "NoSuchKey" }

func TestS3StoragePrefixesKeys(t *testing.T) {
	ctx := context.Background()
	mock := &mockS3{objects: make(map[string][]byte)}
	store := &s3Storage{client: mock, bucket: "jornada-backups", prefix: "backups"}

	key, err := store.Upload(ctx, strings.NewReader("dump-bytes"), "jornada-20260101T000000Z.dump")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if key != "backups/jornada-20260101T000000Z.dump" {
		t.Errorf("key = %q", key)
	}

	body, err := store.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, _ := io.ReadAll(body)
	body.Close()
	if string(data) != "dump-bytes" {
		t.Errorf("data = %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Download(ctx, key); err == nil {
		t.Error("expected error after delete")
	}
}
