package settings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"jornada/internal/platform/crypto"
)

type memStore struct {
	current Settings
	saved   int
}

func (m *memStore) Get(ctx context.Context) (*Settings, error) {
	cp := m.current
	return &cp, nil
}

func (m *memStore) Save(ctx context.Context, in *Settings) error {
	m.current = *in
	m.current.UpdatedAt = time.Now().UTC()
	m.saved++
	return nil
}

func newFixture() (*Service, *memStore) {
	store := &memStore{
		current: Settings{
			ContactEmail: "ops@example.com",
			Backup: BackupConfig{
				Frequency:     FrequencyDaily,
				RetentionDays: 730,
				StorageType:   StorageLocal,
				Local:         &LocalConfig{Path: "/var/backups"},
			},
		},
	}
	svc := NewService(store, crypto.New("unit-test-master-secret"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store
}

func strPtr(s string) *string { return &s }

func TestApplyEncryptsS3Credentials(t *testing.T) {
	svc, store := newFixture()

	view, err := svc.Apply(context.Background(), Update{
		Backup: &BackupUpdate{
			Enabled:       true,
			Frequency:     FrequencyDaily,
			HourUTC:       3,
			RetentionDays: 90,
			StorageType:   StorageS3,
			S3: &S3Input{
				EndpointURL:     "https://s3.example.com",
				BucketName:      "jornada-backups",
				Region:          "eu-west-1",
				AccessKeyID:     "AKIAEXAMPLE",
				SecretAccessKey: "topsecret",
			},
		},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	stored := store.current.Backup.S3
	if stored == nil {
		t.Fatal("expected s3 config to be stored")
	}
	if stored.AccessKeyIDEnc == "AKIAEXAMPLE" || stored.SecretAccessKeyEnc == "topsecret" {
		t.Fatal("credentials stored in plaintext")
	}

	access, secret, err := svc.S3Credentials(stored)
	if err != nil {
		t.Fatalf("S3Credentials: %v", err)
	}
	if access != "AKIAEXAMPLE" || secret != "topsecret" {
		t.Fatalf("round trip mismatch: %q %q", access, secret)
	}

	if !view.Backup.S3Configured {
		t.Error("expected s3Configured in redacted view")
	}
	if view.Backup.S3Bucket != "jornada-backups" {
		t.Errorf("bucket = %q", view.Backup.S3Bucket)
	}
}

func TestApplyKeepsCredentialsWhenBlank(t *testing.T) {
	svc, store := newFixture()

	ctx := context.Background()
	if _, err := svc.Apply(ctx, Update{
		Backup: &BackupUpdate{
			Enabled:       true,
			Frequency:     FrequencyDaily,
			RetentionDays: 90,
			StorageType:   StorageSFTP,
			SFTP: &SFTPInput{
				Host:       "backup.example.com",
				Username:   "jornada",
				Password:   "hunter2",
				RemotePath: "/srv/backups",
			},
		},
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	firstEnc := store.current.Backup.SFTP.PasswordEnc

	// Schedule-only update resends the SFTP block without the password.
	if _, err := svc.Apply(ctx, Update{
		Backup: &BackupUpdate{
			Enabled:       true,
			Frequency:     FrequencyWeekly,
			DayOfWeek:     4,
			RetentionDays: 90,
			StorageType:   StorageSFTP,
			SFTP: &SFTPInput{
				Host:       "backup.example.com",
				Username:   "jornada",
				RemotePath: "/srv/backups",
			},
		},
	}); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	if store.current.Backup.SFTP.PasswordEnc != firstEnc {
		t.Error("blank password input should keep stored credential")
	}
	pw, err := svc.SFTPPassword(store.current.Backup.SFTP)
	if err != nil {
		t.Fatalf("SFTPPassword: %v", err)
	}
	if pw != "hunter2" {
		t.Errorf("password = %q", pw)
	}
	if store.current.Backup.SFTP.Port != 22 {
		t.Errorf("port default = %d, want 22", store.current.Backup.SFTP.Port)
	}
}

func TestApplyValidation(t *testing.T) {
	svc, _ := newFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		in   BackupUpdate
		want error
	}{
		{
			name: "bad frequency",
			in:   BackupUpdate{Frequency: "hourly", RetentionDays: 30, StorageType: StorageLocal},
			want: ErrInvalidFrequency,
		},
		{
			name: "bad hour",
			in:   BackupUpdate{Frequency: FrequencyDaily, HourUTC: 24, RetentionDays: 30, StorageType: StorageLocal},
			want: ErrInvalidHour,
		},
		{
			name: "bad day of month",
			in:   BackupUpdate{Frequency: FrequencyMonthly, DayOfMonth: 31, RetentionDays: 30, StorageType: StorageLocal},
			want: ErrInvalidDayOfMonth,
		},
		{
			name: "bad retention",
			in:   BackupUpdate{Frequency: FrequencyDaily, RetentionDays: 0, StorageType: StorageLocal},
			want: ErrInvalidRetention,
		},
		{
			name: "bad storage",
			in:   BackupUpdate{Frequency: FrequencyDaily, RetentionDays: 30, StorageType: "ftp"},
			want: ErrInvalidStorageType,
		},
		{
			name: "enabled without credentials",
			in:   BackupUpdate{Enabled: true, Frequency: FrequencyDaily, RetentionDays: 30, StorageType: StorageS3},
			want: ErrStorageIncomplete,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, Update{Backup: &tc.in})
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRedactedViewHidesSecrets(t *testing.T) {
	svc, store := newFixture()
	store.current.Backup.StorageType = StorageS3
	store.current.Backup.S3 = &S3Config{
		EndpointURL:        "https://s3.example.com",
		BucketName:         "jornada-backups",
		AccessKeyIDEnc:     "enc-a",
		SecretAccessKeyEnc: "enc-b",
	}

	view, err := svc.View(context.Background())
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !view.Backup.S3Configured {
		t.Error("expected s3Configured")
	}
	if view.Backup.S3Endpoint != "https://s3.example.com" {
		t.Errorf("endpoint = %q", view.Backup.S3Endpoint)
	}
}

func TestContactEmailPatch(t *testing.T) {
	svc, store := newFixture()
	if _, err := svc.Apply(context.Background(), Update{ContactEmail: strPtr("help@example.com")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if store.current.ContactEmail != "help@example.com" {
		t.Errorf("contact email = %q", store.current.ContactEmail)
	}
	if store.current.Backup.RetentionDays != 730 {
		t.Error("backup config should be untouched by contact-only update")
	}
}
