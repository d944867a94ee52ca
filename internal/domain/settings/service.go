package settings

import (
	"context"
	"fmt"
	"log/slog"

	"jornada/internal/platform/crypto"
)

type Service struct {
	store  StoreAPI
	crypto *crypto.Service
	logger *slog.Logger
}

func NewService(store StoreAPI, cryptoSvc *crypto.Service, logger *slog.Logger) *Service {
	return &Service{store: store, crypto: cryptoSvc, logger: logger}
}

// Get returns settings with credentials still encrypted. Internal callers
// that need plaintext go through S3Credentials / SFTPPassword.
func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.store.Get(ctx)
}

func (s *Service) View(ctx context.Context) (*Redacted, error) {
	current, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return redact(current), nil
}

// Apply validates and merges an update into the singleton row. Credential
// inputs left blank keep the stored encrypted value, so clients can update
// schedule fields without re-sending secrets.
func (s *Service) Apply(ctx context.Context, upd Update) (*Redacted, error) {
	current, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	if upd.ContactEmail != nil {
		current.ContactEmail = *upd.ContactEmail
	}
	if upd.WebappURL != nil {
		current.WebappURL = *upd.WebappURL
	}
	if upd.Backup != nil {
		merged, err := s.mergeBackup(current.Backup, *upd.Backup)
		if err != nil {
			return nil, err
		}
		current.Backup = *merged
	}

	if err := s.store.Save(ctx, current); err != nil {
		return nil, err
	}
	s.logger.Info("settings updated",
		slog.Bool("backupEnabled", current.Backup.Enabled),
		slog.String("storageType", current.Backup.StorageType))
	return redact(current), nil
}

func (s *Service) mergeBackup(prev BackupConfig, in BackupUpdate) (*BackupConfig, error) {
	if err := validateBackup(in); err != nil {
		return nil, err
	}

	next := BackupConfig{
		Enabled:       in.Enabled,
		Frequency:     in.Frequency,
		HourUTC:       in.HourUTC,
		DayOfWeek:     in.DayOfWeek,
		DayOfMonth:    in.DayOfMonth,
		RetentionDays: in.RetentionDays,
		StorageType:   in.StorageType,
		S3:            prev.S3,
		SFTP:          prev.SFTP,
		Local:         prev.Local,
	}

	if in.S3 != nil {
		s3, err := s.mergeS3(prev.S3, *in.S3)
		if err != nil {
			return nil, err
		}
		next.S3 = s3
	}
	if in.SFTP != nil {
		sftp, err := s.mergeSFTP(prev.SFTP, *in.SFTP)
		if err != nil {
			return nil, err
		}
		next.SFTP = sftp
	}
	if in.Local != nil {
		local := *in.Local
		next.Local = &local
	}

	if next.Enabled {
		if err := storageReady(&next); err != nil {
			return nil, err
		}
	}
	return &next, nil
}

func (s *Service) mergeS3(prev *S3Config, in S3Input) (*S3Config, error) {
	out := &S3Config{
		EndpointURL: in.EndpointURL,
		BucketName:  in.BucketName,
		Region:      in.Region,
	}
	if prev != nil {
		out.AccessKeyIDEnc = prev.AccessKeyIDEnc
		out.SecretAccessKeyEnc = prev.SecretAccessKeyEnc
	}
	if in.AccessKeyID != "" {
		enc, err := s.crypto.EncryptString(in.AccessKeyID)
		if err != nil {
			return nil, fmt.Errorf("encrypt access key: %w", err)
		}
		out.AccessKeyIDEnc = enc
	}
	if in.SecretAccessKey != "" {
		enc, err := s.crypto.EncryptString(in.SecretAccessKey)
		if err != nil {
			return nil, fmt.Errorf("encrypt secret key: %w", err)
		}
		out.SecretAccessKeyEnc = enc
	}
	return out, nil
}

func (s *Service) mergeSFTP(prev *SFTPConfig, in SFTPInput) (*SFTPConfig, error) {
	out := &SFTPConfig{
		Host:       in.Host,
		Port:       in.Port,
		Username:   in.Username,
		RemotePath: in.RemotePath,
	}
	if out.Port == 0 {
		out.Port = 22
	}
	if prev != nil {
		out.PasswordEnc = prev.PasswordEnc
	}
	if in.Password != "" {
		enc, err := s.crypto.EncryptString(in.Password)
		if err != nil {
			return nil, fmt.Errorf("encrypt sftp password: %w", err)
		}
		out.PasswordEnc = enc
	}
	return out, nil
}

// S3Credentials decrypts the stored S3 key pair.
func (s *Service) S3Credentials(cfg *S3Config) (accessKey, secretKey string, err error) {
	if cfg == nil {
		return "", "", ErrStorageIncomplete
	}
	accessKey, err = s.crypto.DecryptString(cfg.AccessKeyIDEnc)
	if err != nil {
		return "", "", fmt.Errorf("decrypt access key: %w", err)
	}
	secretKey, err = s.crypto.DecryptString(cfg.SecretAccessKeyEnc)
	if err != nil {
		return "", "", fmt.Errorf("decrypt secret key: %w", err)
	}
	return accessKey, secretKey, nil
}

func (s *Service) SFTPPassword(cfg *SFTPConfig) (string, error) {
	if cfg == nil {
		return "", ErrStorageIncomplete
	}
	pw, err := s.crypto.DecryptString(cfg.PasswordEnc)
	if err != nil {
		return "", fmt.Errorf("decrypt sftp password: %w", err)
	}
	return pw, nil
}

func validateBackup(in BackupUpdate) error {
	switch in.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return ErrInvalidFrequency
	}
	if in.HourUTC < 0 || in.HourUTC > 23 {
		return ErrInvalidHour
	}
	if in.Frequency == FrequencyWeekly && (in.DayOfWeek < 0 || in.DayOfWeek > 6) {
		return ErrInvalidDayOfWeek
	}
	if in.Frequency == FrequencyMonthly && (in.DayOfMonth < 1 || in.DayOfMonth > 28) {
		return ErrInvalidDayOfMonth
	}
	if in.RetentionDays < 1 || in.RetentionDays > 3650 {
		return ErrInvalidRetention
	}
	switch in.StorageType {
	case StorageLocal, StorageS3, StorageSFTP:
	default:
		return ErrInvalidStorageType
	}
	return nil
}

func storageReady(cfg *BackupConfig) error {
	switch cfg.StorageType {
	case StorageLocal:
		if cfg.Local == nil || cfg.Local.Path == "" {
			return ErrStorageIncomplete
		}
	case StorageS3:
		if cfg.S3 == nil || cfg.S3.BucketName == "" || cfg.S3.AccessKeyIDEnc == "" || cfg.S3.SecretAccessKeyEnc == "" {
			return ErrStorageIncomplete
		}
	case StorageSFTP:
		if cfg.SFTP == nil || cfg.SFTP.Host == "" || cfg.SFTP.Username == "" || cfg.SFTP.PasswordEnc == "" {
			return ErrStorageIncomplete
		}
	}
	return nil
}

func redact(in *Settings) *Redacted {
	out := &Redacted{
		ContactEmail: in.ContactEmail,
		WebappURL:    in.WebappURL,
		UpdatedAt:    in.UpdatedAt,
		Backup: RedactedBackup{
			Enabled:       in.Backup.Enabled,
			Frequency:     in.Backup.Frequency,
			HourUTC:       in.Backup.HourUTC,
			DayOfWeek:     in.Backup.DayOfWeek,
			DayOfMonth:    in.Backup.DayOfMonth,
			RetentionDays: in.Backup.RetentionDays,
			StorageType:   in.Backup.StorageType,
		},
	}
	if s3 := in.Backup.S3; s3 != nil {
		out.Backup.S3Configured = s3.AccessKeyIDEnc != "" && s3.SecretAccessKeyEnc != ""
		out.Backup.S3Endpoint = s3.EndpointURL
		out.Backup.S3Bucket = s3.BucketName
	}
	if sftp := in.Backup.SFTP; sftp != nil {
		out.Backup.SFTPConfigured = sftp.Host != "" && sftp.PasswordEnc != ""
		out.Backup.SFTPHost = sftp.Host
		out.Backup.SFTPPath = sftp.RemotePath
	}
	if local := in.Backup.Local; local != nil {
		out.Backup.LocalPath = local.Path
	}
	return out
}
