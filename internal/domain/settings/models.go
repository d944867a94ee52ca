package settings

import "time"

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageSFTP  = "sftp"
)

// S3Config holds an S3-compatible endpoint. Credentials are stored AES-GCM
// encrypted under the master secret, base64-encoded.
type S3Config struct {
	EndpointURL        string `json:"endpoint_url"`
	BucketName         string `json:"bucket_name"`
	Region             string `json:"region"`
	AccessKeyIDEnc     string `json:"access_key_id_enc"`
	SecretAccessKeyEnc string `json:"secret_access_key_enc"`
}

type SFTPConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	PasswordEnc string `json:"password_enc"`
	RemotePath  string `json:"remote_path"`
}

type LocalConfig struct {
	Path string `json:"path"`
}

type BackupConfig struct {
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency"`
	HourUTC   int    `json:"hour_utc"`
	// DayOfWeek is 0=Monday through 6=Sunday, weekly frequency only.
	DayOfWeek     int          `json:"day_of_week"`
	DayOfMonth    int          `json:"day_of_month"`
	RetentionDays int          `json:"retention_days"`
	StorageType   string       `json:"storage_type"`
	S3            *S3Config    `json:"s3_config,omitempty"`
	SFTP          *SFTPConfig  `json:"sftp_config,omitempty"`
	Local         *LocalConfig `json:"local_config,omitempty"`
}

// Settings is the process-wide singleton configuration entity.
type Settings struct {
	ContactEmail string       `json:"contactEmail"`
	WebappURL    string       `json:"webappUrl"`
	Backup       BackupConfig `json:"backupConfig"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Update carries plaintext credentials from the API; the service encrypts
// them before anything touches storage. Nil sub-configs keep current values.
type Update struct {
	ContactEmail *string
	WebappURL    *string
	Backup       *BackupUpdate
}

type BackupUpdate struct {
	Enabled       bool
	Frequency     string
	HourUTC       int
	DayOfWeek     int
	DayOfMonth    int
	RetentionDays int
	StorageType   string
	S3            *S3Input
	SFTP          *SFTPInput
	Local         *LocalConfig
}

type S3Input struct {
	EndpointURL     string `json:"endpointUrl"`
	BucketName      string `json:"bucketName"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey"`
}

type SFTPInput struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	RemotePath string `json:"remotePath"`
}

// Redacted is the API view of settings: configured flags and non-secret
// fields only, credentials never leave the server.
type Redacted struct {
	ContactEmail string         `json:"contactEmail"`
	WebappURL    string         `json:"webappUrl"`
	Backup       RedactedBackup `json:"backupConfig"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

type RedactedBackup struct {
	Enabled        bool   `json:"enabled"`
	Frequency      string `json:"frequency"`
	HourUTC        int    `json:"hourUtc"`
	DayOfWeek      int    `json:"dayOfWeek"`
	DayOfMonth     int    `json:"dayOfMonth"`
	RetentionDays  int    `json:"retentionDays"`
	StorageType    string `json:"storageType"`
	S3Configured   bool   `json:"s3Configured"`
	S3Endpoint     string `json:"s3Endpoint,omitempty"`
	S3Bucket       string `json:"s3Bucket,omitempty"`
	SFTPConfigured bool   `json:"sftpConfigured"`
	SFTPHost       string `json:"sftpHost,omitempty"`
	SFTPPath       string `json:"sftpPath,omitempty"`
	LocalPath      string `json:"localPath,omitempty"`
}
