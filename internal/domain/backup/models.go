package backup

import "time"

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Trigger string

const (
	TriggerScheduled  Trigger = "scheduled"
	TriggerManual     Trigger = "manual"
	TriggerPreRestore Trigger = "pre_restore"
)

// Backup is one dump artifact and its lifecycle record. StoragePath is the
// backend-specific location (object key, remote path or local file path).
type Backup struct {
	ID             string     `json:"id"`
	Filename       string     `json:"filename"`
	StorageType    string     `json:"storageType"`
	StoragePath    string     `json:"storagePath"`
	Trigger        Trigger    `json:"trigger"`
	Status         Status     `json:"status"`
	SizeBytes      int64      `json:"sizeBytes"`
	ChecksumSHA256 string     `json:"checksumSha256"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type ListFilter struct {
	Status  Status
	Trigger Trigger
	Limit   int
	Offset  int
}
