package timerecord

import "time"

type RecordType string

const (
	TypeEntry RecordType = "entry"
	TypeExit  RecordType = "exit"
)

// TimeRecord is an immutable clock event. Entries stay flagged open until the
// matching exit closes them; the storage layer guarantees a worker never holds
// two open entries at once.
type TimeRecord struct {
	ID               string     `json:"id"`
	WorkerID         string     `json:"workerId"`
	CompanyID        string     `json:"companyId"`
	CompanyName      string     `json:"companyName"`
	Type             RecordType `json:"type"`
	RecordedAt       time.Time  `json:"timestampUtc"`
	LocalTime        string     `json:"timestampLocal"`
	UTCOffsetMinutes int        `json:"utcOffsetMinutes"`
	DurationSeconds  *int64     `json:"durationSeconds,omitempty"`
	Open             bool       `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// SubmitRequest is a worker clock action. The credential is checked on every
// request; workers hold no session.
type SubmitRequest struct {
	WorkerID  string
	CompanyID string
	Password  string
	Timezone  string
}

type ListFilter struct {
	WorkerID  string
	CompanyID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
