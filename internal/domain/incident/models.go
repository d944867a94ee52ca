package incident

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusInReview Status = "in_review"
	StatusResolved Status = "resolved"
)

type Incident struct {
	ID          string     `json:"id"`
	WorkerID    string     `json:"workerId"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

var statusRank = map[Status]int{
	StatusPending:  0,
	StatusInReview: 1,
	StatusResolved: 2,
}

func ValidStatus(s Status) bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition allows only forward movement through the lifecycle. Skipping
// a state is fine; going back is not a defined operation.
func CanTransition(from, to Status) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
