package directory

import "time"

type Company struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
}

type Worker struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	IDNumber     string     `json:"idNumber"`
	CompanyIDs   []string   `json:"companyIds"`
	PasswordHash string     `json:"-"`
	CreatedBy    string     `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
	DeletedBy    string     `json:"deletedBy,omitempty"`
}

// EligibleFor reports whether the worker may clock into the company.
func (w *Worker) EligibleFor(companyID string) bool {
	if w.DeletedAt != nil {
		return false
	}
	for _, id := range w.CompanyIDs {
		if id == companyID {
			return true
		}
	}
	return false
}

func (w *Worker) FullName() string {
	if w.FirstName == "" {
		return w.LastName
	}
	if w.LastName == "" {
		return w.FirstName
	}
	return w.FirstName + " " + w.LastName
}
