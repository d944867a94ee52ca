package directory

import (
	"testing"
	"time"
)

func TestEligibleFor(t *testing.T) {
	worker := Worker{CompanyIDs: []string{"c1", "c2"}}

	if !worker.EligibleFor("c1") {
		t.Fatal("expected worker to be eligible for c1")
	}
	if worker.EligibleFor("c3") {
		t.Fatal("worker must not be eligible for a company outside its set")
	}
}

func TestEligibleForSoftDeletedWorker(t *testing.T) {
	now := time.Now()
	worker := Worker{CompanyIDs: []string{"c1"}, DeletedAt: &now}

	if worker.EligibleFor("c1") {
		t.Fatal("soft-deleted worker must not be eligible")
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		name   string
		worker Worker
		want   string
	}{
		{name: "both names", worker: Worker{FirstName: "Ana", LastName: "García"}, want: "Ana García"},
		{name: "first only", worker: Worker{FirstName: "Ana"}, want: "Ana"},
		{name: "last only", worker: Worker{LastName: "García"}, want: "García"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.worker.FullName(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
