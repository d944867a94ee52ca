package incident

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "pending to in_review", from: StatusPending, to: StatusInReview, want: true},
		{name: "in_review to resolved", from: StatusInReview, to: StatusResolved, want: true},
		{name: "pending straight to resolved", from: StatusPending, to: StatusResolved, want: true},
		{name: "resolved back to pending", from: StatusResolved, to: StatusPending, want: false},
		{name: "in_review back to pending", from: StatusInReview, to: StatusPending, want: false},
		{name: "no self transition", from: StatusPending, to: StatusPending, want: false},
		{name: "unknown target", from: StatusPending, to: Status("closed"), want: false},
		{name: "unknown source", from: Status("archived"), to: StatusResolved, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}
