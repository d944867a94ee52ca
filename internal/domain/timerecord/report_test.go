package timerecord

import (
	"bytes"
	"testing"
	"time"

	"jornada/internal/domain/directory"
)

func TestRenderReportPDF(t *testing.T) {
	worker := &directory.Worker{FirstName: "Ana", LastName: "García", IDNumber: "12345678Z"}
	entryAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	duration := int64(28800)
	records := []TimeRecord{
		{CompanyName: "Acme Logistics", Type: TypeEntry, RecordedAt: entryAt, LocalTime: "2026-03-02T09:00:00Z"},
		{CompanyName: "Acme Logistics", Type: TypeExit, RecordedAt: entryAt.Add(8 * time.Hour), LocalTime: "2026-03-02T17:00:00Z", DurationSeconds: &duration},
	}

	out, err := RenderReportPDF(worker, entryAt, entryAt.AddDate(0, 0, 7), records)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0h 00m"},
		{59, "0h 00m"},
		{3600, "1h 00m"},
		{30600, "8h 30m"},
		{90000, "25h 00m"},
	}
	for _, tc := range tests {
		if got := formatDuration(tc.seconds); got != tc.want {
			t.Fatalf("formatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
