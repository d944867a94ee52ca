package timerecord

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"jornada/internal/domain/directory"
)

// RenderReportPDF produces an audit export of a worker's records for a date
// range. Timestamps are printed in the stored local representation so the
// report matches what the worker saw when clocking.
func RenderReportPDF(worker *directory.Worker, from, to time.Time, records []TimeRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Time Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Worker: %s (%s)", worker.FullName(), worker.IDNumber))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(55, 7, "Timestamp", "1", 0, "", false, 0, "")
	pdf.CellFormat(55, 7, "Company", "1", 0, "", false, 0, "")
	pdf.CellFormat(20, 7, "Type", "1", 0, "", false, 0, "")
	pdf.CellFormat(30, 7, "Duration", "1", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	var totalSeconds int64
	for _, rec := range records {
		duration := ""
		if rec.DurationSeconds != nil {
			totalSeconds += *rec.DurationSeconds
			duration = formatDuration(*rec.DurationSeconds)
		}
		pdf.CellFormat(55, 7, rec.LocalTime, "1", 0, "", false, 0, "")
		pdf.CellFormat(55, 7, rec.CompanyName, "1", 0, "", false, 0, "")
		pdf.CellFormat(20, 7, string(rec.Type), "1", 0, "", false, 0, "")
		pdf.CellFormat(30, 7, duration, "1", 1, "", false, 0, "")
	}

	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Total worked: %s", formatDuration(totalSeconds)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %02dm", hours, minutes)
}
