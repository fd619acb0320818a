package report

import (
	"bytes"
	"fmt"
	"time"

	"transcript-request-service/internal/model"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Requests"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	timeLayout = "2006-01-02 15:04:05"
)

var Columns = []string{
	"request_id",
	"tracking_id",
	"document_id",
	"status",
	"status_message",
	"student_name",
	"student_email",
	"school_name",
	"destination_school",
	"destination_ceeb",
	"document_type",
	"created_at",
	"updated_at",
}

// Writer renders transcript requests into a single-sheet workbook.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Write returns the workbook bytes. An empty slice still yields the header row.
func (w *Writer) Write(requests []model.TranscriptRequest) (*bytes.Buffer, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	style, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(Columns))
		_ = file.SetCellStyle(SheetName, "A1", lastCol+"1", style)
	}

	for i := range requests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := toRow(&requests[i])
		if err := file.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf, nil
}

func toRow(r *model.TranscriptRequest) []interface{} {
	return []interface{}{
		r.ID,
		model.Deref(r.RequestTrackingID),
		model.Deref(r.ExternalDocumentID),
		string(r.Status),
		model.Deref(r.StatusMessage),
		r.StudentFullName(),
		r.StudentEmail,
		r.SchoolName,
		r.DestinationSchool,
		r.DestinationCEEB,
		r.DocumentType,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// ExportFileName names an on-demand export generated at the given time.
func ExportFileName(at time.Time) string {
	return "transcript-requests-" + at.UTC().Format("20060102-150405") + ".xlsx"
}

// DayStamp is the date part of daily report keys.
func DayStamp(at time.Time) string {
	return at.Format("20060102")
}
