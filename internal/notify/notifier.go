package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"transcript-request-service/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Confirmation carries what both emails show about one request.
type Confirmation struct {
	RequestID         string
	TrackingID        string
	StudentName       string
	StudentEmail      string
	SchoolName        string
	DestinationSchool string
	DocumentType      string
	SubmittedDate     string
}

func NewConfirmation(req *model.TranscriptRequest) Confirmation {
	return Confirmation{
		RequestID:         req.ID,
		TrackingID:        model.Deref(req.RequestTrackingID),
		StudentName:       req.StudentFullName(),
		StudentEmail:      req.StudentEmail,
		SchoolName:        req.SchoolName,
		DestinationSchool: req.DestinationSchool,
		DocumentType:      req.DocumentType,
		SubmittedDate:     req.CreatedAt.Format("January 2, 2006"),
	}
}

// Notifier sends the student confirmation and the registrar notice. Callers
// treat every error as non-fatal.
type Notifier interface {
	SendConfirmation(ctx context.Context, c Confirmation, pdf []byte) error
	SendSchoolNotification(ctx context.Context, to string, c Confirmation) error
	Mode() string
}

type templateData struct {
	Confirmation
	Brand string
	Year  int
}

func render(name string, c Confirmation, brand string) (string, error) {
	var buf bytes.Buffer
	data := templateData{Confirmation: c, Brand: brand, Year: time.Now().Year()}
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func confirmationSubject(c Confirmation) string {
	return "Transcript Request Confirmation - " + c.RequestID
}

func schoolSubject(c Confirmation) string {
	return "New Transcript Request - " + c.StudentName
}

func attachmentName(c Confirmation) string {
	return "transcript-request-" + c.RequestID + ".pdf"
}
