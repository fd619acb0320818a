package model

import (
	"strings"
	"time"
)

const (
	DefaultDocumentType         = "Transcript - Final"
	ReleaseMethodElectronicSign = "ElectronicSignature"
	DateLayout                  = "2006-01-02"
)

var DocumentTypes = []string{
	"Transcript",
	"Transcript - Final",
	"Transcript - Initial",
	"Transcript - Midyear",
	"Transcript - Optional",
}

// TranscriptRequestData is a validated submission. Empty strings mean the
// optional field was not supplied.
type TranscriptRequestData struct {
	StudentFirstName  string
	StudentLastName   string
	StudentMiddleName string
	StudentEmail      string
	StudentDOB        string
	StudentPartialSSN string

	SchoolName    string
	SchoolCEEB    string
	SchoolAddress string
	SchoolCity    string
	SchoolState   string
	SchoolZip     string
	SchoolPhone   string
	SchoolEmail   string

	EnrollDate        string
	ExitDate          string
	CurrentEnrollment bool
	GraduationDate    string

	DestinationSchool  string
	DestinationCEEB    string
	DestinationAddress string
	DestinationCity    string
	DestinationState   string
	DestinationZip     string

	DocumentType      string
	RequestTrackingID string

	FERPADisclosureRead bool
	ConsentGiven        bool
	// nil when the form did not present the statement
	LiabilityAgreed    *bool
	CertifyInformation *bool

	StudentSignature string
	SignatureDate    string

	CallbackURL string
	SubmittedAt time.Time
}

func (d *TranscriptRequestData) StudentFullName() string {
	parts := []string{d.StudentFirstName}
	if d.StudentMiddleName != "" {
		parts = append(parts, d.StudentMiddleName)
	}
	parts = append(parts, d.StudentLastName)
	return strings.Join(parts, " ")
}

// TranscriptRequest is one row of transcript_requests.
type TranscriptRequest struct {
	ID string `json:"id" db:"id"`

	StudentFirstName  string  `json:"student_first_name" db:"student_first_name"`
	StudentLastName   string  `json:"student_last_name" db:"student_last_name"`
	StudentMiddleName *string `json:"student_middle_name,omitempty" db:"student_middle_name"`
	StudentEmail      string  `json:"student_email" db:"student_email"`
	StudentDOB        string  `json:"student_dob" db:"student_dob"`
	StudentPartialSSN *string `json:"-" db:"student_partial_ssn"`

	SchoolName    string  `json:"school_name" db:"school_name"`
	SchoolCEEB    *string `json:"school_ceeb,omitempty" db:"school_ceeb"`
	SchoolAddress *string `json:"school_address,omitempty" db:"school_address"`
	SchoolCity    *string `json:"school_city,omitempty" db:"school_city"`
	SchoolState   *string `json:"school_state,omitempty" db:"school_state"`
	SchoolZip     *string `json:"school_zip,omitempty" db:"school_zip"`
	SchoolPhone   *string `json:"school_phone,omitempty" db:"school_phone"`
	SchoolEmail   *string `json:"school_email,omitempty" db:"school_email"`

	EnrollDate        *string `json:"enroll_date,omitempty" db:"enroll_date"`
	ExitDate          *string `json:"exit_date,omitempty" db:"exit_date"`
	CurrentEnrollment bool    `json:"current_enrollment" db:"current_enrollment"`
	GraduationDate    *string `json:"graduation_date,omitempty" db:"graduation_date"`

	DestinationSchool  string  `json:"destination_school" db:"destination_school"`
	DestinationCEEB    string  `json:"destination_ceeb" db:"destination_ceeb"`
	DestinationAddress *string `json:"destination_address,omitempty" db:"destination_address"`
	DestinationCity    *string `json:"destination_city,omitempty" db:"destination_city"`
	DestinationState   *string `json:"destination_state,omitempty" db:"destination_state"`
	DestinationZip     *string `json:"destination_zip,omitempty" db:"destination_zip"`

	DocumentType       string  `json:"document_type" db:"document_type"`
	RequestTrackingID  *string `json:"request_tracking_id,omitempty" db:"request_tracking_id"`
	ExternalDocumentID *string `json:"external_document_id,omitempty" db:"parchment_document_id"`

	ConsentGiven            bool      `json:"consent_given" db:"consent_given"`
	ConsentTimestamp        time.Time `json:"consent_timestamp" db:"consent_timestamp"`
	FERPADisclosureShown    bool      `json:"ferpa_disclosure_shown" db:"ferpa_disclosure_shown"`
	LiabilityAgreed         bool      `json:"liability_agreed" db:"mfc_liability_agreed"`
	ReleaseAuthorizedMethod string    `json:"release_authorized_method" db:"release_authorized_method"`

	StudentSignature string `json:"-" db:"student_signature"`
	SignatureDate    string `json:"signature_date" db:"signature_date"`

	RequestXML string `json:"-" db:"request_xml"`

	Status        Status    `json:"status" db:"status"`
	StatusMessage *string   `json:"status_message,omitempty" db:"status_message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	IPAddress     *string   `json:"-" db:"ip_address"`
	UserAgent     *string   `json:"-" db:"user_agent"`
}

// ClientInfo is what the HTTP layer knows about the submitter. Partner is
// set only for callers that passed API key authentication.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	Partner   bool
}

// NewTranscriptRequest builds the row inserted for a validated submission.
// The tracking and document ids come from the rendered XML.
func NewTranscriptRequest(id string, data *TranscriptRequestData, requestXML, trackingID, documentID string, client ClientInfo, now time.Time) *TranscriptRequest {
	liability := false
	if data.LiabilityAgreed != nil {
		liability = *data.LiabilityAgreed
	}

	return &TranscriptRequest{
		ID:                      id,
		StudentFirstName:        data.StudentFirstName,
		StudentLastName:         data.StudentLastName,
		StudentMiddleName:       optional(data.StudentMiddleName),
		StudentEmail:            data.StudentEmail,
		StudentDOB:              data.StudentDOB,
		StudentPartialSSN:       optional(data.StudentPartialSSN),
		SchoolName:              data.SchoolName,
		SchoolCEEB:              optional(data.SchoolCEEB),
		SchoolAddress:           optional(data.SchoolAddress),
		SchoolCity:              optional(data.SchoolCity),
		SchoolState:             optional(data.SchoolState),
		SchoolZip:               optional(data.SchoolZip),
		SchoolPhone:             optional(data.SchoolPhone),
		SchoolEmail:             optional(data.SchoolEmail),
		EnrollDate:              optional(data.EnrollDate),
		ExitDate:                optional(data.ExitDate),
		CurrentEnrollment:       data.CurrentEnrollment,
		GraduationDate:          optional(data.GraduationDate),
		DestinationSchool:       data.DestinationSchool,
		DestinationCEEB:         data.DestinationCEEB,
		DestinationAddress:      optional(data.DestinationAddress),
		DestinationCity:         optional(data.DestinationCity),
		DestinationState:        optional(data.DestinationState),
		DestinationZip:          optional(data.DestinationZip),
		DocumentType:            data.DocumentType,
		RequestTrackingID:       optional(trackingID),
		ExternalDocumentID:      optional(documentID),
		ConsentGiven:            data.ConsentGiven,
		ConsentTimestamp:        now,
		FERPADisclosureShown:    data.FERPADisclosureRead,
		LiabilityAgreed:         liability,
		ReleaseAuthorizedMethod: ReleaseMethodElectronicSign,
		StudentSignature:        data.StudentSignature,
		SignatureDate:           data.SignatureDate,
		RequestXML:              requestXML,
		Status:                  StatusSubmitted,
		CreatedAt:               now,
		UpdatedAt:               now,
		IPAddress:               optional(client.IPAddress),
		UserAgent:               optional(client.UserAgent),
	}
}

func (r *TranscriptRequest) StudentFullName() string {
	parts := []string{r.StudentFirstName}
	if r.StudentMiddleName != nil {
		parts = append(parts, *r.StudentMiddleName)
	}
	parts = append(parts, r.StudentLastName)
	return strings.Join(parts, " ")
}

// ListFilter narrows List queries. Zero values mean no constraint.
type ListFilter struct {
	Statuses      []Status
	CreatedAfter  time.Time
	CreatedBefore time.Time
	UpdatedBefore time.Time
	Limit         int
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
