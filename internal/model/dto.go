package model

import "time"

// SubmissionPayload is the JSON body accepted by the submit endpoints.
// Booleans are pointers so an omitted flag can be told apart from false.
type SubmissionPayload struct {
	StudentFirstName  string `json:"studentFirstName" validate:"required,max=50"`
	StudentLastName   string `json:"studentLastName" validate:"required,max=50"`
	StudentMiddleName string `json:"studentMiddleName" validate:"omitempty,max=50"`
	StudentEmail      string `json:"studentEmail" validate:"required,email,max=100"`
	StudentDOB        string `json:"studentDob" validate:"required,isodate,studentage"`
	StudentPartialSSN string `json:"studentPartialSsn" validate:"omitempty,ssn4"`

	SchoolName    string `json:"schoolName" validate:"required,max=100"`
	SchoolCEEB    string `json:"schoolCeeb" validate:"omitempty,ceeb"`
	SchoolAddress string `json:"schoolAddress" validate:"omitempty,max=100"`
	SchoolCity    string `json:"schoolCity" validate:"omitempty,max=50"`
	SchoolState   string `json:"schoolState" validate:"omitempty,len=2"`
	SchoolZip     string `json:"schoolZip" validate:"omitempty,zipcode"`
	SchoolPhone   string `json:"schoolPhone" validate:"omitempty,usphone"`
	SchoolEmail   string `json:"schoolEmail" validate:"omitempty,email,max=100"`

	EnrollDate        string `json:"enrollDate" validate:"omitempty,isodate"`
	ExitDate          string `json:"exitDate" validate:"omitempty,isodate"`
	CurrentEnrollment *bool  `json:"currentEnrollment"`
	GraduationDate    string `json:"graduationDate" validate:"omitempty,isodate"`

	DestinationSchool  string `json:"destinationSchool" validate:"required,max=100"`
	DestinationCEEB    string `json:"destinationCeeb" validate:"required,ceeb"`
	DestinationAddress string `json:"destinationAddress" validate:"omitempty,max=100"`
	DestinationCity    string `json:"destinationCity" validate:"omitempty,max=50"`
	DestinationState   string `json:"destinationState" validate:"omitempty,len=2"`
	DestinationZip     string `json:"destinationZip" validate:"omitempty,zipcode"`

	DocumentType      string `json:"documentType" validate:"omitempty,doctype"`
	RequestTrackingID string `json:"requestTrackingId" validate:"omitempty,max=64"`

	FERPADisclosureRead  *bool `json:"ferpaDisclosureRead" validate:"required,accepted"`
	FERPADisclosureShown *bool `json:"ferpaDisclosureShown" validate:"-"`
	ConsentGiven         *bool `json:"consentGiven" validate:"required,accepted"`
	CertifyInformation   *bool `json:"certifyInformation" validate:"omitempty,accepted"`
	LiabilityAgreed      *bool `json:"mfcLiabilityAgreed" validate:"omitempty,accepted"`

	StudentSignature string `json:"studentSignature"`
	SignatureDate    string `json:"signatureDate" validate:"omitempty,isodate"`

	CallbackURL string `json:"callbackUrl" validate:"omitempty,url,max=2048"`
}

type SubmitResult struct {
	RequestID  string `json:"requestId"`
	DocumentID string `json:"documentId"`
	Status     Status `json:"status"`
	Message    string `json:"message"`
	RemotePath string `json:"-"`
}

type SubmitResponse struct {
	Success    bool   `json:"success"`
	RequestID  string `json:"requestId"`
	DocumentID string `json:"documentId"`
	Status     Status `json:"status"`
	Message    string `json:"message"`
}

type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

type StudentSummary struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type RequestStatusView struct {
	ID                 string         `json:"id"`
	TrackingID         *string        `json:"trackingId"`
	Status             Status         `json:"status"`
	StatusMessage      *string        `json:"statusMessage"`
	Student            StudentSummary `json:"student"`
	DestinationSchool  string         `json:"destinationSchool"`
	DocumentType       string         `json:"documentType"`
	SubmittedAt        time.Time      `json:"submittedAt"`
	LastUpdated        time.Time      `json:"lastUpdated"`
	ExternalDocumentID *string        `json:"externalDocumentId"`
}

type StatusResponse struct {
	Success bool              `json:"success"`
	Request RequestStatusView `json:"request"`
}

func NewRequestStatusView(r *TranscriptRequest) RequestStatusView {
	return RequestStatusView{
		ID:                 r.ID,
		TrackingID:         r.RequestTrackingID,
		Status:             r.Status,
		StatusMessage:      r.StatusMessage,
		Student:            StudentSummary{FirstName: r.StudentFirstName, LastName: r.StudentLastName},
		DestinationSchool:  r.DestinationSchool,
		DocumentType:       r.DocumentType,
		SubmittedAt:        r.CreatedAt,
		LastUpdated:        r.UpdatedAt,
		ExternalDocumentID: r.ExternalDocumentID,
	}
}

type ConfirmDeliveryRequest struct {
	Message string `json:"message" binding:"max=500"`
}

// StatusEvent is published after a request reaches its post-delivery status
// and forwarded to the submitter's callback URL.
type StatusEvent struct {
	RequestID     string    `json:"requestId"`
	TrackingID    string    `json:"trackingId,omitempty"`
	DocumentID    string    `json:"documentId,omitempty"`
	Status        Status    `json:"status"`
	StatusMessage string    `json:"statusMessage,omitempty"`
	CallbackURL   string    `json:"callbackUrl"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Delivery string `json:"sftp"`
	Mode     string `json:"mode"`
}

type HealthReport struct {
	Status      string       `json:"status"`
	Timestamp   time.Time    `json:"timestamp"`
	Checks      HealthChecks `json:"checks"`
	Environment string       `json:"environment"`
}

func (h HealthReport) Healthy() bool {
	return h.Status == "healthy"
}
