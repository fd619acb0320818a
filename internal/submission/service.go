package submission

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"transcript-request-service/internal/db"
	"transcript-request-service/internal/delivery"
	"transcript-request-service/internal/document"
	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/metrics"
	"transcript-request-service/internal/model"
	"transcript-request-service/internal/notify"
	"transcript-request-service/internal/queue"
	"transcript-request-service/internal/report"
	"transcript-request-service/internal/storage"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	MessageSubmitted       = "Transcript request submitted successfully"
	MessageUploadFailed    = "Failed to upload transcript request to processing system"
	DefaultDeliveryMessage = "Delivery confirmed by receiving institution"

	checkOK     = "ok"
	checkFailed = "failed"
)

type Validator interface {
	Validate(body []byte) (*model.TranscriptRequestData, error)
}

type Renderer interface {
	RenderXML(data *model.TranscriptRequestData) (*document.XMLDocument, error)
	RenderPDF(data *model.TranscriptRequestData, requestID string) ([]byte, error)
}

// Dependencies are the process-wide collaborators built once at startup.
type Dependencies struct {
	Validator   Validator
	Renderer    Renderer
	Repo        db.Repository
	Deliverer   delivery.Deliverer
	Notifier    notify.Notifier
	Storage     storage.Storage
	Publisher   queue.EventPublisher
	Environment string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithIDSource(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// Service runs the submission pipeline and the read-side operations of the
// partner API.
type Service struct {
	deps   Dependencies
	writer *report.Writer
	now    func() time.Time
	newID  func() string
	log    zerolog.Logger
}

func NewService(deps Dependencies, opts ...Option) *Service {
	if deps.Storage == nil {
		deps.Storage = storage.NewNoopStorage()
	}
	if deps.Publisher == nil {
		deps.Publisher = queue.NoopProducer{}
	}

	s := &Service{
		deps:   deps,
		writer: report.NewWriter(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		log:    logger.Component("submission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates, renders, persists and delivers one request. On delivery
// failure the result is still returned alongside an *errors.DeliveryError.
func (s *Service) Submit(ctx context.Context, body []byte, client model.ClientInfo) (*model.SubmitResult, error) {
	started := time.Now()

	// Validate input
	data, err := s.deps.Validator.Validate(body)
	if err != nil {
		metrics.ObserveSubmission(metrics.OutcomeInvalid, started)
		return nil, err
	}

	requestID := s.newID()
	log := s.log.With().Str("request_id", requestID).Logger()

	// Callbacks carry the partner secret, so anonymous submitters cannot set one.
	if data.CallbackURL != "" && !client.Partner {
		log.Warn().Msg("Ignoring callback URL on unauthenticated submission")
		data.CallbackURL = ""
	}

	// Render documents
	doc, err := s.deps.Renderer.RenderXML(data)
	if err != nil {
		metrics.ObserveSubmission(metrics.OutcomeRenderFailed, started)
		return nil, renderingError("xml", err)
	}
	pdf, err := s.deps.Renderer.RenderPDF(data, requestID)
	if err != nil {
		metrics.ObserveSubmission(metrics.OutcomeRenderFailed, started)
		return nil, renderingError("pdf", err)
	}

	// Persist initial record
	req := model.NewTranscriptRequest(requestID, data, string(doc.XML), doc.TrackingID, doc.DocumentID, client, s.now())
	if err := s.deps.Repo.Create(ctx, req); err != nil {
		metrics.ObserveSubmission(metrics.OutcomePersistFailed, started)
		return nil, fmt.Errorf("persist request: %w", err)
	}
	log.Info().Str("document_id", doc.DocumentID).Msg("Transcript request persisted")

	// The row exists now; a client hang-up must not strand it in submitted.
	ctx = context.WithoutCancel(ctx)

	// Best-effort side effects
	s.notify(ctx, log, req, pdf)
	s.archive(ctx, log, requestID, doc.XML, pdf)

	// Deliver
	remotePath, deliverErr := s.deps.Deliverer.Deliver(ctx, doc.XML, doc.FileName)
	metrics.ObserveDelivery(s.deps.Deliverer.Mode(), deliverErr)

	result := &model.SubmitResult{
		RequestID:  requestID,
		DocumentID: doc.DocumentID,
		RemotePath: remotePath,
	}

	status, message := model.StatusProcessing, "XML uploaded to "+remotePath
	if deliverErr != nil {
		status, message = model.StatusFailed, "SFTP upload failed: "+deliverErr.Error()
		log.Error().Err(deliverErr).Msg("Delivery failed")
	}
	result.Status = status

	// Record outcome
	updateErr := s.deps.Repo.UpdateStatus(ctx, requestID, status, message)
	if updateErr != nil {
		log.Error().Err(updateErr).Str("status", string(status)).Msg("Failed to record delivery outcome")
	} else {
		s.publish(ctx, log, req, data.CallbackURL, status, message)
	}

	switch {
	case deliverErr != nil:
		metrics.ObserveSubmission(metrics.OutcomeDeliveryFailed, started)
		result.Message = MessageUploadFailed
		return result, &apperrors.DeliveryError{RequestID: requestID, Err: deliverErr}
	case updateErr != nil:
		metrics.ObserveSubmission(metrics.OutcomeStatusFailed, started)
		return result, &apperrors.StatusUpdateError{RequestID: requestID, Err: updateErr}
	}

	metrics.ObserveSubmission(metrics.OutcomeSubmitted, started)
	result.Message = MessageSubmitted
	log.Info().Str("remote_path", remotePath).Msg("Transcript request delivered")
	return result, nil
}

func renderingError(kind string, err error) error {
	if errors.Is(err, apperrors.ErrRendering) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrRendering, kind, err)
}

func (s *Service) notify(ctx context.Context, log zerolog.Logger, req *model.TranscriptRequest, pdf []byte) {
	confirmation := notify.NewConfirmation(req)

	err := s.deps.Notifier.SendConfirmation(ctx, confirmation, pdf)
	metrics.ObserveNotification("confirmation", err)
	if err != nil {
		log.Warn().Err(err).Msg("Confirmation email failed")
	}

	if req.SchoolEmail == nil {
		return
	}
	err = s.deps.Notifier.SendSchoolNotification(ctx, *req.SchoolEmail, confirmation)
	metrics.ObserveNotification("school", err)
	if err != nil {
		log.Warn().Err(err).Msg("School notification failed")
	}
}

func (s *Service) archive(ctx context.Context, log zerolog.Logger, requestID string, xml, pdf []byte) {
	if err := s.deps.Storage.Upload(ctx, storage.ReceiptKey(requestID), bytes.NewReader(pdf), "application/pdf"); err != nil {
		log.Warn().Err(err).Msg("Failed to archive receipt")
	}
	if err := s.deps.Storage.Upload(ctx, storage.RequestXMLKey(requestID), bytes.NewReader(xml), "application/xml"); err != nil {
		log.Warn().Err(err).Msg("Failed to archive request XML")
	}
}

func (s *Service) publish(ctx context.Context, log zerolog.Logger, req *model.TranscriptRequest, callbackURL string, status model.Status, message string) {
	if callbackURL == "" {
		return
	}
	event := model.StatusEvent{
		RequestID:     req.ID,
		TrackingID:    model.Deref(req.RequestTrackingID),
		DocumentID:    model.Deref(req.ExternalDocumentID),
		Status:        status,
		StatusMessage: message,
		CallbackURL:   callbackURL,
		OccurredAt:    s.now(),
	}
	if err := s.deps.Publisher.PublishStatusEvent(ctx, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish status event")
	}
}

func (s *Service) Status(ctx context.Context, requestID string) (*model.TranscriptRequest, error) {
	return s.deps.Repo.GetByID(ctx, requestID)
}

// MarkDelivered records the receiving institution's confirmation. Only a
// request in processing can become delivered.
func (s *Service) MarkDelivered(ctx context.Context, requestID, message string) (*model.TranscriptRequest, error) {
	if message == "" {
		message = DefaultDeliveryMessage
	}
	if err := s.deps.Repo.UpdateStatus(ctx, requestID, model.StatusDelivered, message); err != nil {
		return nil, err
	}
	s.log.Info().Str("request_id", requestID).Msg("Delivery confirmed")
	return s.deps.Repo.GetByID(ctx, requestID)
}

// Export renders the requests matching filter as a spreadsheet.
func (s *Service) Export(ctx context.Context, filter model.ListFilter) (*bytes.Buffer, string, error) {
	requests, err := s.deps.Repo.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	buf, err := s.writer.Write(requests)
	if err != nil {
		return nil, "", err
	}
	return buf, report.ExportFileName(s.now()), nil
}

// Receipt opens the archived PDF of an existing request.
func (s *Service) Receipt(ctx context.Context, requestID string) (io.ReadCloser, error) {
	if _, err := s.deps.Repo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.deps.Storage.Download(ctx, storage.ReceiptKey(requestID))
}

// Health pings the database and, in live mode, the delivery endpoint.
// Simulated delivery always counts as healthy.
func (s *Service) Health(ctx context.Context) model.HealthReport {
	health := model.HealthReport{
		Status:      "healthy",
		Timestamp:   s.now(),
		Environment: s.deps.Environment,
		Checks: model.HealthChecks{
			Database: checkOK,
			Delivery: checkOK,
			Mode:     s.deps.Deliverer.Mode(),
		},
	}

	if err := s.deps.Repo.Ping(ctx); err != nil {
		s.log.Error().Err(err).Msg("Database health check failed")
		health.Checks.Database = checkFailed
		health.Status = "unhealthy"
	}

	if s.deps.Deliverer.Mode() == delivery.ModeLive {
		if err := s.deps.Deliverer.Check(ctx); err != nil {
			s.log.Error().Err(err).Msg("Delivery health check failed")
			health.Checks.Delivery = checkFailed
			health.Status = "unhealthy"
		}
	}
	return health
}
