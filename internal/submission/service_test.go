package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"transcript-request-service/internal/document"
	"transcript-request-service/internal/model"
	"transcript-request-service/internal/submission/submissiontest"
	"transcript-request-service/internal/validation"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedNow = time.Date(2026, time.October, 18, 15, 4, 5, 0, time.UTC)

type fixture struct {
	repo      *submissiontest.Repository
	deliverer *submissiontest.Deliverer
	notifier  *submissiontest.Notifier
	storage   *submissiontest.Storage
	publisher *submissiontest.Publisher
	service   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }

	f := &fixture{
		repo:      submissiontest.NewRepository(),
		deliverer: &submissiontest.Deliverer{},
		notifier:  &submissiontest.Notifier{},
		storage:   &submissiontest.Storage{},
		publisher: &submissiontest.Publisher{},
	}
	f.service = NewService(Dependencies{
		Validator:   validation.NewValidator(validation.WithClock(clock)),
		Renderer:    document.NewGenerator(document.WithClock(clock)),
		Repo:        f.repo,
		Deliverer:   f.deliverer,
		Notifier:    f.notifier,
		Storage:     f.storage,
		Publisher:   f.publisher,
		Environment: "test",
	},
		WithClock(clock),
		WithIDSource(func() string { return "11111111-2222-3333-4444-555555555555" }),
	)
	return f
}

func payload(t *testing.T, overrides map[string]interface{}) []byte {
	t.Helper()
	p := map[string]interface{}{
		"studentFirstName":    "Jane",
		"studentLastName":     "Doe",
		"studentEmail":        "jane@example.com",
		"studentDob":          "2006-05-14",
		"schoolName":          "Central High",
		"schoolEmail":         "registrar@central.example.org",
		"destinationSchool":   "State University",
		"destinationCeeb":     "123456",
		"ferpaDisclosureRead": true,
		"consentGiven":        true,
		"mfcLiabilityAgreed":  true,
	}
	for k, v := range overrides {
		if v == nil {
			delete(p, k)
			continue
		}
		p[k] = v
	}
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return b
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{IPAddress: "203.0.113.7"})
	require.NoError(t, err)

	assert.Equal(t, "11111111-2222-3333-4444-555555555555", result.RequestID)
	assert.Equal(t, model.StatusProcessing, result.Status)
	assert.Equal(t, MessageSubmitted, result.Message)
	assert.NotEmpty(t, result.DocumentID)

	stored, err := f.repo.GetByID(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, stored.Status)
	assert.Equal(t, "XML uploaded to "+result.RemotePath, model.Deref(stored.StatusMessage))
	assert.Equal(t, "203.0.113.7", model.Deref(stored.IPAddress))
	assert.Equal(t, result.DocumentID, model.Deref(stored.ExternalDocumentID))
	assert.Contains(t, stored.RequestXML, "<CEEBACT>123456</CEEBACT>")

	require.Len(t, f.deliverer.Files, 1)
	assert.Equal(t, stored.RequestXML, string(f.deliverer.Files[result.RemotePath]))

	require.Len(t, f.notifier.Confirmations, 1)
	assert.Equal(t, "jane@example.com", f.notifier.Confirmations[0].StudentEmail)
	assert.Equal(t, []string{"registrar@central.example.org"}, f.notifier.SchoolNotices)

	assert.Contains(t, f.storage.Objects, "receipts/"+result.RequestID+".pdf")
	assert.Contains(t, f.storage.Objects, "requests/"+result.RequestID+".xml")
	assert.Empty(t, f.publisher.Events)
}

func TestSubmitMissingConsentPersistsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), payload(t, map[string]interface{}{"consentGiven": nil}), model.ClientInfo{})

	var verr *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "consentGiven")
	assert.Zero(t, f.repo.Len())
	assert.Empty(t, f.notifier.Confirmations)
}

func TestSubmitRejectsShortDestinationCode(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), payload(t, map[string]interface{}{"destinationCeeb": "12345"}), model.ClientInfo{})

	var verr *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "destinationCeeb")
	assert.Zero(t, f.repo.Len())
	assert.Empty(t, f.deliverer.Files)
}

func TestSubmitDeliveryFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.deliverer.Err = errors.New("dial tcp: connection refused")

	result, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})

	var derr *apperrors.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, result.RequestID, derr.RequestID)
	assert.Equal(t, model.StatusFailed, result.Status)

	stored, err := f.repo.GetByID(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
	assert.Equal(t, "SFTP upload failed: dial tcp: connection refused", model.Deref(stored.StatusMessage))
	// Notification still went out before delivery.
	assert.Len(t, f.notifier.Confirmations, 1)
}

func TestSubmitNotificationFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.notifier.Err = errors.New("resend: 500")

	result, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, result.Status)
}

func TestSubmitPersistFailureSkipsDelivery(t *testing.T) {
	f := newFixture(t)
	f.repo.CreateErr = errors.New("too many connections")

	_, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist request")
	assert.Empty(t, f.deliverer.Files)
	assert.Empty(t, f.notifier.Confirmations)
}

func TestSubmitStatusUpdateFailureCarriesRequestID(t *testing.T) {
	f := newFixture(t)
	f.repo.UpdateErr = errors.New("lock wait timeout")

	result, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})

	var serr *apperrors.StatusUpdateError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, result.RequestID, serr.RequestID)
}

func TestSubmitPublishesEventForCallback(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Submit(context.Background(),
		payload(t, map[string]interface{}{"callbackUrl": "https://partner.example.com/hooks/transcripts"}),
		model.ClientInfo{Partner: true})
	require.NoError(t, err)

	require.Len(t, f.publisher.Events, 1)
	event := f.publisher.Events[0]
	assert.Equal(t, result.RequestID, event.RequestID)
	assert.Equal(t, model.StatusProcessing, event.Status)
	assert.Equal(t, "https://partner.example.com/hooks/transcripts", event.CallbackURL)
	assert.Equal(t, fixedNow, event.OccurredAt)
}

func TestSubmitIgnoresCallbackFromAnonymousClient(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.Submit(context.Background(),
		payload(t, map[string]interface{}{"callbackUrl": "http://169.254.169.254/latest/meta-data"}),
		model.ClientInfo{IPAddress: "198.51.100.4"})
	require.NoError(t, err)

	assert.Equal(t, model.StatusProcessing, result.Status)
	assert.Empty(t, f.publisher.Events)
}

func TestSubmitSurvivesCancelAfterUpload(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.deliverer.AfterDeliver = cancel

	result, err := f.service.Submit(ctx,
		payload(t, map[string]interface{}{"callbackUrl": "https://partner.example.com/hooks/transcripts"}),
		model.ClientInfo{Partner: true})
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	assert.Len(t, f.deliverer.Files, 1)
	stored, err := f.repo.GetByID(context.Background(), result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, stored.Status)
	assert.Len(t, f.publisher.Events, 1)
}

func TestMarkDelivered(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})
	require.NoError(t, err)

	req, err := f.service.MarkDelivered(context.Background(), result.RequestID, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, req.Status)
	assert.Equal(t, DefaultDeliveryMessage, model.Deref(req.StatusMessage))

	_, err = f.service.MarkDelivered(context.Background(), result.RequestID, "again")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)

	_, err = f.service.MarkDelivered(context.Background(), "missing", "")
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}

func TestReceipt(t *testing.T) {
	f := newFixture(t)
	result, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})
	require.NoError(t, err)

	rc, err := f.service.Receipt(context.Background(), result.RequestID)
	require.NoError(t, err)
	defer rc.Close()
	pdf, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))

	_, err = f.service.Receipt(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Submit(context.Background(), payload(t, nil), model.ClientInfo{})
	require.NoError(t, err)

	buf, name, err := f.service.Export(context.Background(), model.ListFilter{Statuses: []model.Status{model.StatusProcessing}})
	require.NoError(t, err)
	assert.Equal(t, "transcript-requests-20261018-150405.xlsx", name)

	file, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer file.Close()
	rows, err := file.GetRows("Requests")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	report := f.service.Health(context.Background())
	assert.True(t, report.Healthy())
	assert.Equal(t, "simulated", report.Checks.Mode)
	assert.Equal(t, "test", report.Environment)

	f.deliverer.Live = true
	f.deliverer.CheckErr = errors.New("handshake failed")
	report = f.service.Health(context.Background())
	assert.False(t, report.Healthy())
	assert.Equal(t, "ok", report.Checks.Database)
	assert.Equal(t, "failed", report.Checks.Delivery)

	f.repo.PingErr = errors.New("gone")
	report = f.service.Health(context.Background())
	assert.Equal(t, "failed", report.Checks.Database)
}
