package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"transcript-request-service/internal/model"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConfirmation() Confirmation {
	middle := "Q"
	tracking := "REQ-42"
	return NewConfirmation(&model.TranscriptRequest{
		ID:                "req-42",
		StudentFirstName:  "Jane",
		StudentMiddleName: &middle,
		StudentLastName:   "Doe",
		StudentEmail:      "jane@example.com",
		SchoolName:        "Central High",
		DestinationSchool: "State University",
		DocumentType:      model.DefaultDocumentType,
		RequestTrackingID: &tracking,
		CreatedAt:         time.Date(2026, time.October, 18, 10, 0, 0, 0, time.UTC),
	})
}

func TestNewConfirmation(t *testing.T) {
	c := sampleConfirmation()
	assert.Equal(t, "Jane Q Doe", c.StudentName)
	assert.Equal(t, "REQ-42", c.TrackingID)
	assert.Equal(t, "October 18, 2026", c.SubmittedDate)
	assert.Equal(t, "Transcript Request Confirmation - req-42", confirmationSubject(c))
	assert.Equal(t, "New Transcript Request - Jane Q Doe", schoolSubject(c))
	assert.Equal(t, "transcript-request-req-42.pdf", attachmentName(c))
}

func TestRenderTemplatesEscapeInput(t *testing.T) {
	c := sampleConfirmation()
	c.StudentName = `<script>alert("x")</script>`

	html, err := render("confirmation.html", c, "Transcript Request Service")
	require.NoError(t, err)
	assert.Contains(t, html, "req-42")
	assert.Contains(t, html, "REQ-42")
	assert.Contains(t, html, "State University")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")

	html, err = render("school_notification.html", c, "Transcript Request Service")
	require.NoError(t, err)
	assert.Contains(t, html, "jane@example.com")
	assert.Contains(t, html, "Central High")
}

func newTestResendClient(t *testing.T, handler http.HandlerFunc) *resend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := resend.NewClient("re_test_key")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return client
}

func TestResendSendConfirmationAttachesPDF(t *testing.T) {
	var captured map[string]interface{}
	client := newTestResendClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test_key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	})

	n := NewResendNotifier(client, "onboarding@resend.dev", "Transcript Request Service")
	require.NoError(t, n.SendConfirmation(context.Background(), sampleConfirmation(), []byte("%PDF-1.3")))

	assert.Equal(t, "onboarding@resend.dev", captured["from"])
	assert.Equal(t, []interface{}{"jane@example.com"}, captured["to"])
	assert.Equal(t, "Transcript Request Confirmation - req-42", captured["subject"])

	attachments, ok := captured["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	assert.Equal(t, "transcript-request-req-42.pdf", attachments[0].(map[string]interface{})["filename"])
}

func TestResendSendSchoolNotificationError(t *testing.T) {
	client := newTestResendClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	})

	n := NewResendNotifier(client, "Transcripts <transcripts@example.com>", "Transcript Request Service")
	err := n.SendSchoolNotification(context.Background(), "registrar@example.org", sampleConfirmation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "req-42")
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier()
	assert.NoError(t, n.SendConfirmation(context.Background(), sampleConfirmation(), nil))
	assert.NoError(t, n.SendSchoolNotification(context.Background(), "registrar@example.org", sampleConfirmation()))
	assert.Equal(t, "simulated", n.Mode())
}
