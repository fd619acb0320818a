package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorsKeepsFirstMessage(t *testing.T) {
	verr := NewValidationErrors()
	verr.Add("studentEmail", "Valid email is required")
	verr.Add("studentEmail", "Email must be 100 characters or less")
	verr.Add("consentGiven", "You must give consent to proceed")

	assert.Equal(t, 2, verr.Len())
	assert.Equal(t, "Valid email is required", verr.Fields["studentEmail"])
	assert.Equal(t,
		"validation failed: consentGiven: You must give consent to proceed; studentEmail: Valid email is required",
		verr.Error())
}

func TestRetryableDetection(t *testing.T) {
	base := stderrors.New("connection reset")
	wrapped := fmt.Errorf("post callback: %w", NewRetryableError(base, "HTTP request failed"))

	assert.True(t, IsRetryable(wrapped))
	assert.ErrorIs(t, wrapped, base)
	assert.False(t, IsRetryable(base))
}

func TestDeliveryErrorUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("submit: %w", &DeliveryError{RequestID: "abc", Err: cause})

	var derr *DeliveryError
	assert.True(t, stderrors.As(err, &derr))
	assert.Equal(t, "abc", derr.RequestID)
	assert.ErrorIs(t, err, cause)
}
