package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrRequestNotFound         = errors.New("transcript request not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrRendering               = errors.New("document rendering failed")
	ErrObjectNotFound          = errors.New("object not found")
	ErrCallbackRejected        = errors.New("callback rejected")
	ErrInvalidConfig           = errors.New("invalid configuration")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// ValidationErrors collects every failed field of one payload, keyed by the
// JSON field name.
type ValidationErrors struct {
	Fields map[string]string
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Fields: make(map[string]string)}
}

// Add keeps the first message recorded for a field.
func (e *ValidationErrors) Add(field, message string) {
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

func (e *ValidationErrors) Len() int {
	return len(e.Fields)
}

func (e *ValidationErrors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

func IsRetryable(err error) bool {
	var re RetryableError
	return errors.As(err, &re)
}

// DeliveryError reports a failed hand-off of a request that was already
// persisted, so callers can still reference it.
type DeliveryError struct {
	RequestID string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of request %s failed: %s", e.RequestID, e.Err.Error())
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// StatusUpdateError reports that the final status of a persisted request
// could not be recorded.
type StatusUpdateError struct {
	RequestID string
	Err       error
}

func (e *StatusUpdateError) Error() string {
	return fmt.Sprintf("status update of request %s failed: %s", e.RequestID, e.Err.Error())
}

func (e *StatusUpdateError) Unwrap() error {
	return e.Err
}
