package api

import (
	"errors"
	"net/http"

	"transcript-request-service/internal/model"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidAPIKey     = "INVALID_API_KEY"
	CodeConfig            = "CONFIG_ERROR"
	CodeRequestNotFound   = "REQUEST_NOT_FOUND"
	CodeReceiptNotFound   = "RECEIPT_NOT_FOUND"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeUploadFailed      = "UPLOAD_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// writeError is the single place where errors become HTTP answers. fallback
// is the message used for unclassified failures.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var (
		verr   *apperrors.ValidationErrors
		derr   *apperrors.DeliveryError
		suerr  *apperrors.StatusUpdateError
		status int
		body   model.ErrorResponse
	)

	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = model.ErrorResponse{Error: "Invalid request data", Code: CodeValidation, Details: verr.Fields}
	case errors.As(err, &derr):
		status = http.StatusInternalServerError
		body = model.ErrorResponse{
			Error:     "Failed to upload transcript request to processing system",
			Code:      CodeUploadFailed,
			RequestID: derr.RequestID,
		}
	case errors.As(err, &suerr):
		status = http.StatusInternalServerError
		body = model.ErrorResponse{Error: fallback, Code: CodeInternal, RequestID: suerr.RequestID}
	case errors.Is(err, apperrors.ErrRequestNotFound):
		status = http.StatusNotFound
		body = model.ErrorResponse{Error: "Request not found", Code: CodeRequestNotFound}
	case errors.Is(err, apperrors.ErrObjectNotFound):
		status = http.StatusNotFound
		body = model.ErrorResponse{Error: "Receipt not found", Code: CodeReceiptNotFound}
	case errors.Is(err, apperrors.ErrInvalidStatusTransition):
		status = http.StatusConflict
		body = model.ErrorResponse{Error: "Request cannot move to the requested status", Code: CodeInvalidTransition}
	default:
		status = http.StatusInternalServerError
		body = model.ErrorResponse{Error: fallback, Code: CodeInternal}
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("code", body.Code).Str("request_id", body.RequestID).Msg(fallback)
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func validationError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error:   "Invalid request data",
		Code:    CodeValidation,
		Details: map[string]string{field: message},
	})
}
