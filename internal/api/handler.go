package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TranscriptService is what the HTTP layer needs from the submission pipeline.
type TranscriptService interface {
	Submit(ctx context.Context, body []byte, client model.ClientInfo) (*model.SubmitResult, error)
	Status(ctx context.Context, requestID string) (*model.TranscriptRequest, error)
	MarkDelivered(ctx context.Context, requestID, message string) (*model.TranscriptRequest, error)
	Export(ctx context.Context, filter model.ListFilter) (*bytes.Buffer, string, error)
	Receipt(ctx context.Context, requestID string) (io.ReadCloser, error)
	Health(ctx context.Context) model.HealthReport
}

type Handler struct {
	service TranscriptService
	log     zerolog.Logger
}

func NewHandler(service TranscriptService) *Handler {
	return &Handler{
		service: service,
		log:     logger.Component("api"),
	}
}

// SubmitRequest serves both the public form route and the partner route.
func (h *Handler) SubmitRequest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			validationError(c, "body", "Request body is too large")
			return
		}
		validationError(c, "body", "Request body could not be read")
		return
	}

	client := model.ClientInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Partner:   c.GetBool(partnerContextKey),
	}

	result, err := h.service.Submit(c.Request.Context(), body, client)
	if err != nil {
		h.writeError(c, err, "Failed to submit transcript request")
		return
	}

	h.log.Info().
		Str("request_id", result.RequestID).
		Str("status", string(result.Status)).
		Msg("Transcript request accepted")

	c.JSON(http.StatusOK, model.SubmitResponse{
		Success:    true,
		RequestID:  result.RequestID,
		DocumentID: result.DocumentID,
		Status:     result.Status,
		Message:    result.Message,
	})
}

func (h *Handler) GetStatus(c *gin.Context) {
	req, err := h.service.Status(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		h.writeError(c, err, "Failed to load transcript request")
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{
		Success: true,
		Request: model.NewRequestStatusView(req),
	})
}

// ConfirmDelivery accepts an optional {"message": "..."} body.
func (h *Handler) ConfirmDelivery(c *gin.Context) {
	var body model.ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		validationError(c, "message", "must be a string of at most 500 characters")
		return
	}

	req, err := h.service.MarkDelivered(c.Request.Context(), c.Param("requestId"), strings.TrimSpace(body.Message))
	if err != nil {
		h.writeError(c, err, "Failed to confirm delivery")
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{
		Success: true,
		Request: model.NewRequestStatusView(req),
	})
}

// ExportRequests streams an XLSX of requests. Query: status (comma
// separated), from and to (YYYY-MM-DD, inclusive) and limit.
func (h *Handler) ExportRequests(c *gin.Context) {
	filter, field, msg := parseListFilter(c)
	if field != "" {
		validationError(c, field, msg)
		return
	}

	buf, fileName, err := h.service.Export(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err, "Failed to export transcript requests")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) GetReceipt(c *gin.Context) {
	requestID := c.Param("requestId")
	rc, err := h.service.Receipt(c.Request.Context(), requestID)
	if err != nil {
		h.writeError(c, err, "Failed to load receipt")
		return
	}
	defer rc.Close()

	pdf, err := io.ReadAll(rc)
	if err != nil {
		h.writeError(c, err, "Failed to load receipt")
		return
	}

	c.Header("Content-Disposition", `inline; filename="transcript-request-`+requestID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	report := h.service.Health(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func parseListFilter(c *gin.Context) (model.ListFilter, string, string) {
	var filter model.ListFilter

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status, ok := model.ParseStatus(strings.TrimSpace(part))
			if !ok {
				return filter, "status", "must be one of submitted, processing, delivered, failed"
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}

	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			return filter, "from", "must be a date in YYYY-MM-DD format"
		}
		filter.CreatedAfter = from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			return filter, "to", "must be a date in YYYY-MM-DD format"
		}
		filter.CreatedBefore = to.AddDate(0, 0, 1)
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, "limit", "must be a positive integer"
		}
		filter.Limit = limit
	}

	return filter, "", ""
}
