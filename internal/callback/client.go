package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/model"
	"transcript-request-service/pkg/errors"

	"github.com/rs/zerolog"
)

// Client posts status events to submitter callback URLs.
type Client struct {
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg config.CallbackConfig) *Client {
	return &Client{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: logger.Component("callback"),
	}
}

// Send makes one POST. Network failures, 429 and 5xx come back as
// errors.RetryableError; other non-2xx answers wrap ErrCallbackRejected.
func (c *Client) Send(ctx context.Context, event model.StatusEvent) error {
	if event.CallbackURL == "" {
		return fmt.Errorf("%w: event %s has no callback url", errors.ErrCallbackRejected, event.RequestID)
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, event.CallbackURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", event.RequestID)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	c.log.Debug().
		Str("request_id", event.RequestID).
		Str("status", string(event.Status)).
		Msg("Posting status callback")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewRetryableError(err, "HTTP request failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return errors.NewRetryableError(fmt.Errorf("HTTP %d", resp.StatusCode), "callback endpoint unavailable")
	default:
		return fmt.Errorf("%w: HTTP %d", errors.ErrCallbackRejected, resp.StatusCode)
	}
}

// Deliver retries Send on retryable errors with linear backoff.
func (c *Client) Deliver(ctx context.Context, event model.StatusEvent, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = c.Send(ctx, event)
		if lastErr == nil {
			return nil
		}
		if !errors.IsRetryable(lastErr) {
			return lastErr
		}

		c.log.Warn().
			Err(lastErr).
			Str("request_id", event.RequestID).
			Int("attempt", attempt).
			Msg("Callback attempt failed")

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("callback for %s failed after %d attempts: %w", event.RequestID, attempts, lastErr)
}
