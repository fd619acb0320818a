package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transcript-request-service/internal/callback"
	"transcript-request-service/internal/config"
	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/metrics"
	"transcript-request-service/internal/model"
	"transcript-request-service/internal/queue"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/rs/zerolog"
)

type eventSource interface {
	Consume(ctx context.Context, handler queue.MessageHandler) error
	DeadLetter(ctx context.Context, message []byte)
}

type callbackSender interface {
	Deliver(ctx context.Context, event model.StatusEvent, attempts int, delay time.Duration) error
}

// CallbackWorker forwards queued status events to submitter callback URLs.
// Pool jobs run on their own context so Stop can drain them after the
// consumer's context is gone.
type CallbackWorker struct {
	source     eventSource
	sender     callbackSender
	workerPool *WorkerPool
	poolCtx    context.Context
	cancelPool context.CancelFunc
	attempts   int
	delay      time.Duration
	log        zerolog.Logger
}

func NewCallbackWorker(cfg *config.Config, redisClient *queue.RedisClient) *CallbackWorker {
	return newCallbackWorker(
		queue.NewConsumer(redisClient, cfg.Redis.StatusQueue, cfg.Redis.DLQSuffix),
		callback.NewClient(cfg.Callback),
		cfg.Workers.Callback.Count,
		cfg.Callback.RetryAttempts,
		cfg.Callback.RetryDelay,
	)
}

func newCallbackWorker(source eventSource, sender callbackSender, count, attempts int, delay time.Duration) *CallbackWorker {
	poolCtx, cancelPool := context.WithCancel(context.Background())
	return &CallbackWorker{
		source:     source,
		sender:     sender,
		workerPool: NewWorkerPool(count),
		poolCtx:    poolCtx,
		cancelPool: cancelPool,
		attempts:   attempts,
		delay:      delay,
		log:        logger.Component("callback_worker"),
	}
}

func (w *CallbackWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting callback worker")

	// Start worker pool
	w.workerPool.Start(w.poolCtx)

	// Start consuming messages
	return w.source.Consume(ctx, w.handleMessage)
}

func (w *CallbackWorker) Stop() {
	w.log.Info().Msg("Stopping callback worker")
	w.workerPool.Stop()
	w.cancelPool()
}

func (w *CallbackWorker) handleMessage(ctx context.Context, data []byte) error {
	var event model.StatusEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal status event")
		return err
	}
	if event.RequestID == "" || event.CallbackURL == "" {
		return fmt.Errorf("status event is missing request id or callback url")
	}

	w.log.Info().
		Str("request_id", event.RequestID).
		Str("status", string(event.Status)).
		Msg("Processing status event")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		return w.forward(ctx, event, data)
	})
}

func (w *CallbackWorker) forward(ctx context.Context, event model.StatusEvent, raw []byte) error {
	err := w.sender.Deliver(ctx, event, w.attempts, w.delay)
	if err == nil {
		metrics.ObserveCallback(metrics.ResultSuccess)
		w.log.Info().Str("request_id", event.RequestID).Msg("Status callback delivered")
		return nil
	}

	if errors.Is(err, apperrors.ErrCallbackRejected) {
		metrics.ObserveCallback(metrics.ResultRejected)
	} else {
		metrics.ObserveCallback(metrics.ResultFailure)
	}
	// Exhausted or rejected events are parked for manual replay.
	w.source.DeadLetter(ctx, raw)
	return err
}
