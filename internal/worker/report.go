package worker

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/metrics"
	"transcript-request-service/internal/model"
	"transcript-request-service/internal/report"
	"transcript-request-service/internal/storage"

	"github.com/rs/zerolog"
)

type requestLister interface {
	List(ctx context.Context, filter model.ListFilter) ([]model.TranscriptRequest, error)
}

// ReportWorker uploads a daily spreadsheet of requests needing follow-up:
// failed ones and ones stuck before delivery. It never changes a status.
type ReportWorker struct {
	cfg     config.ReportWorkerConfig
	repo    requestLister
	storage storage.Storage
	writer  *report.Writer
	now     func() time.Time
	timer   *time.Timer
	log     zerolog.Logger
}

func NewReportWorker(cfg config.ReportWorkerConfig, repo requestLister, store storage.Storage) *ReportWorker {
	return &ReportWorker{
		cfg:     cfg,
		repo:    repo,
		storage: store,
		writer:  report.NewWriter(),
		now:     time.Now,
		log:     logger.Component("report_worker"),
	}
}

func (w *ReportWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting report worker")

	nextRun := nextRunTime(w.now(), w.cfg.Hour)
	w.log.Info().Time("next_run", nextRun).Msg("Scheduled next report")

	if w.cfg.RunOnStart {
		w.log.Info().Msg("Running initial report on startup")
		if _, err := w.RunOnce(ctx); err != nil {
			w.log.Error().Err(err).Msg("Initial report failed")
		}
	}

	w.timer = time.NewTimer(time.Until(nextRun))

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Report worker context cancelled")
			return ctx.Err()
		case <-w.timer.C:
			w.log.Info().Msg("Starting scheduled report")
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scheduled report failed")
			}

			nextRun = nextRunTime(w.now(), w.cfg.Hour)
			w.log.Info().Time("next_run", nextRun).Msg("Scheduled next report")
			w.timer.Reset(time.Until(nextRun))
		}
	}
}

func (w *ReportWorker) Stop() {
	w.log.Info().Msg("Stopping report worker")
	if w.timer != nil {
		w.timer.Stop()
	}
}

// RunOnce builds and uploads today's report. It returns the object key, or ""
// when nothing needed follow-up.
func (w *ReportWorker) RunOnce(ctx context.Context) (string, error) {
	startTime := time.Now()
	now := w.now()

	failed, err := w.repo.List(ctx, model.ListFilter{
		Statuses: []model.Status{model.StatusFailed},
	})
	if err != nil {
		return "", fmt.Errorf("list failed requests: %w", err)
	}

	stale, err := w.repo.List(ctx, model.ListFilter{
		Statuses:      []model.Status{model.StatusSubmitted, model.StatusProcessing},
		UpdatedBefore: now.Add(-w.cfg.StaleAfter),
	})
	if err != nil {
		return "", fmt.Errorf("list stale requests: %w", err)
	}

	rows := append(failed, stale...)
	if len(rows) == 0 {
		w.log.Info().Msg("No requests need follow-up, report skipped")
		return "", nil
	}

	buf, err := w.writer.Write(rows)
	if err != nil {
		return "", err
	}

	key := storage.ReportKey(report.DayStamp(now))
	if err := w.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), report.ContentType); err != nil {
		return "", fmt.Errorf("upload report %s: %w", key, err)
	}
	metrics.ReportRowsTotal.Add(float64(len(rows)))

	w.log.Info().
		Dur("duration", time.Since(startTime)).
		Int("failed", len(failed)).
		Int("stale", len(stale)).
		Str("key", key).
		Msg("Follow-up report uploaded")

	return key, nil
}

// nextRunTime returns the next occurrence of hour:00 strictly after now.
func nextRunTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
