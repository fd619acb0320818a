package worker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/model"
	"transcript-request-service/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeLister struct {
	byStatus map[model.Status][]model.TranscriptRequest
	filters  []model.ListFilter
	err      error
}

func (f *fakeLister) List(ctx context.Context, filter model.ListFilter) ([]model.TranscriptRequest, error) {
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	var out []model.TranscriptRequest
	for _, s := range filter.Statuses {
		out = append(out, f.byStatus[s]...)
	}
	return out, nil
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.objects[key])), nil
}

func (m *memoryStorage) Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = b
	return nil
}

var reportNow = time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)

func newTestReportWorker(repo *fakeLister, store *memoryStorage) *ReportWorker {
	w := NewReportWorker(config.ReportWorkerConfig{Hour: 23, StaleAfter: 24 * time.Hour}, repo, store)
	w.now = func() time.Time { return reportNow }
	return w
}

func TestReportRunOnceUploadsFollowUps(t *testing.T) {
	repo := &fakeLister{byStatus: map[model.Status][]model.TranscriptRequest{
		model.StatusFailed:     {{ID: "failed-1", Status: model.StatusFailed}},
		model.StatusProcessing: {{ID: "stuck-1", Status: model.StatusProcessing}},
	}}
	store := &memoryStorage{}

	key, err := newTestReportWorker(repo, store).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reports/transcript-requests-20261018.xlsx", key)

	require.Len(t, repo.filters, 2)
	assert.Equal(t, reportNow.Add(-24*time.Hour), repo.filters[1].UpdatedBefore)

	file, err := excelize.OpenReader(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	defer file.Close()

	rows, err := file.GetRows(report.SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "failed-1", rows[1][0])
	assert.Equal(t, "stuck-1", rows[2][0])
}

func TestReportRunOnceSkipsEmpty(t *testing.T) {
	store := &memoryStorage{}

	key, err := newTestReportWorker(&fakeLister{}, store).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, store.objects)
}

func TestReportRunOncePropagatesListError(t *testing.T) {
	_, err := newTestReportWorker(&fakeLister{err: errors.New("db down")}, &memoryStorage{}).RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestNextRunTime(t *testing.T) {
	before := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC), nextRunTime(before, 23))

	exactly := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC), nextRunTime(exactly, 23))

	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), nextRunTime(before, 0))
}
