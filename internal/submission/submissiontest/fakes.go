// Package submissiontest provides in-memory collaborators for exercising the
// submission pipeline without MySQL, SFTP, Resend, S3 or Redis.
package submissiontest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"transcript-request-service/internal/model"
	"transcript-request-service/internal/notify"
	apperrors "transcript-request-service/pkg/errors"
)

// Repository is an in-memory db.Repository with the same transition rules
// as the SQL gateway. Like database/sql it fails on a done context.
type Repository struct {
	mu        sync.Mutex
	rows      map[string]model.TranscriptRequest
	CreateErr error
	UpdateErr error
	PingErr   error
}

func NewRepository() *Repository {
	return &Repository{rows: make(map[string]model.TranscriptRequest)}
}

func (r *Repository) Create(ctx context.Context, req *model.TranscriptRequest) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rows[req.ID]; exists {
		return fmt.Errorf("duplicate id %s", req.ID)
	}
	r.rows[req.ID] = *req
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status model.Status, message string) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return apperrors.ErrRequestNotFound
	}
	if !row.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, row.Status, status)
	}
	row.Status = status
	if message != "" {
		row.StatusMessage = &message
	} else {
		row.StatusMessage = nil
	}
	row.UpdatedAt = row.UpdatedAt.Add(time.Second)
	r.rows[id] = row
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*model.TranscriptRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	return &row, nil
}

func (r *Repository) List(ctx context.Context, filter model.ListFilter) ([]model.TranscriptRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []model.TranscriptRequest
	for _, row := range r.rows {
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, row.Status) {
			continue
		}
		if !filter.CreatedAfter.IsZero() && row.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		if !filter.CreatedBefore.IsZero() && !row.CreatedAt.Before(filter.CreatedBefore) {
			continue
		}
		if !filter.UpdatedBefore.IsZero() && !row.UpdatedAt.Before(filter.UpdatedBefore) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.PingErr
}

func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func hasStatus(statuses []model.Status, s model.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Deliverer records uploads and fails with Err when set. AfterDeliver runs
// once a file has been recorded.
type Deliverer struct {
	mu           sync.Mutex
	Err          error
	CheckErr     error
	Live         bool
	Files        map[string][]byte
	AfterDeliver func()
}

func (d *Deliverer) Deliver(ctx context.Context, content []byte, fileName string) (string, error) {
	if d.Err != nil {
		return "", d.Err
	}
	d.mu.Lock()
	if d.Files == nil {
		d.Files = make(map[string][]byte)
	}
	remote := "/incoming/" + fileName + "_request.xml"
	d.Files[remote] = content
	d.mu.Unlock()

	if d.AfterDeliver != nil {
		d.AfterDeliver()
	}
	return remote, nil
}

func (d *Deliverer) Check(ctx context.Context) error {
	return d.CheckErr
}

func (d *Deliverer) Mode() string {
	if d.Live {
		return "live"
	}
	return "simulated"
}

// Notifier records sent emails.
type Notifier struct {
	mu            sync.Mutex
	Err           error
	Confirmations []notify.Confirmation
	SchoolNotices []string
}

func (n *Notifier) SendConfirmation(ctx context.Context, c notify.Confirmation, pdf []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Confirmations = append(n.Confirmations, c)
	return n.Err
}

func (n *Notifier) SendSchoolNotification(ctx context.Context, to string, c notify.Confirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.SchoolNotices = append(n.SchoolNotices, to)
	return n.Err
}

func (n *Notifier) Mode() string {
	return "simulated"
}

// Storage is an in-memory object store.
type Storage struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func (s *Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.Objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrObjectNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *Storage) Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Objects == nil {
		s.Objects = make(map[string][]byte)
	}
	s.Objects[key] = b
	return nil
}

// Publisher records published status events.
type Publisher struct {
	mu     sync.Mutex
	Events []model.StatusEvent
}

func (p *Publisher) PublishStatusEvent(ctx context.Context, event model.StatusEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}
