package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"transcript-request-service/internal/logger"
	"transcript-request-service/internal/model"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

const (
	transcriptTable = "transcript_requests"
	maxListLimit    = 5000
)

var transcriptStruct = sqlbuilder.NewStruct(new(model.TranscriptRequest)).For(sqlbuilder.MySQL)

// Repository is the persistence gateway for transcript requests. Each call is
// its own statement; nothing spans pipeline steps.
type Repository interface {
	Create(ctx context.Context, req *model.TranscriptRequest) error
	UpdateStatus(ctx context.Context, id string, status model.Status, message string) error
	GetByID(ctx context.Context, id string) (*model.TranscriptRequest, error)
	List(ctx context.Context, filter model.ListFilter) ([]model.TranscriptRequest, error)
	Ping(ctx context.Context) error
}

type repository struct {
	db  *sqlx.DB
	now func() time.Time
	log zerolog.Logger
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		log: logger.Component("repository"),
	}
}

func (r *repository) Create(ctx context.Context, req *model.TranscriptRequest) error {
	if req.Status == "" {
		req.Status = model.StatusSubmitted
	}
	if req.Status != model.StatusSubmitted {
		return fmt.Errorf("%w: new requests start as %s, got %s",
			apperrors.ErrInvalidStatusTransition, model.StatusSubmitted, req.Status)
	}

	query, args := transcriptStruct.InsertInto(transcriptTable, req).Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert transcript request %s: %w", req.ID, err)
	}

	r.log.Debug().Str("request_id", req.ID).Msg("Transcript request inserted")
	return nil
}

// UpdateStatus only succeeds when the stored status may move to status;
// request_xml and the submitted fields are never touched.
func (r *repository) UpdateStatus(ctx context.Context, id string, status model.Status, message string) error {
	from := status.Predecessors()
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", apperrors.ErrInvalidStatusTransition, status)
	}

	var statusMessage *string
	if message != "" {
		statusMessage = &message
	}

	ub := sqlbuilder.MySQL.NewUpdateBuilder()
	ub.Update(transcriptTable)
	ub.Set(
		ub.Assign("status", string(status)),
		ub.Assign("status_message", statusMessage),
		ub.Assign("updated_at", r.now()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.In("status", statusArgs(from)...),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	if rows > 0 {
		return nil
	}

	current, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidStatusTransition, current, status)
}

func (r *repository) currentStatus(ctx context.Context, id string) (model.Status, error) {
	sb := sqlbuilder.MySQL.NewSelectBuilder()
	sb.Select("status").From(transcriptTable).Where(sb.Equal("id", id))

	query, args := sb.Build()
	var status model.Status
	if err := r.db.GetContext(ctx, &status, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.ErrRequestNotFound
		}
		return "", fmt.Errorf("read status of %s: %w", id, err)
	}
	return status, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*model.TranscriptRequest, error) {
	sb := transcriptStruct.SelectFrom(transcriptTable)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var req model.TranscriptRequest
	if err := r.db.GetContext(ctx, &req, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, fmt.Errorf("get transcript request %s: %w", id, err)
	}
	return &req, nil
}

// List returns requests newest first.
func (r *repository) List(ctx context.Context, filter model.ListFilter) ([]model.TranscriptRequest, error) {
	sb := transcriptStruct.SelectFrom(transcriptTable)

	var conds []string
	if len(filter.Statuses) > 0 {
		conds = append(conds, sb.In("status", statusArgs(filter.Statuses)...))
	}
	if !filter.CreatedAfter.IsZero() {
		conds = append(conds, sb.GreaterEqualThan("created_at", filter.CreatedAfter))
	}
	if !filter.CreatedBefore.IsZero() {
		conds = append(conds, sb.LessThan("created_at", filter.CreatedBefore))
	}
	if !filter.UpdatedBefore.IsZero() {
		conds = append(conds, sb.LessThan("updated_at", filter.UpdatedBefore))
	}
	if len(conds) > 0 {
		sb.Where(conds...)
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	sb.OrderBy("created_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	var out []model.TranscriptRequest
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list transcript requests: %w", err)
	}
	return out, nil
}

func (r *repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func statusArgs(statuses []model.Status) []interface{} {
	out := make([]interface{}, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
