package storage

import (
	"context"
	"fmt"
	"io"

	"transcript-request-service/internal/config"
	"transcript-request-service/internal/logger"
	apperrors "transcript-request-service/pkg/errors"

	"github.com/rs/zerolog"
)

// NoopStorage is used when no bucket is configured. Uploads are dropped.
type NoopStorage struct {
	log zerolog.Logger
}

func NewNoopStorage() *NoopStorage {
	return &NoopStorage{log: logger.Component("storage")}
}

func (s *NoopStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("%w: %s (archive disabled)", apperrors.ErrObjectNotFound, key)
}

func (s *NoopStorage) Upload(ctx context.Context, key string, data io.ReadSeeker, contentType string) error {
	s.log.Debug().Str("key", key).Msg("Archive disabled, upload skipped")
	return nil
}

// New returns S3 storage when a bucket is configured.
func New(cfg *config.Config) (Storage, error) {
	if !cfg.Storage.S3.Enabled() {
		return NewNoopStorage(), nil
	}
	return NewS3Storage(cfg)
}
