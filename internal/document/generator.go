package document

import (
	"time"

	"transcript-request-service/internal/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Generator renders the XML request and the PDF receipt. It holds no
// per-request state and is safe for concurrent use.
type Generator struct {
	brand    string
	compress bool
	now      func() time.Time
	newID    func() string
	log      zerolog.Logger
}

type Option func(*Generator)

func WithBrand(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.brand = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func WithIDSource(newID func() string) Option {
	return func(g *Generator) {
		g.newID = newID
	}
}

// WithoutCompression leaves PDF content streams readable.
func WithoutCompression() Option {
	return func(g *Generator) {
		g.compress = false
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		brand:    "Transcript Request Service",
		compress: true,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logger.Component("document"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
