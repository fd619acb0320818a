package delivery

import (
	"context"
	"path"

	"transcript-request-service/internal/config"
)

const (
	ModeLive      = config.ModeLive
	ModeSimulated = config.ModeSimulated

	requestSuffix = "_request.xml"
)

// Deliverer hands a rendered XML request to the transcript delivery network.
// Deliver makes exactly one attempt.
type Deliverer interface {
	Deliver(ctx context.Context, content []byte, fileName string) (remotePath string, err error)
	Check(ctx context.Context) error
	Mode() string
}

// New returns the deliverer selected by the resolved delivery mode.
func New(cfg *config.Config) (Deliverer, error) {
	if cfg.Delivery.ResolvedMode() == ModeLive {
		return NewSFTPDeliverer(cfg.Delivery, cfg.SFTPAddr())
	}
	return NewSimulatedDeliverer(), nil
}

func remotePath(dir, fileName string) string {
	return path.Join(dir, fileName+requestSuffix)
}
