package delivery

import (
	"context"

	"transcript-request-service/internal/logger"

	"github.com/rs/zerolog"
)

// SimulatedDeliverer performs no network I/O and always succeeds.
type SimulatedDeliverer struct {
	log zerolog.Logger
}

func NewSimulatedDeliverer() *SimulatedDeliverer {
	return &SimulatedDeliverer{log: logger.Component("delivery")}
}

func (d *SimulatedDeliverer) Deliver(ctx context.Context, content []byte, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p := remotePath("dev-mode", fileName)
	d.log.Info().
		Str("remote_path", p).
		Int("bytes", len(content)).
		Msg("Simulated delivery, no file was uploaded")
	return p, nil
}

func (d *SimulatedDeliverer) Check(ctx context.Context) error {
	return nil
}

func (d *SimulatedDeliverer) Mode() string {
	return ModeSimulated
}
