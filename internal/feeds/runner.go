package feeds

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Source is one pollable ingest job
type Source interface {
	Run(ctx context.Context) error
}

// Runner polls each source on a fixed interval until the context is canceled
type Runner struct {
	sources  []Source
	interval time.Duration
	logger   zerolog.Logger
}

// NewRunner creates a poll loop over the given sources
func NewRunner(sources []Source, interval time.Duration, logger zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Runner{
		sources:  sources,
		interval: interval,
		logger:   logger,
	}
}

// Start runs an immediate cycle, then one per interval. Blocks until ctx is
// canceled.
func (r *Runner) Start(ctx context.Context) {
	r.logger.Info().
		Int("sources", len(r.sources)).
		Dur("interval", r.interval).
		Msg("Starting feed runner")

	r.cycle(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("Feed runner stopped")
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Runner) cycle(ctx context.Context) {
	for _, source := range r.sources {
		if err := source.Run(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("Feed cycle failed")
		}
	}
}
