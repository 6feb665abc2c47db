package discovery

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs the background sweep that ends sessions abandoned without
// an explicit end.
type Scheduler struct {
	service  Service
	interval time.Duration
	log      zerolog.Logger
}

func NewScheduler(service Service, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{service: service, interval: interval, log: log}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.runSweep(ctx)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ended, err := s.service.EndStaleSessions(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("stale session sweep failed")
				continue
			}
			if ended > 0 {
				s.log.Info().Int64("ended", ended).Msg("ended stale sessions")
			}
		case <-ctx.Done():
			return
		}
	}
}
