package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shorts-studio/internal/infra/logging"
	"shorts-studio/internal/infra/metrics"
)

// StaleFailer fails tasks that have been processing since before cutoff.
type StaleFailer interface {
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error)
}

// StaleTaskWorker periodically fails render tasks whose worker died mid-render.
type StaleTaskWorker struct {
	interval   time.Duration
	staleAfter time.Duration
	tasks      StaleFailer
	now        func() time.Time
	log        *zerolog.Logger
}

// NewStaleTaskWorker checks every interval; interval <= 0 means staleAfter/4, at least a minute.
func NewStaleTaskWorker(interval, staleAfter time.Duration, tasks StaleFailer, logger *zerolog.Logger) *StaleTaskWorker {
	if interval <= 0 {
		interval = max(staleAfter/4, time.Minute)
	}
	l := logging.OrNop(logger).With().Str("component", "StaleTaskWorker").Logger()
	return &StaleTaskWorker{
		interval:   interval,
		staleAfter: staleAfter,
		tasks:      tasks,
		now:        time.Now,
		log:        &l,
	}
}

func (w *StaleTaskWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("stale_after", w.staleAfter).Msg("Starting stale task worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stale task worker")
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of tasks failed.
func (w *StaleTaskWorker) Sweep(ctx context.Context) int {
	reason := fmt.Sprintf("render exceeded %s", w.staleAfter)
	n, err := w.tasks.FailStale(ctx, w.now().Add(-w.staleAfter), reason)
	if err != nil {
		w.log.Error().Err(err).Msg("stale task sweep failed")
		return 0
	}
	if n > 0 {
		metrics.AddStaleTasks(n)
		w.log.Warn().Int("count", n).Msg("stale render tasks failed")
	}
	return n
}
