package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/infra/metrics"
	"subscription-commerce/internal/usecase"
)

// Sweeper is the slice of the subscription use case the worker drives.
type Sweeper interface {
	Sweep(ctx context.Context) (usecase.SweepReport, error)
}

// SweepWorker periodically moves lapsed subscriptions through grace and
// expiry.
type SweepWorker struct {
	interval time.Duration
	subs     Sweeper
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, subs Sweeper, logger *zerolog.Logger) *SweepWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{interval: interval, subs: subs, log: &l}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *SweepWorker) RunOnce(ctx context.Context) {
	start := time.Now()
	rep, err := w.subs.Sweep(ctx)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.ObserveSweep("error", elapsed)
		w.log.Error().Err(err).Msg("lifecycle sweep failed")
		return
	}
	if rep.Skipped {
		metrics.ObserveSweep("skipped", elapsed)
		w.log.Debug().Msg("sweep lock held elsewhere, skipped")
		return
	}

	metrics.ObserveSweep("ok", elapsed)
	metrics.AddSubscriptionTransitions(model.SubscriptionStatusGracePeriod, rep.ToGrace)
	metrics.AddSubscriptionTransitions(model.SubscriptionStatusExpired, rep.Expired)
	metrics.SetSubscriptionsTotal(rep.StatusCounts)

	ev := w.log.Info()
	if rep.Updated == 0 && rep.Failures == 0 {
		ev = w.log.Debug()
	}
	ev.Int("scanned", rep.Scanned).
		Int("updated", rep.Updated).
		Int("to_grace", rep.ToGrace).
		Int("expired", rep.Expired).
		Int("conflicts", rep.Conflicts).
		Int("failures", rep.Failures).
		Msg("lifecycle sweep done")
}
