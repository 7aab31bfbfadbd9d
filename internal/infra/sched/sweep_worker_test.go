//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/usecase"
)

type fakeSweeper struct {
	calls atomic.Int32
	fn    func(ctx context.Context) (usecase.SweepReport, error)
}

func (f *fakeSweeper) Sweep(ctx context.Context) (usecase.SweepReport, error) {
	f.calls.Add(1)
	if f.fn == nil {
		return usecase.SweepReport{}, nil
	}
	return f.fn(ctx)
}

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func TestSweepWorker(t *testing.T) {
	t.Run("should sweep immediately and stop on cancel", func(t *testing.T) {
		// --- Arrange ---
		sw := &fakeSweeper{}
		w := NewSweepWorker(time.Hour, sw, nopLogger())
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		// --- Act ---
		go func() { done <- w.Run(ctx) }()
		deadline := time.Now().Add(2 * time.Second)
		for sw.calls.Load() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()

		// --- Assert ---
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop")
		}
		if sw.calls.Load() != 1 {
			t.Errorf("expected exactly one sweep, got %d", sw.calls.Load())
		}
	})

	t.Run("should keep running after a failed sweep", func(t *testing.T) {
		sw := &fakeSweeper{fn: func(ctx context.Context) (usecase.SweepReport, error) {
			return usecase.SweepReport{}, errors.New("db down")
		}}
		w := NewSweepWorker(time.Hour, sw, nopLogger())

		w.RunOnce(context.Background())
		w.RunOnce(context.Background())

		if sw.calls.Load() != 2 {
			t.Errorf("expected 2 sweeps, got %d", sw.calls.Load())
		}
	})

	t.Run("should accept skipped and productive reports", func(t *testing.T) {
		sw := &fakeSweeper{fn: func(ctx context.Context) (usecase.SweepReport, error) {
			return usecase.SweepReport{
				Scanned: 4, Updated: 2, ToGrace: 1, Expired: 1,
				StatusCounts: map[model.SubscriptionStatus]int{model.SubscriptionStatusActive: 2},
			}, nil
		}}
		w := NewSweepWorker(0, sw, nopLogger())
		if w.interval != time.Hour {
			t.Errorf("expected default interval, got %v", w.interval)
		}
		w.RunOnce(context.Background())

		sw.fn = func(ctx context.Context) (usecase.SweepReport, error) {
			return usecase.SweepReport{Skipped: true}, nil
		}
		w.RunOnce(context.Background())

		if sw.calls.Load() != 2 {
			t.Errorf("expected 2 sweeps, got %d", sw.calls.Load())
		}
	})
}
