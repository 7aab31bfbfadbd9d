package notify

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/infra/logging"
	"subscription-commerce/internal/infra/metrics"
	"subscription-commerce/internal/infra/worker"
)

var _ adapter.Notifier = (*AsyncNotifier)(nil)

// AsyncNotifier hands notices to the worker pool so request paths never wait
// on SMTP or Telegram. Only enqueue failures are reported to the caller.
type AsyncNotifier struct {
	inner   adapter.Notifier
	pool    *worker.Pool
	timeout time.Duration
}

func NewAsyncNotifier(inner adapter.Notifier, pool *worker.Pool, timeout time.Duration) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncNotifier{inner: inner, pool: pool, timeout: timeout}
}

func (a *AsyncNotifier) submit(ctx context.Context, send func(ctx context.Context) error) error {
	trace := logging.TraceID(ctx)
	err := a.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(logging.WithTraceID(ctx, trace), a.timeout)
		defer cancel()
		return send(ctx)
	})
	if err != nil {
		metrics.IncNotification("async", "dropped")
	}
	return err
}

func (a *AsyncNotifier) NotifyRefundStatus(ctx context.Context, n adapter.RefundNotice) error {
	return a.submit(ctx, func(ctx context.Context) error { return a.inner.NotifyRefundStatus(ctx, n) })
}

func (a *AsyncNotifier) NotifySubscriptionCancelled(ctx context.Context, n adapter.CancellationNotice) error {
	return a.submit(ctx, func(ctx context.Context) error { return a.inner.NotifySubscriptionCancelled(ctx, n) })
}
