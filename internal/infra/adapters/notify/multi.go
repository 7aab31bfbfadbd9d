package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/infra/metrics"
)

var _ adapter.Notifier = (*MultiNotifier)(nil)

// MultiNotifier sends every notice on all channels. A failure on one channel
// does not stop the others; the joined error is returned.
type MultiNotifier struct {
	channels []Channel
	log      *zerolog.Logger
}

func NewMultiNotifier(logger *zerolog.Logger, channels ...Channel) *MultiNotifier {
	l := logger.With().Str("component", "notifier").Logger()
	return &MultiNotifier{channels: channels, log: &l}
}

func (m *MultiNotifier) fanOut(ctx context.Context, kind string, send func(Channel) error) error {
	var errs []error
	for _, ch := range m.channels {
		err := send(ch)
		switch {
		case err == nil:
			metrics.IncNotification(ch.Name(), "sent")
		case errors.Is(err, ErrNoRecipient):
			metrics.IncNotification(ch.Name(), "skipped")
		default:
			metrics.IncNotification(ch.Name(), "error")
			m.log.Warn().Err(err).Str("channel", ch.Name()).Str("kind", kind).Msg("notification failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiNotifier) NotifyRefundStatus(ctx context.Context, n adapter.RefundNotice) error {
	return m.fanOut(ctx, "refund", func(ch Channel) error { return ch.NotifyRefundStatus(ctx, n) })
}

func (m *MultiNotifier) NotifySubscriptionCancelled(ctx context.Context, n adapter.CancellationNotice) error {
	return m.fanOut(ctx, "cancellation", func(ch Channel) error { return ch.NotifySubscriptionCancelled(ctx, n) })
}
