package notify

import (
	"context"

	"subscription-commerce/internal/domain/ports/adapter"
)

var _ adapter.Notifier = NoopNotifier{}

type NoopNotifier struct{}

func (NoopNotifier) NotifyRefundStatus(context.Context, adapter.RefundNotice) error { return nil }

func (NoopNotifier) NotifySubscriptionCancelled(context.Context, adapter.CancellationNotice) error {
	return nil
}
