package adapter

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

// RefundNotice is the content of a refund status notification.
type RefundNotice struct {
	UserEmail string
	RefundID  string
	PaymentID string
	Amount    int64
	Currency  string
	Status    model.RefundStatus
}

// CancellationNotice is sent after a subscription was cancelled.
type CancellationNotice struct {
	UserEmail      string
	Service        model.ServiceCode
	SubscriptionID string
	EndDate        string
}

// Notifier delivers best-effort user notifications. Callers log returned
// errors; a failed delivery never undoes the state change that triggered it.
type Notifier interface {
	NotifyRefundStatus(ctx context.Context, n RefundNotice) error
	NotifySubscriptionCancelled(ctx context.Context, n CancellationNotice) error
}
