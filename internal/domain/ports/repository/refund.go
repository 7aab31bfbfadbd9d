package repository

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
)

// -----------------------------
// Refunds
// -----------------------------

// RefundTransition is a conditional PENDING -> terminal update.
type RefundTransition struct {
	RefundID         string
	Status           model.RefundStatus
	SpeedProcessed   model.RefundSpeed
	At               time.Time
	AcquirerData     map[string]string
	BatchID          string
	ErrorCode        string
	ErrorDescription string
}

type RefundRepository interface {
	CreateRefund(ctx context.Context, tx Tx, r *model.Refund) error
	// UpdateRefund overwrites the mutable fields of r by local id.
	UpdateRefund(ctx context.Context, tx Tx, r *model.Refund) error
	// TransitionIfPending applies t only when the refund identified by the
	// gateway refund id is still PENDING. It reports whether a row changed.
	TransitionIfPending(ctx context.Context, tx Tx, t RefundTransition) (bool, error)
	FindRefundByID(ctx context.Context, tx Tx, id string) (*model.Refund, error)
	// FindRefundByRefundID looks a refund up by the gateway refund id.
	FindRefundByRefundID(ctx context.Context, tx Tx, refundID string) (*model.Refund, error)
	ListRefunds(ctx context.Context, tx Tx, filter model.RefundFilter, page model.Page) ([]*model.Refund, int, error)
	// SumNonFailed sums amounts of all non-FAILED refunds of a payment.
	SumNonFailed(ctx context.Context, tx Tx, paymentID string) (int64, error)
	// SumProcessed sums PROCESSED refund amounts in currency processed at or
	// after since; a zero since means all time.
	SumProcessed(ctx context.Context, tx Tx, currency string, since time.Time) (int64, error)
}
