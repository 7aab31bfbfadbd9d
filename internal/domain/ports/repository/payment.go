package repository

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	// FindPaymentByID takes a row lock when tx is a transaction.
	FindPaymentByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	// FindPaymentByTransactionID looks a payment up by the gateway payment id.
	FindPaymentByTransactionID(ctx context.Context, tx Tx, paymentID string) (*model.Payment, error)
	// SumVerified sums verified payment amounts in currency created at or
	// after since; a zero since means all time.
	SumVerified(ctx context.Context, tx Tx, currency string, since time.Time) (int64, error)
}
