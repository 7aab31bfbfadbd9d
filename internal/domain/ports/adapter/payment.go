package adapter

import (
	"context"

	"subscription-commerce/internal/domain/model"
)

// RefundRegistration is what the gateway answers to a refund request.
type RefundRegistration struct {
	RefundID string // gateway refund id
	Status   string // gateway status, e.g. "pending" or "processed"
	Amount   int64  // minor units actually registered
}

// GatewayError carries the gateway's own error code so it can be stored on
// the FAILED refund row.
type GatewayError struct {
	Code        string
	Description string
	StatusCode  int
}

func (e *GatewayError) Error() string {
	if e.Code == "" {
		return "gateway: " + e.Description
	}
	return "gateway: " + e.Code + ": " + e.Description
}

// PaymentGateway is the hex port for the payment provider.
type PaymentGateway interface {
	Name() string
	// RegisterRefund asks the provider to refund amount (minor units) of the
	// given gateway payment id. A nil amount refunds the full captured amount.
	RegisterRefund(ctx context.Context, gatewayPaymentID string, amount *int64, speed model.RefundSpeed, notes map[string]string) (RefundRegistration, error)
}
