package payment

import (
	"context"
	"fmt"
	"sync"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway accepts every refund and hands out sequential ids. It is
// used in development and when no gateway credentials are configured.
type NoopPaymentGateway struct {
	mu  sync.Mutex
	seq int64
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) RegisterRefund(ctx context.Context, gatewayPaymentID string, amount *int64, speed model.RefundSpeed, notes map[string]string) (adapter.RefundRegistration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	var amt int64
	if amount != nil {
		amt = *amount
	}
	return adapter.RefundRegistration{
		RefundID: fmt.Sprintf("rfnd_noop_%d", g.seq),
		Status:   "pending",
		Amount:   amt,
	}, nil
}
