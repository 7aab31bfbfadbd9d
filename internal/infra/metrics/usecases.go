package metrics

import (
	"context"
	"errors"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/usecase"
)

var (
	_ usecase.RefundLedger   = (*ledgerMetrics)(nil)
	_ usecase.PaymentUseCase = (*paymentMetrics)(nil)
)

// ledgerMetrics counts refund state changes and processed amounts.
type ledgerMetrics struct {
	usecase.RefundLedger
}

func InstrumentLedger(inner usecase.RefundLedger) usecase.RefundLedger {
	return &ledgerMetrics{RefundLedger: inner}
}

func (l *ledgerMetrics) Initiate(ctx context.Context, paymentID string, amount *int64, speed model.RefundSpeed, initiatedBy string) (*model.Refund, error) {
	rf, err := l.RefundLedger.Initiate(ctx, paymentID, amount, speed, initiatedBy)
	switch {
	case err == nil:
		IncRefund(string(rf.Status))
	case errors.Is(err, domain.ErrIntegration):
		// reserved, then rejected by the gateway
		IncRefund(string(model.RefundStatusFailed))
	}
	return rf, err
}

func (l *ledgerMetrics) ApplyWebhookEvent(ctx context.Context, ev usecase.WebhookRefundEvent) (usecase.ApplyResult, error) {
	res, err := l.RefundLedger.ApplyWebhookEvent(ctx, ev)
	if err == nil && res.Applied && res.Refund != nil {
		IncRefund(string(res.Refund.Status))
		if res.Refund.Status == model.RefundStatusProcessed {
			AddRefundedAmount(res.Refund.Currency, res.Refund.Amount)
		}
	}
	return res, err
}

// paymentMetrics counts confirmation requests. Replays count again.
type paymentMetrics struct {
	usecase.PaymentUseCase
}

func InstrumentPayments(inner usecase.PaymentUseCase) usecase.PaymentUseCase {
	return &paymentMetrics{PaymentUseCase: inner}
}

func (p *paymentMetrics) Confirm(ctx context.Context, in usecase.PaymentConfirmation) (*model.Payment, error) {
	pay, err := p.PaymentUseCase.Confirm(ctx, in)
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		IncPayment(string(model.PaymentStatusFailed))
	case err == nil && pay != nil && pay.Status == model.PaymentStatusVerified:
		IncPayment(string(pay.Status))
	}
	return pay, err
}
