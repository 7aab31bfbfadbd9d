package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/logging"
)

// Compile-time check
var _ RefundLedger = (*refundLedger)(nil)

// RefundLedger is the authoritative record of refunds against payments. For
// every payment the sum of non-FAILED refund amounts never exceeds the
// payment amount. All amounts are integer minor units.
type RefundLedger interface {
	// Initiate reserves amount (nil means everything still refundable)
	// against the payment and registers the refund with the gateway.
	Initiate(ctx context.Context, paymentID string, amount *int64, speed model.RefundSpeed, initiatedBy string) (*model.Refund, error)
	// ApplyWebhookEvent moves a PENDING refund to the reported terminal
	// status. Re-applying the status a refund already has is a no-op.
	ApplyWebhookEvent(ctx context.Context, ev WebhookRefundEvent) (ApplyResult, error)
	SummaryForPayment(ctx context.Context, paymentID string) (model.PaymentRefundSummary, error)
	ListRefunds(ctx context.Context, filter model.RefundFilter, page model.Page) ([]*model.Refund, int, error)
	GetRefund(ctx context.Context, id string) (*model.Refund, error)
}

// WebhookRefundEvent is the refund entity of a verified gateway event.
type WebhookRefundEvent struct {
	RefundID         string
	GatewayPaymentID string
	Amount           int64
	Currency         string
	Status           model.RefundStatus
	SpeedProcessed   model.RefundSpeed
	AcquirerData     map[string]string
	BatchID          string
	ErrorCode        string
	ErrorDescription string
}

// ApplyResult reports what ApplyWebhookEvent did. Applied is false for a
// repeated delivery.
type ApplyResult struct {
	Refund  *model.Refund
	Applied bool
}

type refundLedger struct {
	tm       repository.TransactionManager
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	gateway  adapter.PaymentGateway
	notifier adapter.Notifier
	clock    adapter.Clock

	log *zerolog.Logger
}

func NewRefundLedger(
	tm repository.TransactionManager,
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	gateway adapter.PaymentGateway,
	notifier adapter.Notifier,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *refundLedger {
	if clock == nil {
		clock = adapter.SystemClock{}
	}
	l := logger.With().Str("component", "refund_ledger").Logger()
	return &refundLedger{
		tm:       tm,
		payments: payments,
		refunds:  refunds,
		gateway:  gateway,
		notifier: notifier,
		clock:    clock,
		log:      &l,
	}
}

func newRefundID(now time.Time) string {
	return "ref_" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

func (l *refundLedger) Initiate(ctx context.Context, paymentID string, amount *int64, speed model.RefundSpeed, initiatedBy string) (*model.Refund, error) {
	defer logging.TraceDuration(l.log, "RefundLedger.Initiate")()
	if paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if amount != nil && *amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if speed == "" {
		speed = model.RefundSpeedNormal
	}
	if !speed.Valid() {
		return nil, fmt.Errorf("%w: unknown refund speed %q", domain.ErrInvalidArgument, speed)
	}

	var (
		refund  *model.Refund
		payment *model.Payment
	)
	err := l.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := l.payments.FindPaymentByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != model.PaymentStatusVerified {
			return domain.ErrPaymentNotVerified
		}
		refunded, err := l.refunds.SumNonFailed(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		remaining := p.Amount - refunded
		if remaining <= 0 {
			return domain.ErrPaymentFullyRefunded
		}
		want := remaining
		if amount != nil {
			want = *amount
		}
		if want > remaining {
			return fmt.Errorf("%w: requested %d, remaining %d", domain.ErrRefundExceedsRemaining, want, remaining)
		}

		now := l.clock.Now().UTC()
		r := &model.Refund{
			ID:             newRefundID(now),
			PaymentID:      p.ID,
			OrderID:        p.OrderID,
			Amount:         want,
			Currency:       p.Currency,
			Status:         model.RefundStatusPending,
			SpeedRequested: speed,
			UserEmail:      p.UserEmail,
			ProcessedBy:    initiatedBy,
			CreatedAt:      now,
		}
		if err := l.refunds.CreateRefund(ctx, tx, r); err != nil {
			return err
		}
		refund, payment = r, p
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = logging.WithUserEmail(ctx, refund.UserEmail)
	log := logging.With(ctx, l.log)
	log.Info().Str("refund", refund.ID).Str("payment_id", payment.ID).Int64("amount", refund.Amount).
		Str("initiated_by", initiatedBy).Msg("refund reserved, registering with gateway")

	reg, gwErr := l.gateway.RegisterRefund(ctx, payment.PaymentID, &refund.Amount, speed, map[string]string{
		"refund_ref": refund.ID,
		"order_id":   payment.OrderID,
	})
	if gwErr != nil {
		failedAt := l.clock.Now().UTC()
		refund.Status = model.RefundStatusFailed
		refund.FailedAt = &failedAt
		refund.ErrorCode = "GATEWAY_ERROR"
		refund.ErrorDescription = gwErr.Error()
		var ge *adapter.GatewayError
		if errors.As(gwErr, &ge) {
			if ge.Code != "" {
				refund.ErrorCode = ge.Code
			}
			refund.ErrorDescription = ge.Description
		}
		if err := l.refunds.UpdateRefund(ctx, repository.NoTX, refund); err != nil {
			// the reservation stays PENDING until reconciled by hand
			log.Error().Err(err).Str("refund", refund.ID).Msg("failed to mark refund FAILED after gateway rejection")
		}
		log.Warn().Err(gwErr).Str("refund", refund.ID).Msg("gateway rejected refund")
		return nil, fmt.Errorf("%w: register refund: %w", domain.ErrIntegration, gwErr)
	}

	refund.RefundID = reg.RefundID
	if err := l.refunds.UpdateRefund(ctx, repository.NoTX, refund); err != nil {
		log.Error().Err(err).Str("refund", refund.ID).Str("gateway_refund_id", reg.RefundID).
			Msg("refund registered at gateway but gateway id was not stored")
		return nil, err
	}
	log.Info().Str("refund", refund.ID).Str("gateway_refund_id", reg.RefundID).Str("gateway_status", reg.Status).Msg("refund registered")
	return refund, nil
}

func (l *refundLedger) ApplyWebhookEvent(ctx context.Context, ev WebhookRefundEvent) (ApplyResult, error) {
	if ev.RefundID == "" {
		return ApplyResult{}, fmt.Errorf("%w: missing refund id", domain.ErrMalformedPayload)
	}
	if !ev.Status.Valid() {
		return ApplyResult{}, fmt.Errorf("%w: unknown refund status %q", domain.ErrMalformedPayload, ev.Status)
	}
	ctx = logging.WithRefundID(ctx, ev.RefundID)
	log := logging.With(ctx, l.log)

	stored, err := l.refunds.FindRefundByRefundID(ctx, repository.NoTX, ev.RefundID)
	if err != nil {
		return ApplyResult{}, err
	}
	if stored.Status == ev.Status {
		log.Debug().Str("status", string(ev.Status)).Msg("refund already in reported status")
		return ApplyResult{Refund: stored, Applied: false}, nil
	}
	if stored.Status.Terminal() {
		log.Error().Str("stored_status", string(stored.Status)).Str("reported_status", string(ev.Status)).
			Msg("webhook would revert a terminal refund state; needs manual review")
		return ApplyResult{Refund: stored}, fmt.Errorf("%w: %s -> %s", domain.ErrStateReversion, stored.Status, ev.Status)
	}
	if ev.Amount != 0 && ev.Amount != stored.Amount {
		log.Warn().Int64("stored_amount", stored.Amount).Int64("reported_amount", ev.Amount).Msg("webhook amount differs from ledger")
	}

	now := l.clock.Now().UTC()
	t := repository.RefundTransition{
		RefundID:         ev.RefundID,
		Status:           ev.Status,
		SpeedProcessed:   ev.SpeedProcessed,
		At:               now,
		AcquirerData:     ev.AcquirerData,
		BatchID:          ev.BatchID,
		ErrorCode:        ev.ErrorCode,
		ErrorDescription: ev.ErrorDescription,
	}
	won, err := l.refunds.TransitionIfPending(ctx, repository.NoTX, t)
	if err != nil {
		return ApplyResult{}, err
	}
	if !won {
		// a concurrent delivery got there first
		current, err := l.refunds.FindRefundByRefundID(ctx, repository.NoTX, ev.RefundID)
		if err != nil {
			return ApplyResult{}, err
		}
		if current.Status == ev.Status {
			return ApplyResult{Refund: current, Applied: false}, nil
		}
		log.Error().Str("stored_status", string(current.Status)).Str("reported_status", string(ev.Status)).
			Msg("conflicting terminal status for refund; needs manual review")
		return ApplyResult{Refund: current}, fmt.Errorf("%w: %s -> %s", domain.ErrStateReversion, current.Status, ev.Status)
	}

	applied := *stored
	applied.Status = ev.Status
	if ev.SpeedProcessed != "" {
		applied.SpeedProcessed = ev.SpeedProcessed
	}
	if len(ev.AcquirerData) > 0 {
		applied.AcquirerData = ev.AcquirerData
	}
	if ev.BatchID != "" {
		applied.BatchID = ev.BatchID
	}
	switch ev.Status {
	case model.RefundStatusProcessed:
		applied.ProcessedAt = &now
	case model.RefundStatusFailed:
		applied.FailedAt = &now
		applied.ErrorCode = ev.ErrorCode
		applied.ErrorDescription = ev.ErrorDescription
	}
	log.Info().Str("status", string(applied.Status)).Int64("amount", applied.Amount).Msg("refund status applied")

	notice := adapter.RefundNotice{
		UserEmail: applied.UserEmail,
		RefundID:  applied.RefundID,
		PaymentID: applied.PaymentID,
		Amount:    applied.Amount,
		Currency:  applied.Currency,
		Status:    applied.Status,
	}
	if err := l.notifier.NotifyRefundStatus(ctx, notice); err != nil {
		log.Warn().Err(err).Msg("refund notification failed")
	}
	return ApplyResult{Refund: &applied, Applied: true}, nil
}

func (l *refundLedger) SummaryForPayment(ctx context.Context, paymentID string) (model.PaymentRefundSummary, error) {
	if paymentID == "" {
		return model.PaymentRefundSummary{}, domain.ErrInvalidArgument
	}
	p, err := l.payments.FindPaymentByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return model.PaymentRefundSummary{}, err
	}
	refunded, err := l.refunds.SumNonFailed(ctx, repository.NoTX, p.ID)
	if err != nil {
		return model.PaymentRefundSummary{}, err
	}
	return model.NewPaymentRefundSummary(p, refunded), nil
}

func (l *refundLedger) ListRefunds(ctx context.Context, filter model.RefundFilter, page model.Page) ([]*model.Refund, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown refund status %q", domain.ErrInvalidArgument, filter.Status)
	}
	filter.UserEmail = model.NormalizeEmail(filter.UserEmail)
	return l.refunds.ListRefunds(ctx, repository.NoTX, filter, page.Normalize())
}

func (l *refundLedger) GetRefund(ctx context.Context, id string) (*model.Refund, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return l.refunds.FindRefundByID(ctx, repository.NoTX, id)
}
