package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/logging"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentConfirmation is what the checkout page posts back after the
// gateway accepted a payment.
type PaymentConfirmation struct {
	OrderID   string            `json:"orderId"`
	PaymentID string            `json:"paymentId"`
	Signature string            `json:"signature"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Email     string            `json:"email"`
	Name      string            `json:"name"`
	Service   model.ServiceCode `json:"service"`
}

type PaymentUseCase interface {
	// Confirm verifies the checkout signature and records the payment. A
	// verified payment activates the purchased subscription. Confirming the
	// same gateway payment twice returns the stored record, provided the
	// replay carries a valid signature too.
	Confirm(ctx context.Context, in PaymentConfirmation) (*model.Payment, error)
	Get(ctx context.Context, id string) (*model.Payment, error)
}

type paymentUC struct {
	payments      repository.PaymentRepository
	catalog       CatalogUseCase
	subscriptions SubscriptionUseCase
	verifier      adapter.SignatureVerifier
	clock         adapter.Clock

	log *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	catalog CatalogUseCase,
	subscriptions SubscriptionUseCase,
	verifier adapter.SignatureVerifier,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *paymentUC {
	if clock == nil {
		clock = adapter.SystemClock{}
	}
	l := logger.With().Str("component", "payment_uc").Logger()
	return &paymentUC{
		payments:      payments,
		catalog:       catalog,
		subscriptions: subscriptions,
		verifier:      verifier,
		clock:         clock,
		log:           &l,
	}
}

func (in PaymentConfirmation) validate() error {
	var missing []string
	if strings.TrimSpace(in.OrderID) == "" {
		missing = append(missing, "orderId")
	}
	if strings.TrimSpace(in.PaymentID) == "" {
		missing = append(missing, "paymentId")
	}
	if strings.TrimSpace(in.Signature) == "" {
		missing = append(missing, "signature")
	}
	if model.NormalizeEmail(in.Email) == "" {
		missing = append(missing, "email")
	}
	if in.Service == "" {
		missing = append(missing, "service")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidArgument, strings.Join(missing, ", "))
	}
	if in.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	return nil
}

func (u *paymentUC) Confirm(ctx context.Context, in PaymentConfirmation) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Confirm")()
	if err := in.validate(); err != nil {
		return nil, err
	}
	email := model.NormalizeEmail(in.Email)
	log := logging.With(logging.WithUserEmail(ctx, email), u.log)

	existing, err := u.payments.FindPaymentByTransactionID(ctx, repository.NoTX, in.PaymentID)
	switch {
	case err == nil && existing.Status == model.PaymentStatusVerified:
		if !u.verifier.VerifyPayment(in.OrderID, in.PaymentID, in.Signature) {
			log.Warn().Str("order_id", in.OrderID).Msg("replayed confirmation signature mismatch")
			return nil, domain.ErrInvalidSignature
		}
		// replayed confirmation; make sure activation happened
		if _, err := u.subscriptions.Activate(ctx, existing.UserEmail, in.Name, existing.Service, existing.ID); err != nil {
			return nil, err
		}
		return existing, nil
	case err == nil:
		// an earlier attempt was rejected; a valid signature takes over its record
	case errors.Is(err, domain.ErrNotFound):
		existing = nil
	default:
		return nil, err
	}

	offering, err := u.catalog.Get(ctx, in.Service)
	if err != nil {
		return nil, err
	}

	p := &model.Payment{
		ID:        uuid.NewString(),
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
		Signature: in.Signature,
		Amount:    in.Amount,
		Currency:  strings.ToUpper(in.Currency),
		UserEmail: email,
		Service:   offering.Code,
		CreatedAt: u.clock.Now().UTC(),
	}
	if existing != nil {
		p.ID = existing.ID
		p.AdminNote = existing.AdminNote
	}
	if p.Currency == "" {
		p.Currency = offering.Currency
	}

	if !u.verifier.VerifyPayment(in.OrderID, in.PaymentID, in.Signature) {
		if existing == nil {
			p.Status = model.PaymentStatusFailed
			if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
				log.Error().Err(err).Msg("failed to record rejected payment")
			}
		}
		log.Warn().Str("order_id", in.OrderID).Msg("payment signature mismatch")
		return nil, domain.ErrInvalidSignature
	}

	if in.Amount != offering.PriceMinor || p.Currency != offering.Currency {
		log.Warn().Int64("amount", in.Amount).Int64("price", offering.PriceMinor).Msg("payment amount does not match service price")
		return nil, fmt.Errorf("%w: amount %d %s does not match price %d %s",
			domain.ErrInvalidArgument, in.Amount, p.Currency, offering.PriceMinor, offering.Currency)
	}

	p.Status = model.PaymentStatusVerified
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	log.Info().Str("payment", p.ID).Int64("amount", p.Amount).Str("service", string(p.Service)).Msg("payment verified")

	if _, err := u.subscriptions.Activate(ctx, email, in.Name, p.Service, p.ID); err != nil {
		log.Error().Err(err).Str("payment", p.ID).Msg("payment verified but activation failed")
		return nil, err
	}
	return p, nil
}

func (u *paymentUC) Get(ctx context.Context, id string) (*model.Payment, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.payments.FindPaymentByID(ctx, repository.NoTX, id)
}
