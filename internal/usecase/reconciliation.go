package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/infra/logging"
)

const (
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

// Outcome is the result of an authenticated webhook delivery. Every outcome
// is a success from the sender's point of view.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// Delivery stages, logged as "stage" on every webhook.
const (
	stageReceived         = "received"
	stageSignatureChecked = "signature_checked"
	stageDeduplicated     = "deduplicated"
	stageApplied          = "applied"
	stageRejected         = "rejected"
)

// Compile-time check
var _ ReconciliationEngine = (*reconciliationEngine)(nil)

type ReconciliationEngine interface {
	// HandleWebhook authenticates rawBody against signature before parsing it,
	// then applies the refund event it carries.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (Outcome, error)
}

// webhookEnvelope mirrors the gateway's event JSON. Only the refund entity
// is read; other payload members are ignored.
type webhookEnvelope struct {
	Entity    string `json:"entity"`
	AccountID string `json:"account_id"`
	Event     string `json:"event"`
	Payload   struct {
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

type refundEntity struct {
	ID               string          `json:"id"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentID        string          `json:"payment_id"`
	Status           string          `json:"status"`
	SpeedProcessed   string          `json:"speed_processed"`
	SpeedRequested   string          `json:"speed_requested"`
	AcquirerData     json.RawMessage `json:"acquirer_data"`
	BatchID          *string         `json:"batch_id"`
	Notes            json.RawMessage `json:"notes"`
	Receipt          *string         `json:"receipt"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
}

type reconciliationEngine struct {
	verifier adapter.SignatureVerifier
	ledger   RefundLedger
	log      *zerolog.Logger
}

func NewReconciliationEngine(verifier adapter.SignatureVerifier, ledger RefundLedger, logger *zerolog.Logger) *reconciliationEngine {
	l := logger.With().Str("component", "reconciliation").Logger()
	return &reconciliationEngine{verifier: verifier, ledger: ledger, log: &l}
}

func (e *reconciliationEngine) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (Outcome, error) {
	log := logging.With(ctx, e.log)
	log.Debug().Str("stage", stageReceived).Int("bytes", len(rawBody)).Msg("webhook received")

	if !e.verifier.VerifyWebhook(rawBody, signature) {
		log.Warn().Str("stage", stageRejected).Msg("webhook signature mismatch")
		return "", domain.ErrInvalidSignature
	}
	log.Debug().Str("stage", stageSignatureChecked).Msg("webhook signature ok")

	ev, eventType, err := parseRefundEvent(rawBody)
	if err != nil {
		log.Warn().Err(err).Str("stage", stageRejected).Msg("malformed webhook")
		return "", err
	}
	log = logging.With(logging.WithRefundID(ctx, ev.RefundID), e.log)
	if ev.Status == "" {
		log.Info().Str("stage", stageApplied).Str("event", eventType).Msg("event type not handled, acknowledged")
		return OutcomeIgnored, nil
	}

	res, err := e.ledger.ApplyWebhookEvent(ctx, ev)
	if err != nil {
		log.Warn().Err(err).Str("stage", stageRejected).Str("event", eventType).Msg("webhook not applied")
		return "", err
	}
	if !res.Applied {
		log.Info().Str("stage", stageDeduplicated).Str("event", eventType).Msg("duplicate delivery acknowledged")
		return OutcomeDuplicate, nil
	}
	log.Info().Str("stage", stageApplied).Str("event", eventType).Str("status", string(ev.Status)).Msg("webhook applied")
	return OutcomeApplied, nil
}

// parseRefundEvent decodes the envelope. The returned event has an empty
// Status for event types that carry nothing to apply.
func parseRefundEvent(raw []byte) (WebhookRefundEvent, string, error) {
	var env webhookEnvelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return WebhookRefundEvent{}, "", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if strings.TrimSpace(env.Event) == "" {
		return WebhookRefundEvent{}, "", fmt.Errorf("%w: missing event", domain.ErrMalformedPayload)
	}

	var status model.RefundStatus
	switch env.Event {
	case EventRefundProcessed:
		status = model.RefundStatusProcessed
	case EventRefundFailed:
		status = model.RefundStatusFailed
	default:
		if !strings.HasPrefix(env.Event, "refund.") {
			return WebhookRefundEvent{}, env.Event, nil
		}
	}
	if env.Payload.Refund == nil || env.Payload.Refund.Entity.ID == "" {
		if status == "" {
			return WebhookRefundEvent{}, env.Event, nil
		}
		return WebhookRefundEvent{}, env.Event, fmt.Errorf("%w: missing refund entity id", domain.ErrMalformedPayload)
	}
	ent := env.Payload.Refund.Entity

	acquirer, err := flattenAcquirerData(ent.AcquirerData)
	if err != nil {
		return WebhookRefundEvent{}, env.Event, fmt.Errorf("%w: acquirer_data: %v", domain.ErrMalformedPayload, err)
	}
	ev := WebhookRefundEvent{
		RefundID:         ent.ID,
		GatewayPaymentID: ent.PaymentID,
		Amount:           ent.Amount,
		Currency:         strings.ToUpper(ent.Currency),
		Status:           status,
		SpeedProcessed:   model.RefundSpeed(strings.ToLower(ent.SpeedProcessed)),
		AcquirerData:     acquirer,
		ErrorCode:        ent.ErrorCode,
		ErrorDescription: ent.ErrorDescription,
	}
	if ent.BatchID != nil {
		ev.BatchID = *ent.BatchID
	}
	if ev.SpeedProcessed != "" && !ev.SpeedProcessed.Valid() {
		ev.SpeedProcessed = ""
	}
	return ev, env.Event, nil
}

// flattenAcquirerData turns {"arn":"X","rrn":null,"utr":12} into a string map,
// dropping nulls.
func flattenAcquirerData(raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "[]" {
		return nil, nil
	}
	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		case bool:
			out[k] = strconv.FormatBool(val)
		default:
			b, _ := json.Marshal(val)
			out[k] = string(b)
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
