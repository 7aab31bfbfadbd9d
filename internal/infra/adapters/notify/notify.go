// Package notify delivers refund and cancellation notices to users over
// e-mail and Telegram.
package notify

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
)

// ErrNoRecipient means the channel has no address for the user. It is not a
// delivery failure.
var ErrNoRecipient = errors.New("notify: no recipient for channel")

// Channel is one delivery medium.
type Channel interface {
	adapter.Notifier
	Name() string
}

func formatAmount(minor int64, currency string, exponent int32) string {
	return decimal.New(minor, -exponent).StringFixed(exponent) + " " + currency
}

func refundSubject(n adapter.RefundNotice) string {
	switch n.Status {
	case model.RefundStatusProcessed:
		return "Your refund has been processed"
	case model.RefundStatusFailed:
		return "Your refund could not be completed"
	default:
		return "Your refund has been initiated"
	}
}

func refundText(n adapter.RefundNotice, exponent int32) string {
	amount := formatAmount(n.Amount, n.Currency, exponent)
	switch n.Status {
	case model.RefundStatusProcessed:
		return fmt.Sprintf("Your refund of %s (ref %s) for payment %s has been processed. It should reach your account shortly.", amount, n.RefundID, n.PaymentID)
	case model.RefundStatusFailed:
		return fmt.Sprintf("Your refund of %s (ref %s) for payment %s failed. Our team will contact you.", amount, n.RefundID, n.PaymentID)
	default:
		return fmt.Sprintf("A refund of %s (ref %s) for payment %s has been initiated.", amount, n.RefundID, n.PaymentID)
	}
}

func cancellationText(n adapter.CancellationNotice) string {
	return fmt.Sprintf("Your %s subscription (%s) has been cancelled. Access was scheduled to end on %s.", n.Service, n.SubscriptionID, n.EndDate)
}
