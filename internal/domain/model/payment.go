package model

import "time"

type PaymentStatus string

const (
	PaymentStatusVerified PaymentStatus = "verified" // signature matched at confirmation time
	PaymentStatusFailed   PaymentStatus = "failed"   // signature mismatch; kept for audit
)

// Payment is created once by the confirmation flow and is not revisited.
// Amount is in the smallest currency unit.
type Payment struct {
	ID        string
	OrderID   string // gateway order id
	PaymentID string // gateway payment (transaction) id
	Signature string
	Amount    int64
	Currency  string
	Status    PaymentStatus
	UserEmail string
	Service   ServiceCode
	CreatedAt time.Time

	// administrative annotation, the only mutable part of the record
	AdminNote string
}

// PaymentRefundSummary is the ledger view of one payment.
type PaymentRefundSummary struct {
	PaymentID       string `json:"paymentId"`
	Currency        string `json:"currency"`
	OriginalAmount  int64  `json:"originalAmount"`
	TotalRefunded   int64  `json:"totalRefunded"`
	RemainingAmount int64  `json:"remainingAmount"`
	FullyRefunded   bool   `json:"fullyRefunded"`
}

// NewPaymentRefundSummary derives remaining/fully-refunded from the two sums.
func NewPaymentRefundSummary(p *Payment, refunded int64) PaymentRefundSummary {
	remaining := p.Amount - refunded
	if remaining < 0 {
		remaining = 0
	}
	return PaymentRefundSummary{
		PaymentID:       p.ID,
		Currency:        p.Currency,
		OriginalAmount:  p.Amount,
		TotalRefunded:   refunded,
		RemainingAmount: remaining,
		FullyRefunded:   remaining == 0,
	}
}
