package model

import "time"

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusProcessed RefundStatus = "PROCESSED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

func (s RefundStatus) Terminal() bool {
	return s == RefundStatusProcessed || s == RefundStatusFailed
}

func (s RefundStatus) Valid() bool {
	switch s {
	case RefundStatusPending, RefundStatusProcessed, RefundStatusFailed:
		return true
	}
	return false
}

type RefundSpeed string

const (
	RefundSpeedOptimum RefundSpeed = "optimum"
	RefundSpeedNormal  RefundSpeed = "normal"
)

func (s RefundSpeed) Valid() bool { return s == RefundSpeedOptimum || s == RefundSpeedNormal }

// Refund is one monetary movement back to the payer. It moves
// PENDING -> PROCESSED or PENDING -> FAILED exactly once and is never deleted.
// PaymentID references Payment.ID; RefundID is the gateway's identifier.
type Refund struct {
	ID               string            `json:"id"`
	RefundID         string            `json:"refundId,omitempty"`
	PaymentID        string            `json:"paymentId"`
	OrderID          string            `json:"orderId"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           RefundStatus      `json:"status"`
	SpeedRequested   RefundSpeed       `json:"speedRequested"`
	SpeedProcessed   RefundSpeed       `json:"speedProcessed,omitempty"`
	UserEmail        string            `json:"userEmail"`
	ProcessedBy      string            `json:"processedBy"`
	AcquirerData     map[string]string `json:"acquirerData,omitempty"`
	BatchID          string            `json:"batchId,omitempty"`
	ErrorCode        string            `json:"errorCode,omitempty"`
	ErrorDescription string            `json:"errorDescription,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	ProcessedAt      *time.Time        `json:"processedAt,omitempty"`
	FailedAt         *time.Time        `json:"failedAt,omitempty"`
}

// CountsAgainstPayment reports whether the amount is reserved against the
// original payment. Only FAILED refunds release their amount.
func (r *Refund) CountsAgainstPayment() bool { return r.Status != RefundStatusFailed }

// RefundFilter narrows ListRefunds. Zero values mean "any".
type RefundFilter struct {
	Status    RefundStatus
	PaymentID string
	UserEmail string
}

type Page struct {
	Number int // 1-based
	Size   int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Size > 200 {
		p.Size = 200
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }
