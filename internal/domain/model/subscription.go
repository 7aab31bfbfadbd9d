package model

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusActive      SubscriptionStatus = "ACTIVE"
	SubscriptionStatusGracePeriod SubscriptionStatus = "GRACE_PERIOD"
	SubscriptionStatusExpired     SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled   SubscriptionStatus = "CANCELLED"
)

// Entitled reports whether the status still grants access to the service.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusGracePeriod
}

// Terminal reports whether no further lifecycle transition is possible.
func (s SubscriptionStatus) Terminal() bool {
	return s == SubscriptionStatusExpired || s == SubscriptionStatusCancelled
}

// Subscription is one time-boxed entitlement embedded in a User aggregate.
// CancelledAt is set iff Status is CANCELLED. GracePeriodEnd is set once, on
// the ACTIVE -> GRACE_PERIOD transition, and kept through EXPIRED.
type Subscription struct {
	ID              string             `json:"id"`
	Service         ServiceCode        `json:"service"`
	StartDate       time.Time          `json:"startDate"`
	EndDate         time.Time          `json:"endDate"`
	Status          SubscriptionStatus `json:"status"`
	CancelledAt     *time.Time         `json:"cancelledAt,omitempty"`
	GracePeriodEnd  *time.Time         `json:"gracePeriodEnd,omitempty"`
	SourcePaymentID string             `json:"sourcePaymentId"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// Clone returns a deep copy; optional timestamps are not shared.
func (s Subscription) Clone() Subscription {
	out := s
	if s.CancelledAt != nil {
		t := *s.CancelledAt
		out.CancelledAt = &t
	}
	if s.GracePeriodEnd != nil {
		t := *s.GracePeriodEnd
		out.GracePeriodEnd = &t
	}
	return out
}
