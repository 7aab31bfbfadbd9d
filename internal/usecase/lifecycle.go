package usecase

import (
	"math"
	"time"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
)

// LifecycleManager holds the subscription state machine:
//
//	ACTIVE --(now > endDate)--------> GRACE_PERIOD --(now > gracePeriodEnd)--> EXPIRED
//	ACTIVE | GRACE_PERIOD --cancel--> CANCELLED
//
// All methods are pure. They never mutate the user passed in and return a
// copy when something changed; persisting it is the caller's job.
type LifecycleManager struct {
	gracePeriod time.Duration
}

func NewLifecycleManager(gracePeriodHours int) *LifecycleManager {
	if gracePeriodHours < 0 {
		gracePeriodHours = 0
	}
	return &LifecycleManager{gracePeriod: time.Duration(gracePeriodHours) * time.Hour}
}

func (m *LifecycleManager) GracePeriod() time.Duration { return m.gracePeriod }

// EvaluateExpiry moves every ACTIVE subscription whose end date has passed
// into GRACE_PERIOD. gracePeriodEnd is fixed at that moment and never
// recomputed. When nothing applies the original pointer is returned with
// changed == false.
func (m *LifecycleManager) EvaluateExpiry(u *model.User, now time.Time) (*model.User, bool) {
	if u == nil {
		return nil, false
	}
	var out *model.User
	for i, s := range u.Subscriptions {
		if s.Status != model.SubscriptionStatusActive || !now.After(s.EndDate) {
			continue
		}
		if out == nil {
			out = u.Clone()
		}
		sub := &out.Subscriptions[i]
		sub.Status = model.SubscriptionStatusGracePeriod
		if sub.GracePeriodEnd == nil {
			end := s.EndDate.Add(m.gracePeriod)
			sub.GracePeriodEnd = &end
		}
	}
	if out == nil {
		return u, false
	}
	return out, true
}

// EvaluateGracePeriodExpiry moves GRACE_PERIOD subscriptions past their
// gracePeriodEnd to EXPIRED and recomputes IsPremium. A premium flag that
// disagrees with the subscriptions also counts as a change.
func (m *LifecycleManager) EvaluateGracePeriodExpiry(u *model.User, now time.Time) (*model.User, bool) {
	if u == nil {
		return nil, false
	}
	out := u.Clone()
	changed := false
	for i := range out.Subscriptions {
		sub := &out.Subscriptions[i]
		if sub.Status != model.SubscriptionStatusGracePeriod {
			continue
		}
		if sub.GracePeriodEnd == nil {
			// record written before gracePeriodEnd existed; derive it once
			end := sub.EndDate.Add(m.gracePeriod)
			sub.GracePeriodEnd = &end
			changed = true
		}
		if now.After(*sub.GracePeriodEnd) {
			sub.Status = model.SubscriptionStatusExpired
			changed = true
		}
	}
	out.RecomputePremium()
	if out.IsPremium != u.IsPremium {
		changed = true
	}
	if !changed {
		return u, false
	}
	return out, true
}

// Cancel cancels the first ACTIVE or GRACE_PERIOD subscription. The returned
// user has IsPremium cleared; the returned subscription is the cancelled one.
func (m *LifecycleManager) Cancel(u *model.User, now time.Time) (*model.User, model.Subscription, error) {
	if u == nil {
		return nil, model.Subscription{}, domain.ErrNoActiveSubscription
	}
	out := u.Clone()
	sub, ok := out.Entitled()
	if !ok {
		return u, model.Subscription{}, domain.ErrNoActiveSubscription
	}
	at := now.UTC()
	sub.Status = model.SubscriptionStatusCancelled
	sub.CancelledAt = &at
	out.IsPremium = false
	return out, sub.Clone(), nil
}

// Evaluate runs both time-based transitions, in order.
func (m *LifecycleManager) Evaluate(u *model.User, now time.Time) (*model.User, bool) {
	afterExpiry, c1 := m.EvaluateExpiry(u, now)
	afterGrace, c2 := m.EvaluateGracePeriodExpiry(afterExpiry, now)
	return afterGrace, c1 || c2
}

var endDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// DaysRemaining returns max(0, ceil(days until endDate)). ok is false when
// endDate cannot be parsed; bad data is reported, not fatal.
func DaysRemaining(endDate string, now time.Time) (int, bool) {
	var end time.Time
	parsed := false
	for _, layout := range endDateLayouts {
		t, err := time.Parse(layout, endDate)
		if err == nil {
			end, parsed = t, true
			break
		}
	}
	if !parsed {
		return 0, false
	}
	d := end.Sub(now)
	if d <= 0 {
		return 0, true
	}
	return int(math.Ceil(d.Hours() / 24)), true
}
