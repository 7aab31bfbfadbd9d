//go:build !integration

package usecase_test

import (
	"errors"
	"testing"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/usecase"
)

func userWith(subs ...model.Subscription) *model.User {
	u := &model.User{Email: "alice@example.com", Subscriptions: subs}
	u.RecomputePremium()
	return u
}

func sub(status model.SubscriptionStatus, end string) model.Subscription {
	e := mustTime(end)
	return model.Subscription{
		ID:        "sub-" + string(status),
		Service:   "pro",
		StartDate: e.AddDate(0, -1, 0),
		EndDate:   e,
		Status:    status,
	}
}

func TestLifecycle_EvaluateExpiry(t *testing.T) {
	m := usecase.NewLifecycleManager(48)

	t.Run("should move an ended ACTIVE subscription into grace", func(t *testing.T) {
		// --- Arrange ---
		u := userWith(sub(model.SubscriptionStatusActive, "2025-01-10T00:00:00Z"))

		// --- Act ---
		out, changed := m.EvaluateExpiry(u, mustTime("2025-01-11T00:00:00Z"))

		// --- Assert ---
		if !changed {
			t.Fatal("expected a change")
		}
		got := out.Subscriptions[0]
		if got.Status != model.SubscriptionStatusGracePeriod {
			t.Fatalf("expected GRACE_PERIOD, got %s", got.Status)
		}
		if got.GracePeriodEnd == nil || !got.GracePeriodEnd.Equal(mustTime("2025-01-12T00:00:00Z")) {
			t.Fatalf("unexpected gracePeriodEnd %v", got.GracePeriodEnd)
		}
		if u.Subscriptions[0].Status != model.SubscriptionStatusActive || u.Subscriptions[0].GracePeriodEnd != nil {
			t.Fatal("input aggregate must not be mutated")
		}
	})

	t.Run("should leave a subscription alone at exactly its end date", func(t *testing.T) {
		u := userWith(sub(model.SubscriptionStatusActive, "2025-01-10T00:00:00Z"))
		out, changed := m.EvaluateExpiry(u, mustTime("2025-01-10T00:00:00Z"))
		if changed || out != u {
			t.Fatal("now == endDate is not past the end date")
		}
	})

	t.Run("should be idempotent and never recompute gracePeriodEnd", func(t *testing.T) {
		u := userWith(sub(model.SubscriptionStatusActive, "2025-01-10T00:00:00Z"))
		first, _ := m.EvaluateExpiry(u, mustTime("2025-01-11T00:00:00Z"))

		second, changed := m.EvaluateExpiry(first, mustTime("2025-01-11T06:00:00Z"))
		if changed {
			t.Fatal("re-evaluating a GRACE_PERIOD subscription must not change it")
		}
		if !second.Subscriptions[0].GracePeriodEnd.Equal(*first.Subscriptions[0].GracePeriodEnd) {
			t.Fatal("gracePeriodEnd changed between evaluations")
		}

		other := usecase.NewLifecycleManager(1)
		third, _ := other.EvaluateExpiry(first, mustTime("2025-02-01T00:00:00Z"))
		if !third.Subscriptions[0].GracePeriodEnd.Equal(mustTime("2025-01-12T00:00:00Z")) {
			t.Fatal("gracePeriodEnd must not follow a changed configuration")
		}
	})

	t.Run("should ignore terminal subscriptions", func(t *testing.T) {
		u := userWith(
			sub(model.SubscriptionStatusExpired, "2024-01-01T00:00:00Z"),
			sub(model.SubscriptionStatusCancelled, "2024-06-01T00:00:00Z"),
		)
		if _, changed := m.EvaluateExpiry(u, mustTime("2025-01-01T00:00:00Z")); changed {
			t.Fatal("terminal subscriptions have no outgoing transitions")
		}
	})
}

func TestLifecycle_EvaluateGracePeriodExpiry(t *testing.T) {
	m := usecase.NewLifecycleManager(48)

	graceUntil := func(end, graceEnd string) model.Subscription {
		s := sub(model.SubscriptionStatusGracePeriod, end)
		g := mustTime(graceEnd)
		s.GracePeriodEnd = &g
		return s
	}

	t.Run("should expire after gracePeriodEnd and clear premium", func(t *testing.T) {
		u := userWith(graceUntil("2025-01-10T00:00:00Z", "2025-01-12T00:00:00Z"))
		if !u.IsPremium {
			t.Fatal("precondition: grace period is still premium")
		}

		out, changed := m.EvaluateGracePeriodExpiry(u, mustTime("2025-01-12T00:00:01Z"))

		if !changed {
			t.Fatal("expected a change")
		}
		if out.Subscriptions[0].Status != model.SubscriptionStatusExpired {
			t.Fatalf("expected EXPIRED, got %s", out.Subscriptions[0].Status)
		}
		if out.Subscriptions[0].GracePeriodEnd == nil {
			t.Fatal("gracePeriodEnd must be kept on EXPIRED")
		}
		if out.IsPremium {
			t.Fatal("expected isPremium=false")
		}
	})

	t.Run("should keep premium while another subscription is active", func(t *testing.T) {
		u := userWith(
			graceUntil("2025-01-10T00:00:00Z", "2025-01-12T00:00:00Z"),
			sub(model.SubscriptionStatusActive, "2025-03-01T00:00:00Z"),
		)
		out, changed := m.EvaluateGracePeriodExpiry(u, mustTime("2025-01-13T00:00:00Z"))
		if !changed || !out.IsPremium {
			t.Fatalf("changed=%v premium=%v", changed, out.IsPremium)
		}
	})

	t.Run("should repair a stale premium flag", func(t *testing.T) {
		u := userWith(sub(model.SubscriptionStatusExpired, "2024-01-01T00:00:00Z"))
		u.IsPremium = true
		out, changed := m.EvaluateGracePeriodExpiry(u, mustTime("2025-01-01T00:00:00Z"))
		if !changed || out.IsPremium {
			t.Fatal("isPremium must be recomputed from subscription statuses")
		}
	})

	t.Run("should not change anything inside the grace window", func(t *testing.T) {
		u := userWith(graceUntil("2025-01-10T00:00:00Z", "2025-01-12T00:00:00Z"))
		out, changed := m.EvaluateGracePeriodExpiry(u, mustTime("2025-01-11T12:00:00Z"))
		if changed || out != u {
			t.Fatal("expected no change")
		}
	})
}

func TestLifecycle_Cancel(t *testing.T) {
	m := usecase.NewLifecycleManager(48)
	now := mustTime("2025-01-05T10:00:00Z")

	for _, status := range []model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusGracePeriod} {
		t.Run("should cancel from "+string(status), func(t *testing.T) {
			u := userWith(sub(status, "2025-01-10T00:00:00Z"))

			out, cancelled, err := m.Cancel(u, now)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cancelled.Status != model.SubscriptionStatusCancelled || cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(now) {
				t.Fatalf("unexpected cancelled subscription %+v", cancelled)
			}
			if out.IsPremium {
				t.Fatal("expected isPremium=false after cancel")
			}
			if u.Subscriptions[0].Status != status {
				t.Fatal("input aggregate must not be mutated")
			}
		})
	}

	for _, status := range []model.SubscriptionStatus{model.SubscriptionStatusExpired, model.SubscriptionStatusCancelled} {
		t.Run("should reject cancel from "+string(status), func(t *testing.T) {
			u := userWith(sub(status, "2025-01-10T00:00:00Z"))
			_, _, err := m.Cancel(u, now)
			if !errors.Is(err, domain.ErrNoActiveSubscription) {
				t.Fatalf("expected ErrNoActiveSubscription, got %v", err)
			}
			if !errors.Is(err, domain.ErrBusinessRule) {
				t.Fatal("ErrNoActiveSubscription should be a business-rule error")
			}
		})
	}

	t.Run("should cancel only the first entitled subscription", func(t *testing.T) {
		u := userWith(
			sub(model.SubscriptionStatusExpired, "2024-01-01T00:00:00Z"),
			sub(model.SubscriptionStatusActive, "2025-02-01T00:00:00Z"),
			sub(model.SubscriptionStatusGracePeriod, "2025-01-04T00:00:00Z"),
		)
		out, cancelled, err := m.Cancel(u, now)
		if err != nil {
			t.Fatal(err)
		}
		if cancelled.ID != "sub-ACTIVE" {
			t.Fatalf("cancelled %s, want sub-ACTIVE", cancelled.ID)
		}
		if out.Subscriptions[2].Status != model.SubscriptionStatusGracePeriod {
			t.Fatal("only one subscription should be cancelled")
		}
	})
}

func TestDaysRemaining(t *testing.T) {
	now := mustTime("2025-01-10T12:00:00Z")
	cases := []struct {
		name   string
		end    string
		want   int
		wantOK bool
	}{
		{"half a day rounds up", "2025-01-11T00:00:00Z", 1, true},
		{"exact days", "2025-01-13T12:00:00Z", 3, true},
		{"past is zero", "2025-01-01T00:00:00Z", 0, true},
		{"now is zero", "2025-01-10T12:00:00Z", 0, true},
		{"date only", "2025-01-12", 2, true},
		{"fractional seconds", "2025-01-10T12:00:00.5Z", 1, true},
		{"garbage", "not-a-date", 0, false},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := usecase.DaysRemaining(tc.end, now)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("DaysRemaining(%q) = (%d, %v), want (%d, %v)", tc.end, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
