package model

import (
	"strings"
	"time"

	"subscription-commerce/internal/domain"
)

// User is the aggregate root keyed by e-mail. Subscriptions hold the full
// entitlement history; Version is the optimistic-concurrency token checked by
// the store on every update.
type User struct {
	Email          string         `json:"email"`
	Name           string         `json:"name"`
	IsPremium      bool           `json:"isPremium"`
	TelegramChatID int64          `json:"telegramChatId,omitempty"`
	Subscriptions  []Subscription `json:"subscriptions"`
	Version        int64          `json:"version"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func NewUser(email, name string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		Email:     email,
		Name:      name,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Clone returns a deep copy so pure lifecycle functions never mutate the
// aggregate their caller read from the store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Subscriptions = make([]Subscription, len(u.Subscriptions))
	for i, s := range u.Subscriptions {
		out.Subscriptions[i] = s.Clone()
	}
	return &out
}

// RecomputePremium sets IsPremium to whether any subscription is still entitled.
func (u *User) RecomputePremium() {
	premium := false
	for _, s := range u.Subscriptions {
		if s.Status.Entitled() {
			premium = true
			break
		}
	}
	u.IsPremium = premium
}

// Entitled returns the first ACTIVE or GRACE_PERIOD subscription, if any.
func (u *User) Entitled() (*Subscription, bool) {
	for i := range u.Subscriptions {
		if u.Subscriptions[i].Status.Entitled() {
			return &u.Subscriptions[i], true
		}
	}
	return nil, false
}
