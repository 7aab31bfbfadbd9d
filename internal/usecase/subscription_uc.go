package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/adapter"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

const (
	sweepLockKey   = "lock:sweep:lifecycle"
	userLockPrefix = "lock:user:"
)

type SubscriptionUseCase interface {
	// Activate appends an ACTIVE subscription for service, creating the user
	// when needed. Calling it again for the same paymentID is a no-op.
	Activate(ctx context.Context, email, name string, service model.ServiceCode, paymentID string) (*model.Subscription, error)
	// CancelSubscription cancels the user's entitled subscription and notifies
	// them. A failed notification does not undo the cancellation.
	CancelSubscription(ctx context.Context, email string) (*model.Subscription, error)
	Status(ctx context.Context, email string) (*SubscriptionStatusView, error)
	// Sweep applies the time-based transitions to every user.
	Sweep(ctx context.Context) (SweepReport, error)
}

type SubscriptionView struct {
	model.Subscription
	DaysRemaining *int `json:"daysRemaining,omitempty"`
}

type SubscriptionStatusView struct {
	Email         string             `json:"email"`
	IsPremium     bool               `json:"isPremium"`
	Subscriptions []SubscriptionView `json:"subscriptions"`
}

// SweepReport summarizes one lifecycle sweep. Skipped is set when another
// instance held the sweep lock.
type SweepReport struct {
	Skipped      bool                             `json:"skipped"`
	Scanned      int                              `json:"scanned"`
	Updated      int                              `json:"updated"`
	ToGrace      int                              `json:"toGrace"`
	Expired      int                              `json:"expired"`
	Conflicts    int                              `json:"conflicts"`
	Failures     int                              `json:"failures"`
	StatusCounts map[model.SubscriptionStatus]int `json:"statusCounts"`
	Duration     time.Duration                    `json:"duration"`
}

type SubscriptionOptions struct {
	MaxWriteRetries int
	LockTTL         time.Duration
	SweepLockTTL    time.Duration
}

type subscriptionUC struct {
	users     repository.UserRepository
	catalog   CatalogUseCase
	lifecycle *LifecycleManager
	notifier  adapter.Notifier
	locker    adapter.Locker // optional
	clock     adapter.Clock
	opts      SubscriptionOptions

	log *zerolog.Logger
}

func NewSubscriptionUseCase(
	users repository.UserRepository,
	catalog CatalogUseCase,
	lifecycle *LifecycleManager,
	notifier adapter.Notifier,
	locker adapter.Locker,
	clock adapter.Clock,
	opts SubscriptionOptions,
	logger *zerolog.Logger,
) *subscriptionUC {
	if opts.MaxWriteRetries <= 0 {
		opts.MaxWriteRetries = 3
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Second
	}
	if opts.SweepLockTTL <= 0 {
		opts.SweepLockTTL = 10 * time.Minute
	}
	if clock == nil {
		clock = adapter.SystemClock{}
	}
	l := logger.With().Str("component", "subscription_uc").Logger()
	return &subscriptionUC{
		users:     users,
		catalog:   catalog,
		lifecycle: lifecycle,
		notifier:  notifier,
		locker:    locker,
		clock:     clock,
		opts:      opts,
		log:       &l,
	}
}

// mutation computes the next aggregate from the stored one. Returning
// changed == false ends the write loop without touching the store.
type mutation func(u *model.User, now time.Time) (next *model.User, changed bool, err error)

// mutateUser is the read-compute-CAS loop every lifecycle write goes
// through. On a lost CAS the aggregate is re-read and fn re-applied, at most
// MaxWriteRetries times. create is used when the user does not exist yet; nil
// means a missing user is domain.ErrNotFound.
func (uc *subscriptionUC) mutateUser(ctx context.Context, email string, create func(now time.Time) (*model.User, error), fn mutation) (*model.User, error) {
	if uc.locker != nil {
		key := userLockPrefix + email
		token, err := uc.locker.TryLock(ctx, key, uc.opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("lock user: %w", err)
		}
		defer func() {
			if err := uc.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				uc.log.Warn().Err(err).Str("key", key).Msg("failed to release user lock")
			}
		}()
	}

	for attempt := 1; attempt <= uc.opts.MaxWriteRetries; attempt++ {
		now := uc.clock.Now()
		current, err := uc.users.FindByEmail(ctx, repository.NoTX, email)
		if errors.Is(err, domain.ErrNotFound) && create != nil {
			fresh, err := create(now)
			if err != nil {
				return nil, err
			}
			if err := uc.users.Create(ctx, repository.NoTX, fresh); err != nil {
				if errors.Is(err, domain.ErrVersionConflict) {
					continue // someone else created the user; retry as an update
				}
				return nil, err
			}
			return fresh, nil
		}
		if err != nil {
			return nil, err
		}

		next, changed, err := fn(current, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return current, nil
		}
		ok, err := uc.users.Update(ctx, repository.NoTX, next)
		if err != nil {
			return nil, err
		}
		if ok {
			return next, nil
		}
		uc.log.Debug().Int("attempt", attempt).Str("user_email", logging.RedactEmail(email, false)).Msg("user version conflict, retrying")
	}
	return nil, domain.ErrVersionConflict
}

func (uc *subscriptionUC) Activate(ctx context.Context, email, name string, service model.ServiceCode, paymentID string) (*model.Subscription, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUC.Activate")()
	email = model.NormalizeEmail(email)
	if email == "" || paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	offering, err := uc.catalog.Get(ctx, service)
	if err != nil {
		return nil, err
	}

	var activated model.Subscription
	newSub := func(now time.Time) model.Subscription {
		start := now.UTC()
		return model.Subscription{
			ID:              uuid.NewString(),
			Service:         offering.Code,
			StartDate:       start,
			EndDate:         start.Add(offering.Duration()),
			Status:          model.SubscriptionStatusActive,
			SourcePaymentID: paymentID,
			CreatedAt:       start,
		}
	}

	create := func(now time.Time) (*model.User, error) {
		u, err := model.NewUser(email, name, now)
		if err != nil {
			return nil, err
		}
		activated = newSub(now)
		u.Subscriptions = []model.Subscription{activated}
		u.IsPremium = true
		return u, nil
	}
	apply := func(u *model.User, now time.Time) (*model.User, bool, error) {
		for _, s := range u.Subscriptions {
			if s.SourcePaymentID == paymentID {
				activated = s
				return u, false, nil
			}
		}
		out := u.Clone()
		if _, ok := out.Entitled(); ok {
			// overlapping entitlements are allowed and stack independently
			uc.log.Warn().Str("service", string(service)).Msg("user already holds an entitled subscription")
		}
		activated = newSub(now)
		out.Subscriptions = append(out.Subscriptions, activated)
		out.UpdatedAt = now.UTC()
		out.RecomputePremium()
		return out, true, nil
	}

	if _, err := uc.mutateUser(ctx, email, create, apply); err != nil {
		return nil, err
	}
	uc.log.Info().Str("subscription_id", activated.ID).Str("service", string(activated.Service)).
		Time("end_date", activated.EndDate).Msg("subscription activated")
	return &activated, nil
}

func (uc *subscriptionUC) CancelSubscription(ctx context.Context, email string) (*model.Subscription, error) {
	defer logging.TraceDuration(uc.log, "SubscriptionUC.CancelSubscription")()
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(logging.WithUserEmail(ctx, email), uc.log)

	var cancelled model.Subscription
	_, err := uc.mutateUser(ctx, email, nil, func(u *model.User, now time.Time) (*model.User, bool, error) {
		next, sub, err := uc.lifecycle.Cancel(u, now)
		if err != nil {
			return nil, false, err
		}
		next.UpdatedAt = now.UTC()
		cancelled = sub
		return next, true, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSubscription) {
			log.Info().Msg("cancel requested without an entitled subscription")
		} else {
			log.Error().Err(err).Msg("cancellation failed")
		}
		return nil, err
	}
	log.Info().Str("subscription_id", cancelled.ID).Str("service", string(cancelled.Service)).Msg("subscription cancelled")

	notice := adapter.CancellationNotice{
		UserEmail:      email,
		Service:        cancelled.Service,
		SubscriptionID: cancelled.ID,
		EndDate:        cancelled.EndDate.Format(time.RFC3339),
	}
	if err := uc.notifier.NotifySubscriptionCancelled(ctx, notice); err != nil {
		log.Warn().Err(err).Msg("cancellation notification failed")
	}
	return &cancelled, nil
}

func (uc *subscriptionUC) Status(ctx context.Context, email string) (*SubscriptionStatusView, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	u, err := uc.users.FindByEmail(ctx, repository.NoTX, email)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()
	// present the state a sweep at this instant would produce
	u, _ = uc.lifecycle.Evaluate(u, now)

	view := &SubscriptionStatusView{Email: u.Email, IsPremium: u.IsPremium}
	for _, s := range u.Subscriptions {
		v := SubscriptionView{Subscription: s}
		if s.Status.Entitled() {
			if days, ok := DaysRemaining(s.EndDate.Format(time.RFC3339Nano), now); ok {
				v.DaysRemaining = &days
			}
		}
		view.Subscriptions = append(view.Subscriptions, v)
	}
	return view, nil
}

func (uc *subscriptionUC) Sweep(ctx context.Context) (SweepReport, error) {
	start := time.Now()
	report := SweepReport{StatusCounts: map[model.SubscriptionStatus]int{}}

	if uc.locker != nil {
		token, err := uc.locker.TryLock(ctx, sweepLockKey, uc.opts.SweepLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				uc.log.Info().Msg("sweep already running elsewhere, skipping")
				report.Skipped = true
				return report, nil
			}
			return report, fmt.Errorf("lock sweep: %w", err)
		}
		defer func() {
			if err := uc.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
				uc.log.Warn().Err(err).Msg("failed to release sweep lock")
			}
		}()
	}

	users, err := uc.users.ListAll(ctx, repository.NoTX)
	if err != nil {
		return report, err
	}

	for _, u := range users {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Scanned++

		var toGrace, expired int
		final, err := uc.mutateUser(ctx, u.Email, nil, func(cur *model.User, now time.Time) (*model.User, bool, error) {
			next, changed := uc.lifecycle.Evaluate(cur, now)
			toGrace, expired = countTransitions(cur, next)
			if changed {
				next.UpdatedAt = now.UTC()
			}
			return next, changed, nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrLockNotAcquired) {
				report.Conflicts++
			} else {
				report.Failures++
			}
			uc.log.Warn().Err(err).Str("user_email", logging.RedactEmail(u.Email, false)).Msg("sweep: user skipped")
			continue
		}
		if toGrace+expired > 0 {
			report.Updated++
		}
		report.ToGrace += toGrace
		report.Expired += expired
		for _, s := range final.Subscriptions {
			report.StatusCounts[s.Status]++
		}
	}

	report.Duration = time.Since(start)
	uc.log.Info().
		Int("scanned", report.Scanned).
		Int("to_grace", report.ToGrace).
		Int("expired", report.Expired).
		Int("conflicts", report.Conflicts).
		Int("failures", report.Failures).
		Dur("duration", report.Duration).
		Msg("lifecycle sweep finished")
	return report, nil
}

// countTransitions compares subscriptions position by position; lifecycle
// transitions never reorder or drop entries.
func countTransitions(before, after *model.User) (toGrace, expired int) {
	for i := range after.Subscriptions {
		if i >= len(before.Subscriptions) {
			break
		}
		from, to := before.Subscriptions[i].Status, after.Subscriptions[i].Status
		if from == to {
			continue
		}
		switch to {
		case model.SubscriptionStatusGracePeriod:
			toGrace++
		case model.SubscriptionStatusExpired:
			expired++
			if from == model.SubscriptionStatusActive {
				toGrace++
			}
		}
	}
	return toGrace, expired
}
