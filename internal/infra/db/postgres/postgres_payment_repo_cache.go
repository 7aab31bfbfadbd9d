package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
	"subscription-commerce/internal/infra/metrics"
	red "subscription-commerce/internal/infra/redis"
)

var _ repository.PaymentRepository = (*paymentRepoCacheDecorator)(nil)

// paymentRepoCacheDecorator caches payment lookups in redis. Reads inside a
// database transaction go straight to the store because they take a row lock.
type paymentRepoCacheDecorator struct {
	inner repository.PaymentRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPaymentRepoCacheDecorator(inner repository.PaymentRepository, cache red.RedisClient, ttl time.Duration) repository.PaymentRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &paymentRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func paymentKey(id string) string { return "payment:" + id }
func paymentTxnKey(paymentID string) string { return "payment:txn:" + paymentID }

func inTx(tx repository.Tx) bool {
	_, ok := tx.(pgx.Tx)
	return ok
}

func (d *paymentRepoCacheDecorator) lookup(ctx context.Context, key string, load func() (*model.Payment, error)) (*model.Payment, error) {
	if val, err := d.cache.Get(ctx, key); err == nil {
		var p model.Payment
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("payment", "hit")
			return &p, nil
		}
	}

	metrics.IncCacheRequest("payment", "miss")
	p, err := load()
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return p, nil
}

func (d *paymentRepoCacheDecorator) FindPaymentByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if inTx(tx) {
		return d.inner.FindPaymentByID(ctx, tx, id)
	}
	return d.lookup(ctx, paymentKey(id), func() (*model.Payment, error) {
		return d.inner.FindPaymentByID(ctx, tx, id)
	})
}

func (d *paymentRepoCacheDecorator) FindPaymentByTransactionID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error) {
	if inTx(tx) {
		return d.inner.FindPaymentByTransactionID(ctx, tx, paymentID)
	}
	return d.lookup(ctx, paymentTxnKey(paymentID), func() (*model.Payment, error) {
		return d.inner.FindPaymentByTransactionID(ctx, tx, paymentID)
	})
}

func (d *paymentRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	_ = d.cache.Del(ctx, paymentKey(p.ID), paymentTxnKey(p.PaymentID))
	return d.inner.Save(ctx, tx, p)
}

// SumVerified is an aggregate and never cached.
func (d *paymentRepoCacheDecorator) SumVerified(ctx context.Context, tx repository.Tx, currency string, since time.Time) (int64, error) {
	return d.inner.SumVerified(ctx, tx, currency, since)
}
