//go:build !integration

package postgres

import (
	"context"
	"time"

	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
	red "subscription-commerce/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPaymentRepo mocks the database repository that the payment decorator wraps.
type mockInnerPaymentRepo struct {
	SaveFunc                       func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindPaymentByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	FindPaymentByTransactionIDFunc func(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error)
	SumVerifiedFunc                func(ctx context.Context, tx repository.Tx, currency string, since time.Time) (int64, error)
}

func (m *mockInnerPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockInnerPaymentRepo) FindPaymentByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return m.FindPaymentByIDFunc(ctx, tx, id)
}
func (m *mockInnerPaymentRepo) FindPaymentByTransactionID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error) {
	return m.FindPaymentByTransactionIDFunc(ctx, tx, paymentID)
}
func (m *mockInnerPaymentRepo) SumVerified(ctx context.Context, tx repository.Tx, currency string, since time.Time) (int64, error) {
	return m.SumVerifiedFunc(ctx, tx, currency, since)
}

// mockInnerServiceRepo mocks the catalog repository.
type mockInnerServiceRepo struct {
	SaveFunc       func(ctx context.Context, tx repository.Tx, o *model.ServiceOffering) error
	FindByCodeFunc func(ctx context.Context, tx repository.Tx, code model.ServiceCode) (*model.ServiceOffering, error)
	ListActiveFunc func(ctx context.Context, tx repository.Tx) ([]*model.ServiceOffering, error)
}

func (m *mockInnerServiceRepo) Save(ctx context.Context, tx repository.Tx, o *model.ServiceOffering) error {
	return m.SaveFunc(ctx, tx, o)
}
func (m *mockInnerServiceRepo) FindByCode(ctx context.Context, tx repository.Tx, code model.ServiceCode) (*model.ServiceOffering, error) {
	return m.FindByCodeFunc(ctx, tx, code)
}
func (m *mockInnerServiceRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.ServiceOffering, error) {
	return m.ListActiveFunc(ctx, tx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
