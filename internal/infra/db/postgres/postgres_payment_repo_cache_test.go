//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"subscription-commerce/internal/domain"
	"subscription-commerce/internal/domain/model"
	"subscription-commerce/internal/domain/ports/repository"
	red "subscription-commerce/internal/infra/redis"
)

func TestPaymentRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	payment := &model.Payment{
		ID:        "pay-1",
		OrderID:   "order_1",
		PaymentID: "pay_gw_1",
		Amount:    49900,
		Currency:  "INR",
		Status:    model.PaymentStatusVerified,
		CreatedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	paymentJSON, _ := json.Marshal(payment)

	t.Run("FindPaymentByID should return from cache on hit", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "payment:pay-1" {
					t.Errorf("unexpected cache key %q", key)
				}
				return string(paymentJSON), nil
			},
		}
		innerRepoCalled := false
		mockInner := &mockInnerPaymentRepo{
			FindPaymentByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
				innerRepoCalled = true
				return nil, nil
			},
		}
		decorator := NewPaymentRepoCacheDecorator(mockInner, mockRedis, time.Minute)

		// Act
		result, err := decorator.FindPaymentByID(ctx, nil, "pay-1")

		// Assert
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on cache hit")
		}
		if result.PaymentID != "pay_gw_1" || result.Amount != 49900 {
			t.Errorf("unexpected payment from cache: %+v", result)
		}
	})

	t.Run("FindPaymentByTransactionID should load and populate cache on miss", func(t *testing.T) {
		// Arrange
		var setKey string
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", red.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setKey = key
				if expiration != time.Minute {
					t.Errorf("expected ttl 1m, got %v", expiration)
				}
				return nil
			},
		}
		mockInner := &mockInnerPaymentRepo{
			FindPaymentByTransactionIDFunc: func(ctx context.Context, tx repository.Tx, paymentID string) (*model.Payment, error) {
				return payment, nil
			},
		}
		decorator := NewPaymentRepoCacheDecorator(mockInner, mockRedis, time.Minute)

		// Act
		result, err := decorator.FindPaymentByTransactionID(ctx, nil, "pay_gw_1")

		// Assert
		if err != nil || result.ID != "pay-1" {
			t.Fatalf("expected payment from store, got %+v err=%v", result, err)
		}
		if setKey != "payment:txn:pay_gw_1" {
			t.Errorf("expected cache to be populated under payment:txn:pay_gw_1, got %q", setKey)
		}
	})

	t.Run("should not cache not-found results", func(t *testing.T) {
		setCalled := false
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", red.Nil },
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setCalled = true
				return nil
			},
		}
		mockInner := &mockInnerPaymentRepo{
			FindPaymentByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
				return nil, domain.ErrNotFound
			},
		}
		decorator := NewPaymentRepoCacheDecorator(mockInner, mockRedis, time.Minute)

		_, err := decorator.FindPaymentByID(ctx, nil, "missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if setCalled {
			t.Error("not-found must not be cached")
		}
	})

	t.Run("Save should invalidate both keys", func(t *testing.T) {
		var deleted []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deleted = append(deleted, keys...)
				return nil
			},
		}
		mockInner := &mockInnerPaymentRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, p *model.Payment) error { return nil },
		}
		decorator := NewPaymentRepoCacheDecorator(mockInner, mockRedis, time.Minute)

		if err := decorator.Save(ctx, nil, payment); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(deleted) != 2 || deleted[0] != "payment:pay-1" || deleted[1] != "payment:txn:pay_gw_1" {
			t.Errorf("unexpected invalidated keys: %v", deleted)
		}
	})
}
