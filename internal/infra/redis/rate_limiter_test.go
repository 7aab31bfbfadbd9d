package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeCounter struct {
	RedisClient
	counts  map[string]int64
	expired map[string]time.Duration
	incrErr error
}

func (f *fakeCounter) Incr(_ context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeCounter) Expire(_ context.Context, key string, d time.Duration) error {
	f.expired[key] = d
	return nil
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("should allow up to the limit and set the window once", func(t *testing.T) {
		fc := &fakeCounter{counts: map[string]int64{}, expired: map[string]time.Duration{}}
		rl := NewRateLimiter(fc)
		key := ClientRouteKey("payments.confirm", "10.0.0.1")

		for i := 0; i < 3; i++ {
			ok, err := rl.Allow(ctx, key, 3, time.Minute)
			if err != nil || !ok {
				t.Fatalf("call %d: expected allow, got ok=%v err=%v", i+1, ok, err)
			}
		}
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected the fourth call to be rejected")
		}
		if fc.expired[key] != time.Minute {
			t.Errorf("expected window of 1m, got %v", fc.expired[key])
		}
	})

	t.Run("should surface counter errors", func(t *testing.T) {
		boom := errors.New("redis down")
		rl := NewRateLimiter(&fakeCounter{incrErr: boom})
		if _, err := rl.Allow(ctx, "k", 1, time.Second); !errors.Is(err, boom) {
			t.Errorf("expected %v, got %v", boom, err)
		}
	})
}
