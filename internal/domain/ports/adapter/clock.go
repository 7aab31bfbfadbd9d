package adapter

import "time"

// Clock is injected wherever "now" matters so lifecycle tests can pin time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Useful for tests and one-shot replays.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
