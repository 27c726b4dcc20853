package embedding

import (
	"context"
	"time"
)

// DefaultPacingDelay separates consecutive embedding batches.
const DefaultPacingDelay = time.Second

// Limiter paces provider calls. Wait blocks until the next call may start.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedDelay waits a constant duration before each call.
type FixedDelay struct {
	Delay time.Duration
}

func (f FixedDelay) Wait(ctx context.Context) error {
	if f.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(f.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}

// NewLimiter returns a FixedDelay for positive delays and NoDelay otherwise.
func NewLimiter(delay time.Duration) Limiter {
	if delay <= 0 {
		return NoDelay{}
	}
	return FixedDelay{Delay: delay}
}
