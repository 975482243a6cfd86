package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"NewsBroadcaster/internal/ports"
)

// DefaultSendDelay is the pause after every send that keeps gateways under their rate limits.
const DefaultSendDelay = 2 * time.Second

// FixedDelay pauses for the same duration after every send.
type FixedDelay struct {
	Delay time.Duration
}

var _ ports.Throttle = FixedDelay{}

// Wait sleeps for Delay or until ctx ends.
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

// TokenBucket lets short bursts through and holds the long-run rate at perSecond.
type TokenBucket struct {
	limiter *rate.Limiter
}

var _ ports.Throttle = (*TokenBucket)(nil)

// NewTokenBucket builds a limiter refilling perSecond tokens with the given burst.
func NewTokenBucket(perSecond float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until the next send is allowed.
func (t *TokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
