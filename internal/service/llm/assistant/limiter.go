package assistant

import (
	"time"

	"golang.org/x/time/rate"

	"planwise/internal/domain"
)

// Limiter is the process-wide token bucket in front of the provider. It
// rejects instead of waiting so callers can back off.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows perMinute calls per minute with bursts of the same size.
// A non-positive rate disables limiting.
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

// Allow takes one token or returns a *domain.RateLimitedError carrying the
// wait until the next token.
func (l *Limiter) Allow() error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return &domain.RateLimitedError{Message: "assistant request rate exceeded"}
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return &domain.RateLimitedError{
			Message:    "assistant request rate exceeded",
			RetryAfter: delay,
		}
	}
	return nil
}
