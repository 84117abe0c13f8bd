package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"planwise/internal/domain"
)

// mapError translates SDK failures into domain errors. Cancellation by the
// caller passes through unchanged.
func mapError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewAITimeoutError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, 529:
			return &domain.RateLimitedError{
				Message:    "anthropic is rate limiting requests",
				RetryAfter: retryAfter(apiErr.Response),
			}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &domain.UnauthorizedError{Message: "anthropic rejected the configured credentials"}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return domain.NewAITimeoutError(err)
		}
	}

	return &domain.AIServiceError{Message: "anthropic API call failed", Err: err}
}

// retryAfter reads the Retry-After header in seconds, zero when absent.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
