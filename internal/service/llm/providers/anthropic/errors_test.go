package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"

	"planwise/internal/domain"
)

func TestMapError(t *testing.T) {
	throttled := &anthropic.Error{
		StatusCode: http.StatusTooManyRequests,
		Response:   &http.Response{Header: http.Header{"Retry-After": []string{"7"}}},
	}

	tests := []struct {
		name string
		err  error
		kind domain.Kind
	}{
		{"rate limited", throttled, domain.KindRateLimited},
		{"overloaded", &anthropic.Error{StatusCode: 529}, domain.KindRateLimited},
		{"bad key", &anthropic.Error{StatusCode: http.StatusUnauthorized}, domain.KindUnauthorized},
		{"server error", &anthropic.Error{StatusCode: http.StatusInternalServerError}, domain.KindAIService},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), domain.KindAIService},
		{"transport", errors.New("connection reset"), domain.KindAIService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, domain.KindOf(mapError(context.Background(), tt.err)))
		})
	}
}

func TestMapError_RetryAfterAndTimeout(t *testing.T) {
	err := mapError(context.Background(), &anthropic.Error{
		StatusCode: http.StatusTooManyRequests,
		Response:   &http.Response{Header: http.Header{"Retry-After": []string{"7"}}},
	})
	var limited *domain.RateLimitedError
	assert.True(t, errors.As(err, &limited))
	assert.Equal(t, 7*time.Second, limited.RetryAfter)

	err = mapError(context.Background(), context.DeadlineExceeded)
	var aiErr *domain.AIServiceError
	assert.True(t, errors.As(err, &aiErr))
	assert.True(t, aiErr.Timeout)
}

func TestMapError_CallerCancellationPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mapError(ctx, fmt.Errorf("post: %w", context.Canceled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}
