package assistant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
)

func TestLimiter(t *testing.T) {
	l := NewLimiter(2)
	require.NoError(t, l.Allow())
	require.NoError(t, l.Allow())

	err := l.Allow()
	var limited *domain.RateLimitedError
	require.True(t, errors.As(err, &limited))
	assert.Positive(t, limited.RetryAfter)

	// one token every 30s
	assert.LessOrEqual(t, limited.RetryAfter.Seconds(), 30.0)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Allow())
	}
}
