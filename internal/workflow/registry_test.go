package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
)

func TestNewRegistry_LoadsNineOrderedSteps(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	steps := r.List()
	require.Len(t, steps, StepCount)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Number)
		assert.NotEmpty(t, s.Key)
		assert.NotEmpty(t, s.Title)
		assert.NotEmpty(t, s.Guidance)
		assert.NotEmpty(t, s.Outline, "step %d has no outline", s.Number)
	}
	assert.Equal(t, "problem_statement", steps[0].Key)
}

func TestRegistry_Get(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	s, err := r.Get(6)
	require.NoError(t, err)
	assert.Equal(t, "technical_architecture", s.Key)

	for _, n := range []int{0, 10, -1} {
		_, err := r.Get(n)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))
	}
}

func TestParseRegistry_RejectsBadTables(t *testing.T) {
	_, err := parseRegistry([]byte("steps:\n  a:\n    number: 1\n    title: A\n"))
	require.Error(t, err, "incomplete table")

	_, err = parseRegistry([]byte("steps:\n  a:\n    title: A\n"))
	require.Error(t, err, "missing number")

	_, err = parseRegistry([]byte("steps:\n  a:\n    number: 12\n"))
	require.Error(t, err, "out of range")
}

func TestRegistry_ListReturnsCopy(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	steps := r.List()
	steps[0].Title = "changed"

	s, err := r.Get(1)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", s.Title)
}
