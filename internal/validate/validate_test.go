package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/config"
	"planwise/internal/domain"
	"planwise/internal/domain/models/planning"
)

func requireValidation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation), "expected validation error, got %v", err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestID(t *testing.T) {
	require.NoError(t, ID("document_id", uuid.NewString()))
	requireValidation(t, ID("document_id", ""))
	requireValidation(t, ID("document_id", "not-a-uuid"))

	err := ID("project_id", "nope")
	assert.Contains(t, err.Error(), "project_id")
}

func TestUserID(t *testing.T) {
	require.NoError(t, UserID("user-1"))

	err := UserID("  ")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	requireValidation(t, UserID(strings.Repeat("u", 256)))
}

func TestStep(t *testing.T) {
	for step := config.MinWorkflowStep; step <= config.MaxWorkflowStep; step++ {
		assert.NoError(t, Step(step), "step %d", step)
	}
	for _, step := range []int{0, -1, 10, 100} {
		requireValidation(t, Step(step))
	}
}

func TestVersion(t *testing.T) {
	require.NoError(t, Version("version", 1))
	requireValidation(t, Version("version", 0))
	requireValidation(t, Version("version", -3))
}

func TestTitleAndContent(t *testing.T) {
	require.NoError(t, Title("Vision"))
	requireValidation(t, Title(""))
	requireValidation(t, Title("   "))
	requireValidation(t, Title(strings.Repeat("t", config.MaxDocumentTitleLength+1)))

	require.NoError(t, Content(""))
	require.NoError(t, Content(strings.Repeat("é", config.MaxDocumentContentLength)))
	requireValidation(t, Content(strings.Repeat("c", config.MaxDocumentContentLength+1)))
}

func TestChatMessage(t *testing.T) {
	require.NoError(t, ChatMessage("hello"))
	requireValidation(t, ChatMessage(""))
	requireValidation(t, ChatMessage(strings.Repeat("m", config.MaxChatMessageLength+1)))
}

func TestReason(t *testing.T) {
	require.NoError(t, Reason(nil))
	ok := "needs more detail"
	require.NoError(t, Reason(&ok))
	long := strings.Repeat("r", config.MaxRejectReasonLength+1)
	requireValidation(t, Reason(&long))
}

func TestStatus(t *testing.T) {
	s, err := Status("pending_approval")
	require.NoError(t, err)
	assert.Equal(t, planning.StatusPendingApproval, s)

	_, err = Status("approved")
	requireValidation(t, err)
	_, err = Status("")
	requireValidation(t, err)
}
