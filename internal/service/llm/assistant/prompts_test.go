package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"planwise/internal/domain/models/planning"
	domainllm "planwise/internal/domain/services/llm"
)

func TestBuildMessages(t *testing.T) {
	turns := []planning.ConversationTurn{
		{Role: planning.RoleAssistant, Content: "orphan reply"},
		{Role: planning.RoleUser, Content: "first"},
		{Role: planning.RoleUser, Content: "second, reply failed"},
		{Role: planning.RoleAssistant, Content: "answer"},
		{Role: planning.RoleUser, Content: "third"},
	}

	got := buildMessages(turns, "")
	assert.Equal(t, []domainllm.Message{
		{Role: domainllm.RoleUser, Text: "first\n\nsecond, reply failed"},
		{Role: domainllm.RoleAssistant, Text: "answer"},
		{Role: domainllm.RoleUser, Text: "third"},
	}, got)

	got = buildMessages(turns, "write it")
	assert.Equal(t, "third\n\nwrite it", got[len(got)-1].Text)

	got = buildMessages(turns[:4], "write it")
	assert.Equal(t, domainllm.Message{Role: domainllm.RoleUser, Text: "write it"}, got[len(got)-1])
}

func TestSplitDraft(t *testing.T) {
	title, content := splitDraft("\n# Launch plan\n\n## Milestones\n- beta", "Fallback")
	assert.Equal(t, "Launch plan", title)
	assert.Equal(t, "## Milestones\n- beta", content)

	title, content = splitDraft("## Milestones\n- beta", "Fallback")
	assert.Equal(t, "Fallback", title)
	assert.Equal(t, "## Milestones\n- beta", content)

	title, _ = splitDraft("#    \nbody", "Fallback")
	assert.Equal(t, "Fallback", title)
}
