package lorem

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainllm "planwise/internal/domain/services/llm"
)

func newInstantProvider() *Provider {
	p := NewProvider()
	p.delay = func(string) time.Duration { return 0 }
	return p
}

func TestProvider_SupportsModel(t *testing.T) {
	p := NewProvider()
	assert.True(t, p.SupportsModel("lorem-fast"))
	assert.False(t, p.SupportsModel("claude-haiku-4-5"))
	assert.Equal(t, "lorem", p.Name())
}

func TestProvider_GenerateResponse(t *testing.T) {
	p := newInstantProvider()

	resp, err := p.GenerateResponse(context.Background(), &domainllm.GenerateRequest{
		Model:     "lorem-fast",
		System:    "be brief",
		Messages:  []domainllm.Message{{Role: domainllm.RoleUser, Text: "hello there"}},
		MaxTokens: 30,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Text)
	assert.Equal(t, 4, resp.InputTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	_, err = p.GenerateResponse(context.Background(), &domainllm.GenerateRequest{Model: "gpt-4"})
	assert.Error(t, err)
}

func TestProvider_StreamRespectsBudget(t *testing.T) {
	p := newInstantProvider()

	events, err := p.StreamResponse(context.Background(), &domainllm.GenerateRequest{
		Model:     "lorem-fast",
		MaxTokens: 12,
	})
	require.NoError(t, err)

	var text strings.Builder
	var meta *domainllm.StreamMetadata
	for ev := range events {
		require.NoError(t, ev.Error)
		text.WriteString(ev.TextDelta)
		if ev.Metadata != nil {
			meta = ev.Metadata
		}
	}

	require.NotNil(t, meta)
	assert.Equal(t, 12, meta.OutputTokens)
	assert.Len(t, strings.Fields(text.String()), 12)
}

func TestProvider_StreamStopsOnCancel(t *testing.T) {
	p := NewProvider()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := p.StreamResponse(ctx, &domainllm.GenerateRequest{Model: "lorem-slow", MaxTokens: 100})
	require.NoError(t, err)

	<-events
	cancel()

	done := make(chan struct{})
	go func() {
		for range events {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}
