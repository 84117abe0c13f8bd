package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planwise/internal/domain"
	domainllm "planwise/internal/domain/services/llm"
)

func TestStreamChat_DeltasThenComplete(t *testing.T) {
	provider := &fakeProvider{stream: streamWords("Start ", "with ", "interviews.")}
	f := newFixture(t, provider, Config{})

	events, err := f.assistant.StreamChat(context.Background(), alice, f.projectID, 1, "Where do we begin?")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 4)
	assert.Equal(t, "Start ", got[0].Delta)
	assert.Equal(t, "interviews.", got[2].Delta)

	final := got[3]
	assert.True(t, final.IsComplete)
	require.NoError(t, final.Err)
	require.NotNil(t, final.Turn)
	assert.Equal(t, "Start with interviews.", final.Turn.Content)

	turns := f.conversation(t, 1)
	require.Len(t, turns, 2)
	assert.Equal(t, final.Turn.ID, turns[1].ID)
}

func TestStreamChat_CancelPersistsOnlyUserTurn(t *testing.T) {
	started := make(chan struct{})
	provider := &fakeProvider{
		stream: func(ctx context.Context, _ *domainllm.GenerateRequest, out chan<- domainllm.StreamEvent) {
			out <- domainllm.StreamEvent{TextDelta: "Partial "}
			close(started)
			<-ctx.Done()
		},
	}
	f := newFixture(t, provider, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	events, err := f.assistant.StreamChat(ctx, alice, f.projectID, 1, "Draft the problem")
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, "Partial ", first.Delta)
	<-started
	cancel()

	for ev := range events {
		assert.False(t, ev.IsComplete, "no completion after cancel")
	}

	turns := f.conversation(t, 1)
	require.Len(t, turns, 1)
	assert.True(t, turns[0].IsUser())
}

func TestStreamChat_TimeoutEndsWithError(t *testing.T) {
	provider := &fakeProvider{
		stream: func(ctx context.Context, _ *domainllm.GenerateRequest, out chan<- domainllm.StreamEvent) {
			<-ctx.Done()
		},
	}
	f := newFixture(t, provider, Config{Timeout: 20 * time.Millisecond})

	events, err := f.assistant.StreamChat(context.Background(), alice, f.projectID, 1, "hello")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	var aiErr *domain.AIServiceError
	require.True(t, errors.As(got[0].Err, &aiErr))
	assert.True(t, aiErr.Timeout)
	assert.False(t, got[0].IsComplete)

	assert.Len(t, f.conversation(t, 1), 1)
}

func TestStreamChat_ProviderErrorEvent(t *testing.T) {
	provider := &fakeProvider{
		stream: func(ctx context.Context, _ *domainllm.GenerateRequest, out chan<- domainllm.StreamEvent) {
			out <- domainllm.StreamEvent{TextDelta: "Hel"}
			out <- domainllm.StreamEvent{Error: &domain.RateLimitedError{Message: "overloaded"}}
		},
	}
	f := newFixture(t, provider, Config{})

	events, err := f.assistant.StreamChat(context.Background(), alice, f.projectID, 1, "hello")
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, domain.KindRateLimited, domain.KindOf(got[1].Err))
	assert.Len(t, f.conversation(t, 1), 1)
}

func TestStreamChat_ValidatesBeforeStreaming(t *testing.T) {
	provider := &fakeProvider{stream: streamWords("x")}
	f := newFixture(t, provider, Config{})

	_, err := f.assistant.StreamChat(context.Background(), mallory, f.projectID, 1, "hello")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, provider.calls())
}

func TestStreamGenerateDocument(t *testing.T) {
	provider := &fakeProvider{stream: streamWords("# Field notebook\n", "## Problem\n", "Notes vanish.")}
	f := newFixture(t, provider, Config{})
	ctx := context.Background()

	_, err := f.assistant.Chat(ctx, alice, f.projectID, 1, "Notes vanish offline.")
	require.NoError(t, err)

	events, err := f.assistant.StreamGenerateDocument(ctx, alice, f.projectID, 1)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 4)
	final := got[3]
	assert.True(t, final.IsComplete)
	require.NotNil(t, final.Draft)
	assert.Equal(t, "Field notebook", final.Draft.Title)
	assert.Equal(t, "## Problem\nNotes vanish.", final.Draft.Content)
	assert.Nil(t, final.Turn)

	assert.Len(t, f.conversation(t, 1), 2)
}
