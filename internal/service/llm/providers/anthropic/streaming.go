package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	domainllm "planwise/internal/domain/services/llm"
)

// StreamResponse generates a streaming response from Claude.
// Returns a channel that emits text deltas as they arrive from the API,
// followed by one metadata or error event.
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by Anthropic provider", req.Model)
	}

	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	eventChan := make(chan domainllm.StreamEvent, 10) // Buffered to prevent blocking

	go func() {
		defer close(eventChan)

		stream := p.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		// Accumulator for final message metadata
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				sendTerminal(ctx, eventChan, domainllm.StreamEvent{
					Error: fmt.Errorf("failed to accumulate message: %w", err),
				})
				return
			}

			delta, ok := textDelta(event)
			if !ok {
				continue
			}

			select {
			case <-ctx.Done():
				sendTerminal(ctx, eventChan, domainllm.StreamEvent{Error: ctx.Err()})
				return
			case eventChan <- domainllm.StreamEvent{TextDelta: delta}:
			}
		}

		if err := stream.Err(); err != nil {
			sendTerminal(ctx, eventChan, domainllm.StreamEvent{Error: mapError(ctx, err)})
			return
		}

		sendTerminal(ctx, eventChan, domainllm.StreamEvent{
			Metadata: &domainllm.StreamMetadata{
				Model:        string(message.Model),
				InputTokens:  int(message.Usage.InputTokens),
				OutputTokens: int(message.Usage.OutputTokens),
				StopReason:   string(message.StopReason),
			},
		})
	}()

	return eventChan, nil
}

// sendTerminal delivers the closing event unless the consumer has gone away.
func sendTerminal(ctx context.Context, ch chan<- domainllm.StreamEvent, event domainllm.StreamEvent) {
	select {
	case ch <- event:
	case <-ctx.Done():
	}
}

// textDelta extracts the text of a content_block_delta event.
//
// Anthropic stream events include MessageStart, ContentBlockStart,
// ContentBlockDelta, ContentBlockStop, MessageDelta and MessageStop; only
// text deltas carry output the assistant forwards.
func textDelta(event anthropic.MessageStreamEventUnion) (string, bool) {
	e, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
	if !ok || e.Delta.Type != "text_delta" || e.Delta.Text == "" {
		return "", false
	}
	return e.Delta.Text, true
}
