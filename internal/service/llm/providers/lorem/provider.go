package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	domainllm "planwise/internal/domain/services/llm"
)

// Provider is a mock LLM provider that generates lorem ipsum text.
// Used for development without requiring real API keys.
type Provider struct {
	generator *loremgen.Lorem
	// delay scales the per-word stream delay; zero streams without pauses
	delay func(model string) time.Duration
}

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     getStreamDelay,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// GenerateResponse generates a complete lorem ipsum response after the
// model's full streaming time, simulating a blocking API call.
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	text := p.generateTextWords(maxWords(req))
	words := len(strings.Fields(text))

	select {
	case <-time.After(time.Duration(words) * p.delay(req.Model)):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &domainllm.GenerateResponse{
		Text:         text,
		Model:        req.Model,
		InputTokens:  estimateTokens(req),
		OutputTokens: words, // Word count as proxy
		StopReason:   "end_turn",
	}, nil
}

// getStreamDelay returns the delay between words based on the model name.
// - lorem-slow: 2 words/second (500ms per word)
// - lorem-fast: 30 words/second (33ms per word)
// - default: 10 words/second
func getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 500 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 33 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// StreamResponse generates a streaming lorem ipsum response.
// Speed varies based on model name (lorem-slow, lorem-fast).
func (p *Provider) StreamResponse(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	eventChan := make(chan domainllm.StreamEvent, 10)
	limit := maxWords(req)

	go func() {
		defer close(eventChan)

		words := strings.Fields(p.generateTextWords(limit))
		delay := p.delay(req.Model)

		sent := 0
		for _, word := range words {
			if sent >= limit {
				break
			}
			select {
			case <-ctx.Done():
				return
			case eventChan <- domainllm.StreamEvent{TextDelta: word + " "}:
			}
			sent++

			if delay > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
				}
			}
		}

		select {
		case <-ctx.Done():
		case eventChan <- domainllm.StreamEvent{
			Metadata: &domainllm.StreamMetadata{
				Model:        req.Model,
				InputTokens:  estimateTokens(req),
				OutputTokens: sent,
				StopReason:   "end_turn",
			},
		}:
		}
	}()

	return eventChan, nil
}

// maxWords treats one token as one word. Unset budgets fall back to 200.
func maxWords(req *domainllm.GenerateRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return 200
}

// generateTextWords generates lorem ipsum text with approximately targetWords words.
func (p *Provider) generateTextWords(targetWords int) string {
	var sb strings.Builder
	wordCount := 0

	for wordCount < targetWords {
		// Generate sentence with 5-15 words
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")

		wordCount += len(strings.Fields(sentence))

		// Add paragraph break every ~50 words
		if wordCount%50 == 0 {
			sb.WriteString("\n\n")
		}
	}

	return strings.TrimSpace(sb.String())
}

// estimateTokens estimates the token count of a request.
// Uses word count as a rough approximation.
func estimateTokens(req *domainllm.GenerateRequest) int {
	total := len(strings.Fields(req.System))
	for _, msg := range req.Messages {
		total += len(strings.Fields(msg.Text))
	}
	return total
}
