package llm

import (
	"context"
)

// Conversation roles understood by every provider
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMProvider defines the interface that all LLM providers must implement.
// This abstraction lets the assistant run against Anthropic in production and
// the offline lorem provider in development while keeping one contract.
//
// Providers translate their own failures into domain errors:
// throttling into *domain.RateLimitedError, rejected credentials into
// *domain.UnauthorizedError, everything else into *domain.AIServiceError.
type LLMProvider interface {
	// GenerateResponse generates a complete response from the LLM provider.
	GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// StreamResponse generates a response incrementally. The channel carries
	// text deltas, then exactly one event with Metadata or Error, then closes.
	// Cancelling ctx stops generation.
	StreamResponse(ctx context.Context, req *GenerateRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g., "anthropic", "lorem")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// GenerateRequest contains the parameters for an LLM generation request.
type GenerateRequest struct {
	// Messages contains the conversation, alternating user and assistant
	Messages []Message

	// Model is the model identifier (e.g., "claude-haiku-4-5")
	Model string

	// System is the system instruction
	System string

	// MaxTokens bounds the output
	MaxTokens int

	// Temperature is left to the provider default when nil
	Temperature *float64
}

// Message represents a single message in the conversation.
type Message struct {
	// Role is either "user" or "assistant"
	Role string

	// Text is the message body
	Text string
}

// GenerateResponse contains the LLM provider's response.
type GenerateResponse struct {
	// Text is the concatenated text output
	Text string

	// Model is the model that was used (may differ from request if aliased)
	Model string

	// InputTokens is the number of tokens in the input
	InputTokens int

	// OutputTokens is the number of tokens in the output
	OutputTokens int

	// StopReason indicates why generation stopped (e.g., "end_turn", "max_tokens")
	StopReason string
}

// StreamEvent is one element of a streamed response. Exactly one of the
// fields is set.
type StreamEvent struct {
	TextDelta string
	Metadata  *StreamMetadata
	Error     error
}

// StreamMetadata closes a successful stream.
type StreamMetadata struct {
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}
