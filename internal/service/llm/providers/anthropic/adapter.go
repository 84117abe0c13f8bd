package anthropic

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	domainllm "planwise/internal/domain/services/llm"
)

// defaultMaxTokens applies when the request leaves MaxTokens unset
const defaultMaxTokens = 4096

// convertToAnthropicMessages converts domain messages to Anthropic SDK format.
func convertToAnthropicMessages(messages []domainllm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		if msg.Text == "" {
			return nil, fmt.Errorf("message %d: empty text", i)
		}
		block := anthropic.NewTextBlock(msg.Text)

		var message anthropic.MessageParam
		switch msg.Role {
		case domainllm.RoleUser:
			message = anthropic.NewUserMessage(block)
		case domainllm.RoleAssistant:
			message = anthropic.NewAssistantMessage(block)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}

// buildParams converts a domain request to Anthropic API parameters.
func buildParams(req *domainllm.GenerateRequest) (anthropic.MessageNewParams, error) {
	messages, err := convertToAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}
	return params, nil
}

// convertFromAnthropicResponse converts an Anthropic response to domain format.
// Only text blocks are kept.
func convertFromAnthropicResponse(msg *anthropic.Message) *domainllm.GenerateResponse {
	var sb strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}

	return &domainllm.GenerateResponse{
		Text:         sb.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   string(msg.StopReason),
	}
}
