package llm

import (
	"fmt"
	"log/slog"

	"planwise/internal/capabilities"
	"planwise/internal/config"
	domainllm "planwise/internal/domain/services/llm"
)

// Selection is the provider and model the assistant runs against.
type Selection struct {
	Provider domainllm.LLMProvider
	Model    *capabilities.ModelCapabilities
}

// SetupProviders resolves DEFAULT_MODEL (and DEFAULT_PROVIDER when the model
// does not name one) to a provider instance and its capability entry.
func SetupProviders(cfg *config.Config, caps *capabilities.Registry, logger *slog.Logger) (*Selection, error) {
	registry := NewProviderRegistry(NewProviderFactory(cfg))
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	providerName := cfg.DefaultProvider
	modelName := cfg.DefaultModel
	if modelName != "" {
		info, err := ParseModel(modelName)
		if err != nil {
			return nil, fmt.Errorf("DEFAULT_MODEL: %w", err)
		}
		providerName, modelName = info.Provider, info.Model
	}

	model, err := caps.Resolve(providerName, modelName)
	if err != nil {
		return nil, err
	}

	provider, err := registry.GetProvider(providerName)
	if err != nil {
		return nil, err
	}
	if !provider.SupportsModel(model.ID) {
		return nil, fmt.Errorf("model %s is not supported by provider %s", model.ID, providerName)
	}

	if cfg.AnthropicAPIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY not set - Anthropic provider not available")
	}
	logger.Info("provider selected",
		"name", provider.Name(),
		"model", model.ID,
		"timeout", cfg.AITimeout,
	)

	return &Selection{Provider: provider, Model: model}, nil
}
