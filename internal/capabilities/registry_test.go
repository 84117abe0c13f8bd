package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "lorem"}, r.GetAllProviders())
}

func TestRegistry_Resolve(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	def, err := r.Resolve("anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", def.ID, "first model in YAML order is the default")

	haiku, err := r.Resolve("anthropic", "claude-haiku-4-5")
	require.NoError(t, err)
	assert.Greater(t, haiku.DraftMaxTokens, 0)
	assert.LessOrEqual(t, haiku.DraftMaxTokens, haiku.MaxOutput)

	_, err = r.Resolve("anthropic", "no-such-model")
	require.Error(t, err)

	_, err = r.Resolve("openai", "")
	require.Error(t, err)
}

func TestRegistry_ListProviderModelsKeepsOrder(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	models, err := r.ListProviderModels("anthropic")
	require.NoError(t, err)
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"claude-sonnet-4-5", "claude-haiku-4-5", "claude-opus-4-1"}, ids)
}
