package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostPricedModel(t *testing.T) {
	assert.InDelta(t, 0.75, cost("gpt-4o-mini", 1_000_000, 1_000_000), 1e-9)
}

func TestCostEmbeddingModel(t *testing.T) {
	assert.InDelta(t, 0.01, cost("text-embedding-3-small", 500_000, 0), 1e-9)
}

func TestCostUnpricedModelIsZero(t *testing.T) {
	assert.Zero(t, cost("llama3.1", 1_000_000, 1_000_000))
	assert.Zero(t, cost("nomic-embed-text", 10_000, 0))
}

func TestCostInputOnly(t *testing.T) {
	assert.InDelta(t, 3.0, cost("claude-3-5-sonnet-20241022", 1_000_000, 0), 1e-9)
}

func TestSummaryKeepsCapabilitiesApart(t *testing.T) {
	// One model can serve both chat and embeddings; each capability
	// keeps its own slice.
	s := &Summary{ByModel: map[string]ModelUsage{}}
	s.add(ModelUsage{Vendor: "ollama", Model: "llama3.1", Capability: CapabilityChat,
		TokensInput: 100, TokensOutput: 40, Calls: 2})
	s.add(ModelUsage{Vendor: "ollama", Model: "llama3.1", Capability: CapabilityEmbeddings,
		TokensInput: 900, Calls: 5})

	assert.Len(t, s.ByModel, 2)
	assert.Equal(t, 2, s.ByModel[modelKey("llama3.1", CapabilityChat)].Calls)
	assert.Equal(t, 5, s.ByModel[modelKey("llama3.1", CapabilityEmbeddings)].Calls)
	assert.Equal(t, 1000, s.TotalTokensInput)
	assert.Equal(t, 40, s.TotalTokensOutput)
	assert.Equal(t, 7, s.Calls)
}
