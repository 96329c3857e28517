package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenUsage_EstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000}

	cost := u.EstimateCost("claude-sonnet-4-5-20250929")
	// 1M input at $3 + 100K output at $15/M.
	assert.InDelta(t, 3.0+1.5, cost, 1e-9)
}

func TestTokenUsage_EstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000}
	assert.Zero(t, u.EstimateCost("some-unknown-model"))
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("test-key", Options{})
	sc, ok := c.(*sdkClient)
	assert.True(t, ok)
	assert.Nil(t, sc.limiter)
	assert.EqualValues(t, 3, sc.maxRetries)
}

func TestNewClient_RateLimited(t *testing.T) {
	c := NewClient("test-key", Options{RPS: 2})
	sc := c.(*sdkClient)
	assert.NotNil(t, sc.limiter)
}
