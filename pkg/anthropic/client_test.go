package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseText(t *testing.T) {
	resp := &MessageResponse{
		Content: []ContentBlock{
			{Type: "text", Text: "SELECT 1"},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: ";"},
		},
	}
	assert.Equal(t, "SELECT 1;", resp.Text())
}

func TestEstimateCost_KnownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 500_000}
	cost := u.EstimateCost("claude-haiku-4-5-20251001")
	// 1M input at $0.80 + 0.5M output at $4.00.
	assert.InDelta(t, 0.80+2.00, cost, 0.001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1000}
	assert.Zero(t, u.EstimateCost("some-future-model"))
}

func TestNewClient_LimiterConfig(t *testing.T) {
	c := NewClient("key", 0)
	assert.Nil(t, c.(*sdkClient).limiter)

	c = NewClient("key", 5)
	assert.NotNil(t, c.(*sdkClient).limiter)
}
