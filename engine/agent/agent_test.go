package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsLeadershipRole(t *testing.T) {
	t.Run("Should recognize leadership roles case insensitively", func(t *testing.T) {
		for _, role := range []string{"leader", "Coordinator", " delegator "} {
			assert.True(t, IsLeadershipRole(role), role)
		}
	})
	t.Run("Should reject other roles", func(t *testing.T) {
		for _, role := range []string{"", "worker", "leaders", "analyst"} {
			assert.False(t, IsLeadershipRole(role), role)
		}
	})
}

func TestEffectiveModelConfig(t *testing.T) {
	chat := &ModelConfig{Strategy: StrategyQualityFirst, PreferredModel: "chat-model"}
	bot := &ModelConfig{Strategy: StrategyCostOptimized, PreferredModel: "bot-model"}
	team := &ModelConfig{Strategy: StrategyLocalFirst, PreferredModel: "team-model"}

	t.Run("Should prefer chat config", func(t *testing.T) {
		got := EffectiveModelConfig(&ChatConfig{ModelConfig: chat}, &BotConfig{ModelConfig: bot}, &TeamConfig{ModelConfig: team})
		assert.Equal(t, "chat-model", got.PreferredModel)
	})
	t.Run("Should fall back to bot then team", func(t *testing.T) {
		got := EffectiveModelConfig(&ChatConfig{}, &BotConfig{ModelConfig: bot}, &TeamConfig{ModelConfig: team})
		assert.Equal(t, "bot-model", got.PreferredModel)
		got = EffectiveModelConfig(nil, &BotConfig{}, &TeamConfig{ModelConfig: team})
		assert.Equal(t, "team-model", got.PreferredModel)
	})
	t.Run("Should use default when nothing is configured", func(t *testing.T) {
		got := EffectiveModelConfig(nil, nil, nil)
		assert.Equal(t, ModelConfig{Strategy: StrategyFallback, PreferredModel: "gpt-4"}, got)
	})
}

func TestPromptSpec_Validate(t *testing.T) {
	t.Run("Should require content for direct source", func(t *testing.T) {
		err := (&PromptSpec{Source: PromptSourceDirect}).Validate()
		require.ErrorIs(t, err, ErrMissingDirectContent)
		assert.EqualError(t, err, "Direct prompt source requires content field")
	})
	t.Run("Should reject unknown sources and modes", func(t *testing.T) {
		assert.Error(t, (&PromptSpec{Source: "file", Content: "x"}).Validate())
		assert.Error(t, (&PromptSpec{Source: "direct", Content: "x", Mode: "merge"}).Validate())
	})
	t.Run("Should accept replace and supplement", func(t *testing.T) {
		assert.NoError(t, (&PromptSpec{Source: "direct", Content: "x", Mode: "replace"}).Validate())
		p := &PromptSpec{Source: "direct", Content: "x", Mode: "supplement"}
		assert.NoError(t, p.Validate())
		assert.True(t, p.IsSupplement())
	})
}
