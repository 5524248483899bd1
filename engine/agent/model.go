package agent

// Strategy names a model selection strategy.
type Strategy string

const (
	StrategyQualityFirst  Strategy = "QUALITY_FIRST"
	StrategyCostOptimized Strategy = "COST_OPTIMIZED"
	StrategyLocalFirst    Strategy = "LOCAL_FIRST"
	StrategyFallback      Strategy = "FALLBACK"
)

// DefaultModel is used when no configuration names a model.
const DefaultModel = "gpt-4"

// ModelConfig selects how a concrete model is picked for a generation.
type ModelConfig struct {
	Strategy       Strategy `json:"strategy"                 yaml:"strategy"`
	PreferredModel string   `json:"preferredModel,omitempty" yaml:"preferredModel,omitempty"`
	OfflineOnly    bool     `json:"offlineOnly,omitempty"    yaml:"offlineOnly,omitempty"`
}

// DefaultModelConfig is the configuration used when chat, bot and team are all silent.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{Strategy: StrategyFallback, PreferredModel: DefaultModel}
}

// HasModelConfig reports whether any of chat, bot or team sets a model config.
func HasModelConfig(chat *ChatConfig, bot *BotConfig, team *TeamConfig) bool {
	return (chat != nil && chat.ModelConfig != nil) ||
		(bot != nil && bot.ModelConfig != nil) ||
		(team != nil && team.ModelConfig != nil)
}

// EffectiveModelConfig resolves chat > bot > team > default precedence.
func EffectiveModelConfig(chat *ChatConfig, bot *BotConfig, team *TeamConfig) ModelConfig {
	switch {
	case chat != nil && chat.ModelConfig != nil:
		return *chat.ModelConfig
	case bot != nil && bot.ModelConfig != nil:
		return *bot.ModelConfig
	case team != nil && team.ModelConfig != nil:
		return *team.ModelConfig
	default:
		return DefaultModelConfig()
	}
}
