package agent

// BotConfig is the per-bot configuration object.
type BotConfig struct {
	ModelConfig *ModelConfig      `json:"modelConfig,omitempty" yaml:"modelConfig,omitempty"`
	AgentSpec   *AgentSpec        `json:"agentSpec,omitempty"   yaml:"agentSpec,omitempty"`
	Persona     map[string]any    `json:"persona,omitempty"     yaml:"persona,omitempty"`
	Settings    map[string]any    `json:"settings,omitempty"    yaml:"settings,omitempty"`
	Secrets     map[string]string `json:"secrets,omitempty"     yaml:"secrets,omitempty"`
}

// ChatConfig carries conversation level overrides.
type ChatConfig struct {
	Goal        string         `json:"goal,omitempty"        yaml:"goal,omitempty"`
	ModelConfig *ModelConfig   `json:"modelConfig,omitempty" yaml:"modelConfig,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"    yaml:"settings,omitempty"`
}

// TeamConfig describes the team a swarm was started for.
type TeamConfig struct {
	ID          string         `json:"id,omitempty"          yaml:"id,omitempty"`
	Name        string         `json:"name,omitempty"        yaml:"name,omitempty"`
	Goal        string         `json:"goal,omitempty"        yaml:"goal,omitempty"`
	ModelConfig *ModelConfig   `json:"modelConfig,omitempty" yaml:"modelConfig,omitempty"`
	Structure   map[string]any `json:"structure,omitempty"   yaml:"structure,omitempty"`
}

// PromptSpec returns the agent prompt override, if any.
func (c *BotConfig) PromptSpec() *PromptSpec {
	if c == nil || c.AgentSpec == nil {
		return nil
	}
	return c.AgentSpec.Prompt
}
