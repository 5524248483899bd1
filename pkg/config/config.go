package config

import (
	"context"
	"time"
)

// Config is the full responder configuration.
type Config struct {
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Prompt       PromptConfig       `koanf:"prompt"`
	Model        ModelConfig        `koanf:"model"`
	Network      NetworkConfig      `koanf:"network"`
	Redis        RedisConfig        `koanf:"redis"`
	NATS         NATSConfig         `koanf:"nats"`
	Log          LogConfig          `koanf:"log"`
}

// OrchestratorConfig bounds the tool-calling loop.
type OrchestratorConfig struct {
	MaxToolIterations  int  `koanf:"max_tool_iterations"  validate:"min=1,max=100"`
	ParallelTools      bool `koanf:"parallel_tools"`
	MaxConcurrentTools int  `koanf:"max_concurrent_tools" validate:"min=1"`
}

// PromptConfig controls system prompt assembly and template caching.
type PromptConfig struct {
	TemplateDir            string   `koanf:"template_dir"`
	DefaultTemplate        string   `koanf:"default_template"          validate:"required"`
	CacheEnabled           bool     `koanf:"cache_enabled"`
	CacheSize              int      `koanf:"cache_size"                validate:"min=1"`
	MaxStringPreviewLength int      `koanf:"max_string_preview_length" validate:"min=16"`
	MaxResolutionDepth     int      `koanf:"max_resolution_depth"      validate:"min=1,max=32"`
	SensitivePatterns      []string `koanf:"sensitive_patterns"`
	RecruitmentTool        string   `koanf:"recruitment_tool"          validate:"required"`
}

// ModelConfig holds selection defaults.
type ModelConfig struct {
	DefaultModel    string `koanf:"default_model"    validate:"required"`
	DefaultStrategy string `koanf:"default_strategy" validate:"oneof=QUALITY_FIRST COST_OPTIMIZED LOCAL_FIRST FALLBACK"`
}

// NetworkConfig configures reachability probes.
type NetworkConfig struct {
	ConnectivityURL string        `koanf:"connectivity_url"`
	CloudURL        string        `koanf:"cloud_url"`
	LocalURL        string        `koanf:"local_url"`
	ProbeTimeout    time.Duration `koanf:"probe_timeout"    validate:"min=0"`
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"min=0"`
	RetryAttempts   int           `koanf:"retry_attempts"   validate:"min=0,max=10"`
}

// RedisConfig points at the swarm state store.
type RedisConfig struct {
	Addr      string          `koanf:"addr"`
	Password  SensitiveString `koanf:"password"   sensitive:"true"`
	DB        int             `koanf:"db"         validate:"min=0"`
	KeyPrefix string          `koanf:"key_prefix"`
	StateTTL  time.Duration   `koanf:"state_ttl"  validate:"min=0"`
}

// NATSConfig points at the event bus used for typing indicators.
type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// Service loads and validates configuration.
type Service interface {
	Load(ctx context.Context, sources ...Source) (*Config, error)
	Validate(config *Config) error
	// GetSource returns which source provided a key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			MaxToolIterations:  10,
			ParallelTools:      false,
			MaxConcurrentTools: 4,
		},
		Prompt: PromptConfig{
			TemplateDir:            "prompts",
			DefaultTemplate:        "prompt.txt",
			CacheEnabled:           true,
			CacheSize:              128,
			MaxStringPreviewLength: 500,
			MaxResolutionDepth:     5,
			SensitivePatterns:      []string{"config.secrets.**", "context.userData.apiKeys.**"},
			RecruitmentTool:        "update_swarm_shared_state",
		},
		Model: ModelConfig{
			DefaultModel:    "gpt-4",
			DefaultStrategy: "FALLBACK",
		},
		Network: NetworkConfig{
			ProbeTimeout:    3 * time.Second,
			RefreshInterval: 30 * time.Second,
			RetryAttempts:   2,
		},
		Redis: RedisConfig{
			KeyPrefix: "responder",
		},
		NATS: NATSConfig{
			SubjectPrefix: "responder",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SensitiveString hides its value when printed.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
