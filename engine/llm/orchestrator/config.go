package orchestrator

import (
	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/events"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/metrics"
	"github.com/swarmworks/responder/pkg/config"
)

const (
	defaultMaxToolIterations  = 10
	defaultMaxConcurrentTools = 4
)

// Config wires the orchestrator's collaborators and loop limits.
type Config struct {
	Backend       llmadapter.Backend
	Tools         llmadapter.ToolRunner
	PromptBuilder PromptBuilder
	History       conversation.HistoryAssembler
	ModelSelector ModelSelector
	Events        events.Sink
	Metrics       metrics.Recorder

	// TemplateIdentifier names the base prompt template. Empty uses the builder default.
	TemplateIdentifier string
	MaxToolIterations  int
	ParallelTools      bool
	MaxConcurrentTools int
}

// ApplyAppConfig copies loop limits and the default template from app.
func (c *Config) ApplyAppConfig(app *config.Config) {
	if app == nil {
		return
	}
	c.MaxToolIterations = app.Orchestrator.MaxToolIterations
	c.ParallelTools = app.Orchestrator.ParallelTools
	c.MaxConcurrentTools = app.Orchestrator.MaxConcurrentTools
	c.TemplateIdentifier = app.Prompt.DefaultTemplate
}

type settings struct {
	maxToolIterations  int
	parallelTools      bool
	maxConcurrentTools int
	templateIdentifier string
}

func buildSettings(cfg *Config) settings {
	if cfg == nil {
		cfg = &Config{}
	}
	return settings{
		maxToolIterations:  defaultInt(cfg.MaxToolIterations, defaultMaxToolIterations),
		parallelTools:      cfg.ParallelTools,
		maxConcurrentTools: defaultInt(cfg.MaxConcurrentTools, defaultMaxConcurrentTools),
		templateIdentifier: cfg.TemplateIdentifier,
	}
}

func defaultInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
