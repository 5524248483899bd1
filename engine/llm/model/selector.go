package model

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swarmworks/responder/engine/agent"
	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/core"
	"github.com/swarmworks/responder/engine/llm/network"
	"github.com/swarmworks/responder/engine/llm/usage"
	"github.com/swarmworks/responder/pkg/config"
	"github.com/swarmworks/responder/pkg/logger"
)

// Selector picks the model for a generation. It never fails: any strategy
// error falls back to the preferred model or agent.DefaultModel.
type Selector struct {
	monitor  network.Monitor
	registry Registry
	factory  StrategyFactory
	defaults agent.ModelConfig
}

type Option func(*Selector)

func WithFactory(f StrategyFactory) Option {
	return func(s *Selector) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithDefaults sets the model config used when chat, bot and team are all
// silent, and the fallback for configs that leave strategy or model empty.
func WithDefaults(cfg *config.ModelConfig) Option {
	return func(s *Selector) {
		if cfg == nil {
			return
		}
		if cfg.DefaultStrategy != "" {
			s.defaults.Strategy = agent.Strategy(cfg.DefaultStrategy)
		}
		if cfg.DefaultModel != "" {
			s.defaults.PreferredModel = cfg.DefaultModel
		}
	}
}

func NewSelector(monitor network.Monitor, registry Registry, opts ...Option) *Selector {
	s := &Selector{
		monitor:  monitor,
		registry: registry,
		factory:  DefaultFactory(),
		defaults: agent.DefaultModelConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Selector) SelectModel(ctx context.Context, rc *conversation.ResponseContext) (selected string) {
	cfg := s.effectiveConfig(rc)
	fallbackModel := cfg.PreferredModel
	if fallbackModel == "" {
		fallbackModel = s.defaults.PreferredModel
	}
	log := logger.FromContext(ctx).With("strategy", cfg.Strategy)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Model strategy panicked", "panic", fmt.Sprint(r))
			selected = fallbackModel
		}
	}()

	state := network.Online()
	if s.monitor != nil {
		state = s.monitor.State(ctx)
	}
	strategy, err := s.factory.Create(cfg.Strategy)
	if err != nil {
		log.Warn("Model strategy unavailable, using fallback", "model", fallbackModel, "error", err)
		return fallbackModel
	}
	in := &Input{Config: cfg, Network: state, Registry: s.registry, UserCredits: userCredits(ctx, rc)}
	model, err := strategy.SelectModel(ctx, in)
	if err != nil || model == "" {
		log.Warn("Model selection failed, using fallback", "model", fallbackModel, "error", core.RedactError(err))
		return fallbackModel
	}
	log.Debug("Model selected", "model", model, "online", state.IsOnline)
	return model
}

func (s *Selector) effectiveConfig(rc *conversation.ResponseContext) agent.ModelConfig {
	if rc == nil {
		return s.defaults
	}
	var botCfg *agent.BotConfig
	if rc.Bot != nil {
		botCfg = rc.Bot.Config
	}
	if !agent.HasModelConfig(rc.ChatConfig, botCfg, rc.TeamConfig) {
		return s.defaults
	}
	cfg := agent.EffectiveModelConfig(rc.ChatConfig, botCfg, rc.TeamConfig)
	if cfg.Strategy == "" {
		cfg.Strategy = s.defaults.Strategy
	}
	return cfg
}

func userCredits(ctx context.Context, rc *conversation.ResponseContext) *decimal.Decimal {
	if rc == nil || rc.UserData == nil || rc.UserData.Credits == "" {
		return nil
	}
	credits, err := usage.ParseCredits(rc.UserData.Credits)
	if err != nil {
		logger.FromContext(ctx).Warn("Ignoring unparsable user credits", "value", rc.UserData.Credits, "error", err)
		return nil
	}
	return &credits
}
