package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/swarmworks/responder/engine/agent"
	"github.com/swarmworks/responder/engine/llm/network"
)

var ErrUnknownStrategy = errors.New("unknown model selection strategy")

// Input is everything a strategy may consult.
type Input struct {
	Config   agent.ModelConfig
	Network  network.State
	Registry Registry
	// UserCredits is nil when the user balance is unknown.
	UserCredits *decimal.Decimal
}

// Strategy picks a concrete model identifier.
type Strategy interface {
	SelectModel(ctx context.Context, in *Input) (string, error)
}

type StrategyFunc func(ctx context.Context, in *Input) (string, error)

func (f StrategyFunc) SelectModel(ctx context.Context, in *Input) (string, error) {
	return f(ctx, in)
}

// StrategyFactory resolves a strategy by name.
type StrategyFactory interface {
	Create(name agent.Strategy) (Strategy, error)
}

// Factory is a name to strategy table.
type Factory map[agent.Strategy]Strategy

// DefaultFactory knows the four built-in strategies.
func DefaultFactory() Factory {
	return Factory{
		agent.StrategyQualityFirst:  StrategyFunc(qualityFirst),
		agent.StrategyCostOptimized: StrategyFunc(costOptimized),
		agent.StrategyLocalFirst:    StrategyFunc(localFirst),
		agent.StrategyFallback:      StrategyFunc(fallback),
	}
}

func (f Factory) Create(name agent.Strategy) (Strategy, error) {
	if name == "" {
		name = agent.StrategyFallback
	}
	s, ok := f[name]
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return s, nil
}

func reachable(m Info, state network.State, offlineOnly bool) bool {
	if !m.Available {
		return false
	}
	if m.Local {
		return state.LocalServicesReachable
	}
	return !offlineOnly && state.IsOnline && state.CloudServicesReachable
}

func candidates(ctx context.Context, in *Input) []Info {
	if in.Registry == nil {
		return nil
	}
	var out []Info
	for _, m := range in.Registry.Models(ctx) {
		if reachable(m, in.Network, in.Config.OfflineOnly) {
			out = append(out, m)
		}
	}
	return out
}

func preferred(models []Info, id string) (Info, bool) {
	if id == "" {
		return Info{}, false
	}
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}

func qualityFirst(ctx context.Context, in *Input) (string, error) {
	models := candidates(ctx, in)
	if m, ok := preferred(models, in.Config.PreferredModel); ok {
		return m.ID, nil
	}
	if best := bestByQuality(models, func(Info) bool { return true }); best != nil {
		return best.ID, nil
	}
	return "", ErrNoModelAvailable
}

// costOptimized picks the cheapest affordable model, breaking ties by quality.
func costOptimized(ctx context.Context, in *Input) (string, error) {
	var pick *Info
	for _, m := range candidates(ctx, in) {
		if in.UserCredits != nil && m.CostPerCall.GreaterThan(*in.UserCredits) {
			continue
		}
		if pick == nil || m.CostPerCall.LessThan(pick.CostPerCall) ||
			(m.CostPerCall.Equal(pick.CostPerCall) && m.Quality > pick.Quality) {
			pick = &m
		}
	}
	if pick == nil {
		return "", ErrNoModelAvailable
	}
	return pick.ID, nil
}

func localFirst(ctx context.Context, in *Input) (string, error) {
	models := candidates(ctx, in)
	if m, ok := preferred(models, in.Config.PreferredModel); ok && m.Local {
		return m.ID, nil
	}
	if best := bestByQuality(models, func(m Info) bool { return m.Local }); best != nil {
		return best.ID, nil
	}
	if in.Config.OfflineOnly {
		return "", fmt.Errorf("%w: no local model reachable", ErrNoModelAvailable)
	}
	if best := bestByQuality(models, func(Info) bool { return true }); best != nil {
		return best.ID, nil
	}
	return "", ErrNoModelAvailable
}

func fallback(ctx context.Context, in *Input) (string, error) {
	models := candidates(ctx, in)
	if m, ok := preferred(models, in.Config.PreferredModel); ok {
		return m.ID, nil
	}
	if in.Registry != nil {
		if best, err := in.Registry.BestService(ctx); err == nil && reachable(*best, in.Network, in.Config.OfflineOnly) {
			return best.ID, nil
		}
	}
	if local := bestByQuality(models, func(m Info) bool { return m.Local }); local != nil {
		return local.ID, nil
	}
	return "", ErrNoModelAvailable
}
