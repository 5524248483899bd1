package model

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrNoModelAvailable = errors.New("no model available")

// Info describes one model service known to the registry.
type Info struct {
	ID       string `json:"id"       yaml:"id"`
	Provider string `json:"provider" yaml:"provider"`
	// Local models run on this host and need no internet access.
	Local bool `json:"local" yaml:"local"`
	// Quality ranks models; higher is better.
	Quality     int             `json:"quality"     yaml:"quality"`
	CostPerCall decimal.Decimal `json:"costPerCall" yaml:"costPerCall"`
	Available   bool            `json:"available"   yaml:"available"`
}

// Registry lists model services.
type Registry interface {
	// BestService returns the highest quality available model.
	BestService(ctx context.Context) (*Info, error)
	Models(ctx context.Context) []Info
}

// StaticRegistry serves a fixed model list.
type StaticRegistry struct {
	mu     sync.RWMutex
	models []Info
}

func NewStaticRegistry(models ...Info) *StaticRegistry {
	return &StaticRegistry{models: slices.Clone(models)}
}

// SetAvailable toggles availability of a model by id.
func (r *StaticRegistry) SetAvailable(id string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.models {
		if r.models[i].ID == id {
			r.models[i].Available = available
		}
	}
}

func (r *StaticRegistry) Models(context.Context) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.models)
}

func (r *StaticRegistry) BestService(ctx context.Context) (*Info, error) {
	best := bestByQuality(r.Models(ctx), func(m Info) bool { return m.Available })
	if best == nil {
		return nil, ErrNoModelAvailable
	}
	return best, nil
}

// DefaultModels is the catalogue used when none is configured.
func DefaultModels() []Info {
	return []Info{
		{ID: "gpt-4", Provider: "openai", Quality: 90, CostPerCall: decimal.RequireFromString("30"), Available: true},
		{ID: "gpt-4o-mini", Provider: "openai", Quality: 70, CostPerCall: decimal.RequireFromString("2"), Available: true},
		{ID: "claude-3-5-sonnet", Provider: "anthropic", Quality: 92, CostPerCall: decimal.RequireFromString("25"), Available: true},
		{ID: "llama3", Provider: "ollama", Local: true, Quality: 50, CostPerCall: decimal.Zero, Available: true},
	}
}

func bestByQuality(models []Info, keep func(Info) bool) *Info {
	var best *Info
	for i := range models {
		m := models[i]
		if !keep(m) {
			continue
		}
		if best == nil || m.Quality > best.Quality {
			best = &m
		}
	}
	return best
}
