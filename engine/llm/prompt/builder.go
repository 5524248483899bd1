package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swarmworks/responder/engine/agent"
	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/core"
	"github.com/swarmworks/responder/engine/swarm"
	"github.com/swarmworks/responder/pkg/config"
	"github.com/swarmworks/responder/pkg/logger"
)

// FallbackTemplate replaces a template that could not be loaded.
const FallbackTemplate = "Critical: Prompt template file not found"

const agentSectionHeader = "## Agent-Specific Instructions"

var (
	ErrMissingDirectContent = agent.ErrMissingDirectContent
	ErrPathTooDeep          = core.ErrPathTooDeep
)

// PromptContext is the input to a system message build.
type PromptContext struct {
	Response *conversation.ResponseContext
	// Now pins the clock for date placeholders. Zero means time.Now.
	Now time.Time
}

// BuildOptions tune a single build.
type BuildOptions struct {
	// DirectPromptContent is used verbatim as the template source.
	DirectPromptContent string
	TemplateIdentifier  string
}

// SwarmAccessor resolves paths against authoritative swarm state.
type SwarmAccessor interface {
	Access(ctx context.Context, swarmID string, segments []string) (any, error)
}

// Builder assembles system messages.
type Builder struct {
	templates       *TemplateStore
	accessor        SwarmAccessor
	states          swarm.Store
	sensitive       *sensitiveMatcher
	defaultTemplate string
	maxPreview      int
	maxDepth        int
	recruitmentTool string
	now             func() time.Time
}

type Option func(*Builder)

// WithSwarmStore resolves swarm.* variables and SWARM_STATE through store
// before falling back to the in-memory context. Each build reads a swarm
// from the store at most once.
func WithSwarmStore(store swarm.Store) Option {
	return func(b *Builder) {
		if store == nil {
			return
		}
		b.states = store
	}
}

// WithSwarmAccessor overrides how swarm.* variables are resolved.
func WithSwarmAccessor(accessor SwarmAccessor) Option {
	return func(b *Builder) {
		b.accessor = accessor
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder creates a builder. A nil cfg uses defaults.
func NewBuilder(templates *TemplateStore, cfg *config.PromptConfig, opts ...Option) (*Builder, error) {
	if templates == nil {
		return nil, fmt.Errorf("template store cannot be nil")
	}
	defaults := config.Default().Prompt
	if cfg == nil {
		cfg = &defaults
	}
	b := &Builder{
		templates:       templates,
		defaultTemplate: firstNonEmpty(cfg.DefaultTemplate, defaults.DefaultTemplate),
		maxPreview:      positiveOr(cfg.MaxStringPreviewLength, defaults.MaxStringPreviewLength),
		maxDepth:        positiveOr(cfg.MaxResolutionDepth, defaults.MaxResolutionDepth),
		recruitmentTool: firstNonEmpty(cfg.RecruitmentTool, defaults.RecruitmentTool),
		now:             time.Now,
	}
	matcher, err := newSensitiveMatcher(cfg.SensitivePatterns)
	if err != nil {
		return nil, err
	}
	b.sensitive = matcher
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Templates exposes the backing store for cache management.
func (b *Builder) Templates() *TemplateStore {
	return b.templates
}

// BuildSystemMessage resolves the final system message for pc.
func (b *Builder) BuildSystemMessage(ctx context.Context, pc PromptContext, opts *BuildOptions) (string, error) {
	rc := pc.Response
	if rc == nil || rc.Bot == nil {
		return "", errors.New("prompt context requires a bot")
	}
	if opts == nil {
		opts = &BuildOptions{}
	}
	log := logger.FromContext(ctx).With("bot_id", rc.BotID(), "swarm_id", rc.SwarmID)
	spec := rc.Bot.Config.PromptSpec()
	if err := spec.Validate(); err != nil {
		return "", err
	}
	text := b.selectTemplate(ctx, opts, spec)
	log.Debug("Validating prompt safety", "direct", opts.DirectPromptContent != "", "agent_spec", spec != nil)

	now := pc.Now
	if now.IsZero() {
		now = b.now()
	}
	res := b.newResolver(rc, now)
	if err := res.bindAgentVariables(ctx, spec); err != nil {
		return "", err
	}
	text = b.substitute(ctx, text, res.resolveInline)
	// Content-derived blocks are inserted last and never rescanned.
	blocks := map[string]string{
		"ROLE_SPECIFIC_INSTRUCTIONS": roleInstructions(rc.Bot, b.recruitmentTool),
		"SWARM_STATE":                b.renderSwarmState(ctx, res),
		"TOOL_SCHEMAS":               renderToolSchemas(rc.AvailableTools),
	}
	text = replacePlaceholders(ctx, text, func(_ context.Context, key string) (string, bool) {
		v, ok := blocks[key]
		return v, ok
	})
	return text, nil
}

func (b *Builder) selectTemplate(ctx context.Context, opts *BuildOptions, spec *agent.PromptSpec) string {
	if opts.DirectPromptContent != "" {
		return opts.DirectPromptContent
	}
	if spec != nil && !spec.IsSupplement() {
		return spec.Content
	}
	base := b.loadTemplate(ctx, firstNonEmpty(opts.TemplateIdentifier, b.defaultTemplate))
	if spec == nil {
		return base
	}
	return strings.TrimRight(base, "\n") + "\n\n" + agentSectionHeader + "\n\n" + spec.Content
}

func (b *Builder) loadTemplate(ctx context.Context, id string) string {
	text, err := b.templates.Load(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to load prompt template", "template", id, "error", core.RedactError(err))
		return FallbackTemplate
	}
	return text
}

// substitute runs bounded resolution passes so values that reference each
// other stop after maxDepth rounds with the remaining placeholders intact.
func (b *Builder) substitute(ctx context.Context, text string, resolve lookupFunc) string {
	for range b.maxDepth {
		next := replacePlaceholders(ctx, text, resolve)
		if next == text {
			return next
		}
		text = next
	}
	if placeholderPattern.MatchString(text) {
		logger.FromContext(ctx).Debug("Placeholder resolution depth reached", "max_depth", b.maxDepth)
	}
	return text
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
