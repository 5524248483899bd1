package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/core"
	"github.com/swarmworks/responder/engine/events"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/metrics"
	"github.com/swarmworks/responder/engine/llm/model"
	"github.com/swarmworks/responder/engine/llm/network"
	"github.com/swarmworks/responder/engine/llm/prompt"
	"github.com/swarmworks/responder/engine/llm/usage"
	"github.com/swarmworks/responder/pkg/logger"
)

var (
	_ PromptBuilder = (*prompt.Builder)(nil)
	_ ModelSelector = (*model.Selector)(nil)
)

// Orchestrator drives the bounded LLM and tool loop for one bot response.
// It holds no per-generation state and is safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	settings settings
	invoker  *llmInvoker
	tools    *ToolExecutor
}

//nolint:gocritic // Config is copied so later caller mutations do not leak in.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Backend == nil {
		return nil, core.NewError(
			fmt.Errorf("llm backend cannot be nil"),
			ErrCodeInvalidConfig,
			map[string]any{"field": "Backend"},
		)
	}
	if cfg.PromptBuilder == nil {
		return nil, core.NewError(
			fmt.Errorf("prompt builder cannot be nil"),
			ErrCodeInvalidConfig,
			map[string]any{"field": "PromptBuilder"},
		)
	}
	cfgCopy := cfg
	if cfgCopy.History == nil {
		cfgCopy.History = conversation.NoHistory{}
	}
	if cfgCopy.ModelSelector == nil {
		cfgCopy.ModelSelector = model.NewSelector(
			network.NewStaticMonitor(network.Online()),
			model.NewStaticRegistry(model.DefaultModels()...),
		)
	}
	if cfgCopy.Events == nil {
		cfgCopy.Events = events.Nop{}
	}
	if cfgCopy.Metrics == nil {
		cfgCopy.Metrics = metrics.Nop()
	}
	s := buildSettings(&cfgCopy)
	return &Orchestrator{
		cfg:      cfgCopy,
		settings: s,
		invoker:  &llmInvoker{backend: cfgCopy.Backend},
		tools:    NewToolExecutor(cfgCopy.Tools, s.parallelTools, s.maxConcurrentTools),
	}, nil
}

// GenerateResponse produces one bot response. It never returns nil; failures
// are reported through ResponseResult.Error.
func (o *Orchestrator) GenerateResponse(ctx context.Context, params Params) *ResponseResult {
	started := time.Now()
	r := newRun(params.Context)
	ctx = logger.ContextWithLogger(ctx, logger.FromContext(ctx).With(
		"run_id", r.id,
		"bot_id", r.rc.BotID(),
	))
	ctx = usage.ContextWithAccountant(ctx, r.accountant)
	r.machine = newGenerationFSM(ctx)

	o.generate(ctx, r, params.Overrides)
	result := r.result()
	o.recordMetrics(ctx, r, result, time.Since(started))
	return result
}

func (o *Orchestrator) generate(ctx context.Context, r *run, overrides *Overrides) {
	log := logger.FromContext(ctx)
	if ctx.Err() != nil {
		o.cancel(ctx, r)
		return
	}
	r.fire(ctx, EventValidate)
	if err := r.rc.Validate(); err != nil {
		o.fail(ctx, r, &ResultError{Code: ErrCodeInvalidContext, Message: err.Error()})
		return
	}
	rc := r.rc
	r.fire(ctx, EventBuildPrompt)
	messages, buildErr := o.buildMessages(ctx, rc)
	if buildErr != nil {
		o.fail(ctx, r, buildErr)
		return
	}
	r.messages = messages
	r.model = o.cfg.ModelSelector.SelectModel(ctx, rc)
	opts, err := buildCallOptions(r.model, rc.ResourceLimits, overrides)
	if err != nil {
		log.Warn("Ignoring completion overrides", "error", err)
	}
	log.Debug("Starting generation", "model", opts.Model, "max_tool_iterations", o.settings.maxToolIterations)

	o.publishTyping(ctx, events.ChatTypingStart, rc)
	defer o.publishTyping(ctx, events.ChatTypingStop, rc)
	o.loop(ctx, r, opts)
}

func (o *Orchestrator) loop(ctx context.Context, r *run, opts llmadapter.CallOptions) {
	rc := r.rc
	tools := llmadapter.DefinitionsFromTools(rc.AvailableTools)
	execCtx := llmadapter.ExecutionContext{
		SwarmID:        rc.SwarmID,
		ConversationID: rc.ConversationID,
		BotID:          rc.BotID(),
		UserID:         rc.UserID(),
		Limits:         rc.ResourceLimits,
	}
	for r.iteration < o.settings.maxToolIterations {
		if ctx.Err() != nil {
			o.cancel(ctx, r)
			return
		}
		r.fire(ctx, EventCallLLM)
		completion, callErr := o.invoker.Invoke(ctx, &llmadapter.CompletionRequest{
			Messages: r.messages,
			Tools:    tools,
			Options:  opts,
			ChatID:   rc.ConversationID,
			BotID:    rc.BotID(),
			UserID:   rc.UserID(),
		})
		if callErr != nil {
			o.fail(ctx, r, &ResultError{Code: callErr.Code, Message: callErr.Message})
			return
		}
		r.message = completion.MessageContent
		if len(completion.ToolCalls) == 0 {
			r.fire(ctx, EventComplete)
			return
		}
		r.fire(ctx, EventExecuteTools)
		r.messages = append(r.messages, llmadapter.Message{
			Role:      conversation.RoleAssistant,
			Content:   completion.MessageContent,
			ToolCalls: completion.ToolCalls,
		})
		executed := o.tools.Execute(ctx, execCtx, completion.ToolCalls)
		r.recordToolCalls(executed)
		r.messages = append(r.messages, toolMessages(executed)...)
		r.iteration++
	}
	logger.FromContext(ctx).Warn(
		"Tool iteration limit reached",
		"max_tool_iterations", o.settings.maxToolIterations,
		"tool_calls", len(r.toolCalls),
	)
	r.fire(ctx, EventComplete)
}

func (o *Orchestrator) fail(ctx context.Context, r *run, failure *ResultError) {
	r.failure = failure
	logger.FromContext(ctx).Warn(
		"Generation failed",
		"code", failure.Code,
		"error", core.RedactString(failure.Message),
		"state", r.State(),
	)
	r.fire(ctx, EventFail)
}

func (o *Orchestrator) cancel(ctx context.Context, r *run) {
	r.failure = &ResultError{Code: ErrCodeOperationCancelled, Message: cancelledMessage}
	logger.FromContext(ctx).Info("Generation cancelled", "state", r.State(), "iteration", r.iteration)
	r.fire(ctx, EventCancel)
}

// publishTyping emits a typing indicator. Failures are logged only.
func (o *Orchestrator) publishTyping(ctx context.Context, eventType string, rc *conversation.ResponseContext) {
	ev := events.Event{
		Type:    eventType,
		Payload: events.Payload{ChatID: rc.ConversationID, UserID: rc.BotID()},
	}
	if err := o.cfg.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish typing event", "type", eventType, "error", core.RedactError(err))
	}
}

func (o *Orchestrator) recordMetrics(ctx context.Context, r *run, result *ResponseResult, elapsed time.Duration) {
	g := &metrics.Generation{
		Outcome:         metrics.OutcomeSuccess,
		Model:           r.model,
		Duration:        elapsed,
		Credits:         r.accountant.Credits(),
		ToolCalls:       result.ResourcesUsed.ToolCalls,
		FailedToolCalls: r.failedTools,
		Iterations:      r.iteration,
	}
	if result.Error != nil {
		g.Outcome = metrics.OutcomeFailure
		g.ErrorCode = result.Error.Code
		if result.Error.Code == ErrCodeOperationCancelled {
			g.Outcome = metrics.OutcomeCancelled
		}
	}
	o.cfg.Metrics.RecordGeneration(context.WithoutCancel(ctx), g)
}
