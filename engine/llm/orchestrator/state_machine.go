package orchestrator

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/swarmworks/responder/pkg/logger"
)

const (
	StateIdle           = "idle"
	StateValidating     = "validating"
	StateBuildingPrompt = "building_prompt"
	StateLLMCall        = "llm_call"
	StateToolExecution  = "tool_execution"
	StateCompleted      = "completed"
	StateFailed         = "failed"
	StateCancelled      = "cancelled"
)

const (
	EventValidate     = "validate"
	EventBuildPrompt  = "build_prompt"
	EventCallLLM      = "call_llm"
	EventExecuteTools = "execute_tools"
	EventComplete     = "complete"
	EventFail         = "fail"
	EventCancel       = "cancel"
)

func newGenerationFSM(ctx context.Context) *fsm.FSM {
	observer := newTransitionObserver(ctx)
	return fsm.NewFSM(
		StateIdle,
		generationEvents(),
		fsm.Callbacks{
			"before_event": func(cbCtx context.Context, e *fsm.Event) { observer.BeforeEvent(cbCtx, e) },
			"after_event":  func(cbCtx context.Context, e *fsm.Event) { observer.AfterEvent(cbCtx, e) },
		},
	)
}

func generationEvents() fsm.Events {
	return fsm.Events{
		{Name: EventValidate, Src: []string{StateIdle}, Dst: StateValidating},
		{Name: EventBuildPrompt, Src: []string{StateValidating}, Dst: StateBuildingPrompt},
		{Name: EventCallLLM, Src: []string{StateBuildingPrompt, StateToolExecution}, Dst: StateLLMCall},
		{Name: EventExecuteTools, Src: []string{StateLLMCall}, Dst: StateToolExecution},
		{Name: EventComplete, Src: []string{StateLLMCall, StateToolExecution}, Dst: StateCompleted},
		{
			Name: EventFail,
			Src:  []string{StateValidating, StateBuildingPrompt, StateLLMCall, StateToolExecution},
			Dst:  StateFailed,
		},
		{
			Name: EventCancel,
			Src:  []string{StateIdle, StateValidating, StateBuildingPrompt, StateLLMCall, StateToolExecution},
			Dst:  StateCancelled,
		},
	}
}

func runFromEvent(ctx context.Context, e *fsm.Event) *run {
	if e != nil && len(e.Args) > 0 {
		if r, ok := e.Args[0].(*run); ok && r != nil {
			return r
		}
	}
	logger.FromContext(ctx).Error("FSM run missing from event args")
	return &run{}
}

type transitionObserver struct {
	now     func() time.Time
	baseCtx context.Context
}

func newTransitionObserver(ctx context.Context) *transitionObserver {
	return &transitionObserver{now: time.Now, baseCtx: ctx}
}

func (o *transitionObserver) resolveContext(cbCtx context.Context) context.Context {
	if cbCtx != nil {
		return cbCtx
	}
	if o.baseCtx != nil {
		return o.baseCtx
	}
	return context.TODO()
}

func (o *transitionObserver) BeforeEvent(cbCtx context.Context, e *fsm.Event) {
	ctx := o.resolveContext(cbCtx)
	r := runFromEvent(ctx, e)
	r.eventStartedAt = o.now()
	logger.FromContext(ctx).Debug(
		"FSM transition start",
		"event", e.Event,
		"from_state", e.Src,
		"to_state", e.Dst,
		"iteration", r.iteration,
	)
}

func (o *transitionObserver) AfterEvent(cbCtx context.Context, e *fsm.Event) {
	ctx := o.resolveContext(cbCtx)
	r := runFromEvent(ctx, e)
	keyvals := []any{
		"event", e.Event,
		"from_state", e.Src,
		"to_state", e.Dst,
		"iteration", r.iteration,
	}
	if !r.eventStartedAt.IsZero() {
		keyvals = append(keyvals, "duration_ms", o.now().Sub(r.eventStartedAt).Milliseconds())
	}
	if r.failure != nil {
		keyvals = append(keyvals, "error_code", r.failure.Code)
	}
	logger.FromContext(ctx).Debug("FSM transition complete", keyvals...)
}

// fire advances the machine. Transitions run detached from cancellation so
// that a cancelled generation still reaches its terminal state.
func (r *run) fire(ctx context.Context, event string) {
	if r.machine == nil {
		return
	}
	if err := r.machine.Event(context.WithoutCancel(ctx), event, r); err != nil {
		logger.FromContext(ctx).Error(
			"Invalid generation transition",
			"event", event,
			"state", r.machine.Current(),
			"error", err,
		)
	}
}

// State reports the current machine state.
func (r *run) State() string {
	if r.machine == nil {
		return StateIdle
	}
	return r.machine.Current()
}
