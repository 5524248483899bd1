package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/swarmworks/responder/engine/conversation"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/usage"
)

// run is the mutable state of one generation.
type run struct {
	id         string
	rc         *conversation.ResponseContext
	machine    *fsm.FSM
	accountant *usage.Accountant

	model       string
	messages    []llmadapter.Message
	toolCalls   []llmadapter.ToolCall
	message     string
	iteration   int
	failedTools int
	failure     *ResultError

	eventStartedAt time.Time
}

func newRun(rc *conversation.ResponseContext) *run {
	return &run{
		id:         uuid.NewString(),
		rc:         rc,
		accountant: usage.NewAccountant(),
		toolCalls:  []llmadapter.ToolCall{},
	}
}

func (r *run) recordToolCalls(calls []llmadapter.ToolCall) {
	for i := range calls {
		if calls[i].Failed() {
			r.failedTools++
		}
	}
	r.toolCalls = append(r.toolCalls, calls...)
}

func (r *run) result() *ResponseResult {
	return &ResponseResult{
		Success:       r.failure == nil,
		BotID:         r.rc.BotID(),
		Message:       r.message,
		ToolCalls:     r.toolCalls,
		ResourcesUsed: r.accountant.Snapshot(),
		Error:         r.failure,
	}
}
