package orchestrator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/swarmworks/responder/engine/core"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/usage"
	"github.com/swarmworks/responder/pkg/logger"
)

// ToolExecutor turns requested tool calls into recorded outcomes. A failing
// tool never fails the generation; its error is attached to the call.
type ToolExecutor struct {
	runner   llmadapter.ToolRunner
	parallel bool
	limit    int
}

func NewToolExecutor(runner llmadapter.ToolRunner, parallel bool, limit int) *ToolExecutor {
	return &ToolExecutor{runner: runner, parallel: parallel, limit: defaultInt(limit, defaultMaxConcurrentTools)}
}

// Execute runs calls and returns their outcomes in request order. Credits and
// attempt counts are charged to the accountant attached to ctx.
func (e *ToolExecutor) Execute(
	ctx context.Context,
	execCtx llmadapter.ExecutionContext,
	calls []llmadapter.ToolCall,
) []llmadapter.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)
	log.Debug("Executing tool calls", "tool_calls_count", len(calls), "parallel", e.parallel)
	results := make([]llmadapter.ToolCall, len(calls))
	if !e.parallel || len(calls) == 1 {
		for i := range calls {
			results[i] = e.executeSingle(ctx, execCtx, calls[i])
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.limit)
		for i := range calls {
			g.Go(func() error {
				results[i] = e.executeSingle(ctx, execCtx, calls[i])
				return nil
			})
		}
		_ = g.Wait()
	}
	failed := 0
	for i := range results {
		if results[i].Failed() {
			failed++
		}
	}
	log.Debug("All tool calls completed", "results_count", len(results), "failed_count", failed)
	return results
}

func (e *ToolExecutor) executeSingle(
	ctx context.Context,
	execCtx llmadapter.ExecutionContext,
	call llmadapter.ToolCall,
) (out llmadapter.ToolCall) {
	log := logger.FromContext(ctx).With("tool_name", call.Name, "tool_call_id", call.ID)
	acct := usage.FromContext(ctx)
	acct.IncToolCalls()
	out = llmadapter.ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments}
	if e.runner == nil {
		out.Error = fmt.Sprintf("tool not found: %s", call.Name)
		return out
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Tool panicked", "panic", fmt.Sprint(rec))
			out.Result = nil
			out.Error = fmt.Sprintf("tool %s panicked", call.Name)
		}
	}()
	execCtx.ToolCallID = call.ID
	output, err := e.runner.Run(context.WithoutCancel(ctx), call.Name, call.Arguments, execCtx)
	if err != nil {
		toolErr := llmadapter.AsError(err, llmadapter.ErrCodeTool)
		acct.AddCredits(ctx, toolErr.CreditsUsed)
		out.Error = toolErr.Message
		if out.Error == "" {
			out.Error = toolErr.Code
		}
		log.Debug("Tool execution failed", "code", toolErr.Code, "error", core.RedactString(toolErr.Message))
		return out
	}
	if output == nil {
		output = &llmadapter.ToolOutput{}
	}
	acct.AddCredits(ctx, output.CreditsUsed)
	out.Result = output.Output
	log.Debug("Tool execution succeeded")
	return out
}
