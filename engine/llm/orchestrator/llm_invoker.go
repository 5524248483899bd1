package orchestrator

import (
	"context"
	"fmt"

	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/usage"
	"github.com/swarmworks/responder/pkg/logger"
)

type llmInvoker struct {
	backend llmadapter.Backend
}

// Invoke performs one completion call and charges the accountant in ctx for
// whatever the backend reports, on success and on failure. The call is
// detached from cancellation and bounded only by opts.Timeout.
func (i *llmInvoker) Invoke(ctx context.Context, req *llmadapter.CompletionRequest) (_ *llmadapter.Completion, callErr *llmadapter.Error) {
	acct := usage.FromContext(ctx)
	callCtx := context.WithoutCancel(ctx)
	if req.Options.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, req.Options.Timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.FromContext(ctx).Error("LLM backend panicked", "panic", fmt.Sprint(rec))
			callErr = llmadapter.NewError(llmadapter.ErrCodeLLM, "LLM backend failure", "0")
		}
	}()
	completion, err := i.backend.Complete(callCtx, req)
	if err != nil {
		failure := llmadapter.AsError(err, llmadapter.ErrCodeLLM)
		acct.AddCredits(ctx, failure.CreditsUsed)
		return nil, failure
	}
	if completion == nil {
		return nil, llmadapter.NewError(llmadapter.ErrCodeLLM, "LLM backend returned no completion", "0")
	}
	acct.AddCredits(ctx, completion.CreditsUsed)
	acct.SetTokens(completion.TokensUsed)
	return completion, nil
}
