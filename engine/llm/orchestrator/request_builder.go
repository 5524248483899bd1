package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dario.cat/mergo"

	"github.com/swarmworks/responder/engine/conversation"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/prompt"
)

// buildMessages assembles system message, assembled history and the
// context's own turns, in that order.
func (o *Orchestrator) buildMessages(ctx context.Context, rc *conversation.ResponseContext) ([]llmadapter.Message, *ResultError) {
	system, err := o.cfg.PromptBuilder.BuildSystemMessage(
		ctx,
		prompt.PromptContext{Response: rc},
		&prompt.BuildOptions{TemplateIdentifier: o.settings.templateIdentifier},
	)
	if err != nil {
		return nil, &ResultError{Code: ErrCodePromptBuild, Message: err.Error()}
	}
	history, err := o.cfg.History.BuildMessages(ctx, rc)
	if err != nil {
		return nil, &ResultError{Code: ErrCodeHistory, Message: err.Error()}
	}
	messages := make([]llmadapter.Message, 0, 1+len(history)+len(rc.Messages))
	messages = append(messages, llmadapter.Message{Role: conversation.RoleSystem, Content: system})
	for _, m := range history {
		messages = append(messages, fromConversation(m))
	}
	for _, m := range rc.Messages {
		messages = append(messages, fromConversation(m))
	}
	if err := llmadapter.ValidateConversation(messages); err != nil {
		return nil, &ResultError{Code: ErrCodeHistory, Message: err.Error()}
	}
	return messages, nil
}

func fromConversation(m conversation.Message) llmadapter.Message {
	return llmadapter.Message{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
}

// buildCallOptions applies overrides on top of the selected model and clamps
// max tokens to the context limit.
func buildCallOptions(model string, limits conversation.ResourceLimits, overrides *Overrides) (llmadapter.CallOptions, error) {
	opts := llmadapter.CallOptions{Model: model}
	if limits.TimeoutMs > 0 {
		opts.Timeout = time.Duration(limits.TimeoutMs) * time.Millisecond
	}
	if overrides != nil {
		src := llmadapter.CallOptions{
			Model:       overrides.Model,
			MaxTokens:   overrides.DefaultMaxTokens,
			Temperature: overrides.DefaultTemperature,
		}
		if err := mergo.Merge(&opts, src, mergo.WithOverride); err != nil {
			return opts, fmt.Errorf("apply overrides: %w", err)
		}
	}
	if limits.MaxTokens > 0 && (opts.MaxTokens == 0 || opts.MaxTokens > limits.MaxTokens) {
		opts.MaxTokens = limits.MaxTokens
	}
	return opts, nil
}

// toolMessages feeds executed calls back to the model, one tool message per call.
func toolMessages(calls []llmadapter.ToolCall) []llmadapter.Message {
	out := make([]llmadapter.Message, 0, len(calls))
	for i := range calls {
		call := &calls[i]
		out = append(out, llmadapter.Message{
			Role:       conversation.RoleTool,
			Content:    toolContent(call),
			ToolCallID: call.ID,
		})
	}
	return out
}

func toolContent(call *llmadapter.ToolCall) string {
	if call.Failed() {
		return fmt.Sprintf("Tool %s failed: %s", call.Name, call.Error)
	}
	switch v := call.Result.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
