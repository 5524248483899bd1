package llmadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/llm/usage"
)

// Message is a conversation message sent to the backend.
type Message struct {
	Role    string
	Content string
	// ToolCalls carries calls emitted by the assistant.
	// Constraint: only messages with Role == "assistant" may contain ToolCalls.
	ToolCalls []ToolCall
	// ToolCallID links a tool message to the call it answers.
	// Constraint: only messages with Role == "tool" may set it.
	ToolCallID string
}

// ToolDefinition represents a tool available to the LLM
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// ToolCall is a model-requested invocation and, once executed, its outcome.
// At most one of Result and Error is set.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Failed reports whether the call carries an error outcome.
func (c *ToolCall) Failed() bool {
	return c != nil && c.Error != ""
}

// CallOptions represents options for the LLM call
type CallOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout is enforced by the backend, which reports TIMEOUT when exceeded.
	Timeout time.Duration
}

// CompletionRequest is one call to the completion backend.
type CompletionRequest struct {
	Messages []Message
	Tools    []ToolDefinition
	Options  CallOptions
	ChatID   string
	BotID    string
	UserID   string
}

// Completion is a successful backend response.
type Completion struct {
	MessageContent string
	ToolCalls      []ToolCall
	CreditsUsed    string
	TokensUsed     usage.Tokens
}

// Backend is the LLM completion router. Failures should be returned as *Error
// so that the code and already charged credits survive.
type Backend interface {
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req *CompletionRequest) (*Completion, error)

func (f BackendFunc) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	return f(ctx, req)
}

// ExecutionContext identifies the generation a tool runs for.
type ExecutionContext struct {
	SwarmID        string
	ConversationID string
	BotID          string
	UserID         string
	ToolCallID     string
	Limits         conversation.ResourceLimits
}

// ToolOutput is a successful tool run.
type ToolOutput struct {
	Output      any
	CreditsUsed string
}

// ToolRunner executes a named tool. Failures should be returned as *Error.
type ToolRunner interface {
	Run(ctx context.Context, name string, args json.RawMessage, execCtx ExecutionContext) (*ToolOutput, error)
}

// ToolRunnerFunc adapts a function to ToolRunner.
type ToolRunnerFunc func(ctx context.Context, name string, args json.RawMessage, execCtx ExecutionContext) (*ToolOutput, error)

func (f ToolRunnerFunc) Run(
	ctx context.Context,
	name string,
	args json.RawMessage,
	execCtx ExecutionContext,
) (*ToolOutput, error) {
	return f(ctx, name, args, execCtx)
}

// DefinitionsFromTools converts the context tool catalogue into backend schemas.
func DefinitionsFromTools(tools []conversation.Tool) []ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.InputSchema})
	}
	return defs
}

// ValidateConversation asserts role-specific constraints for messages.
func ValidateConversation(messages []Message) error {
	for i, m := range messages {
		if len(m.ToolCalls) > 0 && m.Role != conversation.RoleAssistant {
			return fmt.Errorf("message[%d] role %q cannot contain ToolCalls", i, m.Role)
		}
		if m.ToolCallID != "" && m.Role != conversation.RoleTool {
			return fmt.Errorf("message[%d] role %q cannot reference a tool call", i, m.Role)
		}
	}
	return nil
}
