package orchestrator

import (
	"context"

	"github.com/swarmworks/responder/engine/conversation"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/prompt"
	"github.com/swarmworks/responder/engine/llm/usage"
)

// PromptBuilder produces the system message for a generation.
type PromptBuilder interface {
	BuildSystemMessage(ctx context.Context, pc prompt.PromptContext, opts *prompt.BuildOptions) (string, error)
}

// ModelSelector picks the model for a generation. It must not fail.
type ModelSelector interface {
	SelectModel(ctx context.Context, rc *conversation.ResponseContext) string
}

// Overrides adjust the completion request of one generation.
// Zero values leave the selected defaults untouched.
type Overrides struct {
	Model              string  `json:"model,omitempty"`
	DefaultMaxTokens   int     `json:"defaultMaxTokens,omitempty"`
	DefaultTemperature float64 `json:"defaultTemperature,omitempty"`
}

// Params is the input of GenerateResponse. Cancel the call's context to abort.
type Params struct {
	Context   *conversation.ResponseContext
	Overrides *Overrides
}

// ResultError is the structured failure of a generation.
type ResultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseResult is the outcome of one generation.
type ResponseResult struct {
	Success       bool                  `json:"success"`
	BotID         string                `json:"botId"`
	Message       string                `json:"message"`
	ToolCalls     []llmadapter.ToolCall `json:"toolCalls"`
	ResourcesUsed usage.ResourceUsage   `json:"resourcesUsed"`
	Error         *ResultError          `json:"error,omitempty"`
}
