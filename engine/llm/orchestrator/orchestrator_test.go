package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmworks/responder/engine/agent"
	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/events"
	llmadapter "github.com/swarmworks/responder/engine/llm/adapter"
	"github.com/swarmworks/responder/engine/llm/prompt"
	"github.com/swarmworks/responder/engine/llm/usage"
	"github.com/swarmworks/responder/pkg/config"
)

type step struct {
	completion *llmadapter.Completion
	err        error
}

type scriptedBackend struct {
	mu       sync.Mutex
	steps    []step
	repeat   *step
	requests []*llmadapter.CompletionRequest
}

func (b *scriptedBackend) Complete(_ context.Context, req *llmadapter.CompletionRequest) (*llmadapter.Completion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if len(b.steps) == 0 {
		if b.repeat != nil {
			return b.repeat.completion, b.repeat.err
		}
		return nil, errors.New("script exhausted")
	}
	s := b.steps[0]
	b.steps = b.steps[1:]
	return s.completion, s.err
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

type stubBuilder struct {
	err error
}

func (s stubBuilder) BuildSystemMessage(context.Context, prompt.PromptContext, *prompt.BuildOptions) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "SYSTEM", nil
}

type fixedModel string

func (m fixedModel) SelectModel(context.Context, *conversation.ResponseContext) string {
	return string(m)
}

func validContext() *conversation.ResponseContext {
	return &conversation.ResponseContext{
		SwarmID:        "swarm-1",
		ConversationID: "conv-1",
		Bot:            &agent.BotParticipant{ID: "bot-1", Name: "Ada", Config: &agent.BotConfig{}},
		UserData:       &conversation.SessionUser{ID: "user-1"},
		Messages:       []conversation.Message{{Role: conversation.RoleUser, Content: "find it"}},
		AvailableTools: []conversation.Tool{{Name: "search"}},
	}
}

func searchCall(id string) llmadapter.ToolCall {
	return llmadapter.ToolCall{ID: id, Name: "search", Arguments: json.RawMessage(`{"q":"go"}`)}
}

func newTestOrchestrator(t *testing.T, cfg Config) (*Orchestrator, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	if cfg.Events == nil {
		cfg.Events = rec
	}
	if cfg.PromptBuilder == nil {
		cfg.PromptBuilder = stubBuilder{}
	}
	if cfg.ModelSelector == nil {
		cfg.ModelSelector = fixedModel("test-model")
	}
	o, err := New(cfg)
	require.NoError(t, err)
	return o, rec
}

func TestNew(t *testing.T) {
	t.Run("Should require a backend and a prompt builder", func(t *testing.T) {
		_, err := New(Config{PromptBuilder: stubBuilder{}})
		assert.ErrorContains(t, err, "backend")
		_, err = New(Config{Backend: &scriptedBackend{}})
		assert.ErrorContains(t, err, "prompt builder")
	})

	t.Run("Should take loop limits from the app config", func(t *testing.T) {
		app := config.Default()
		app.Orchestrator.MaxToolIterations = 2
		app.Orchestrator.ParallelTools = true
		cfg := Config{Backend: &scriptedBackend{}, PromptBuilder: stubBuilder{}}
		cfg.ApplyAppConfig(app)
		o, err := New(cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, o.settings.maxToolIterations)
		assert.True(t, o.settings.parallelTools)
		assert.Equal(t, 4, o.settings.maxConcurrentTools)
		assert.Equal(t, "prompt.txt", o.settings.templateIdentifier)
	})
}

func TestOrchestrator_GenerateResponse(t *testing.T) {
	t.Run("Should sum LLM and tool credits across iterations", func(t *testing.T) {
		backend := &scriptedBackend{steps: []step{
			{completion: &llmadapter.Completion{
				ToolCalls:   []llmadapter.ToolCall{searchCall("call-1")},
				CreditsUsed: "50",
				TokensUsed:  usage.Tokens{Prompt: 10, Completion: 5},
			}},
			{completion: &llmadapter.Completion{
				MessageContent: "Here is what I found",
				CreditsUsed:    "60",
				TokensUsed:     usage.Tokens{Prompt: 30, Completion: 7, Total: 37},
			}},
		}}
		var seen llmadapter.ExecutionContext
		tools := llmadapter.ToolRunnerFunc(func(_ context.Context, name string, _ json.RawMessage, execCtx llmadapter.ExecutionContext) (*llmadapter.ToolOutput, error) {
			seen = execCtx
			return &llmadapter.ToolOutput{Output: map[string]any{"hits": 3}, CreditsUsed: "10"}, nil
		})
		o, rec := newTestOrchestrator(t, Config{Backend: backend, Tools: tools})

		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})

		require.True(t, res.Success, "%+v", res.Error)
		assert.Equal(t, "bot-1", res.BotID)
		assert.Equal(t, "Here is what I found", res.Message)
		require.Len(t, res.ToolCalls, 1)
		assert.Equal(t, map[string]any{"hits": 3}, res.ToolCalls[0].Result)
		assert.Empty(t, res.ToolCalls[0].Error)
		assert.Equal(t, "120", res.ResourcesUsed.CreditsUsed)
		assert.Equal(t, usage.Tokens{Prompt: 30, Completion: 7, Total: 37}, res.ResourcesUsed.TokensUsed)
		assert.Equal(t, 1, res.ResourcesUsed.ToolCalls)
		assert.Equal(t, "call-1", seen.ToolCallID)
		assert.Equal(t, "user-1", seen.UserID)
		assert.Equal(t, []string{events.ChatTypingStart, events.ChatTypingStop}, rec.Types())
		assert.Equal(t, events.Payload{ChatID: "conv-1", UserID: "bot-1"}, rec.Events()[0].Payload)

		require.Equal(t, 2, backend.calls())
		second := backend.requests[1].Messages
		require.Len(t, second, 4)
		assert.Equal(t, conversation.RoleSystem, second[0].Role)
		assert.Equal(t, "SYSTEM", second[0].Content)
		assert.Equal(t, conversation.RoleAssistant, second[2].Role)
		assert.Equal(t, conversation.RoleTool, second[3].Role)
		assert.Equal(t, "call-1", second[3].ToolCallID)
		assert.JSONEq(t, `{"hits":3}`, second[3].Content)
	})

	t.Run("Should fail with the backend code and charged credits", func(t *testing.T) {
		backend := &scriptedBackend{steps: []step{
			{err: llmadapter.NewError(llmadapter.ErrCodeLLM, "Service unavailable", "0")},
		}}
		o, rec := newTestOrchestrator(t, Config{Backend: backend})

		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})

		assert.False(t, res.Success)
		require.NotNil(t, res.Error)
		assert.Equal(t, "LLM_ERROR", res.Error.Code)
		assert.Equal(t, "Service unavailable", res.Error.Message)
		assert.Equal(t, "0", res.ResourcesUsed.CreditsUsed)
		assert.Equal(t, []string{events.ChatTypingStart, events.ChatTypingStop}, rec.Types())
	})

	t.Run("Should record tool failures and let the model recover", func(t *testing.T) {
		backend := &scriptedBackend{steps: []step{
			{completion: &llmadapter.Completion{ToolCalls: []llmadapter.ToolCall{searchCall("call-1")}, CreditsUsed: "50"}},
			{completion: &llmadapter.Completion{MessageContent: "Search is down, sorry", CreditsUsed: "40"}},
		}}
		tools := llmadapter.ToolRunnerFunc(func(context.Context, string, json.RawMessage, llmadapter.ExecutionContext) (*llmadapter.ToolOutput, error) {
			return nil, llmadapter.NewError(llmadapter.ErrCodeTool, "Search service down", "5")
		})
		o, _ := newTestOrchestrator(t, Config{Backend: backend, Tools: tools})

		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})

		require.True(t, res.Success)
		require.Len(t, res.ToolCalls, 1)
		assert.Equal(t, "Search service down", res.ToolCalls[0].Error)
		assert.Nil(t, res.ToolCalls[0].Result)
		assert.Equal(t, "95", res.ResourcesUsed.CreditsUsed)
		assert.Equal(t, 1, res.ResourcesUsed.ToolCalls)
		assert.Contains(t, backend.requests[1].Messages[3].Content, "Search service down")
	})

	t.Run("Should stop after the iteration cap without error", func(t *testing.T) {
		backend := &scriptedBackend{repeat: &step{completion: &llmadapter.Completion{
			MessageContent: "still working",
			ToolCalls:      []llmadapter.ToolCall{searchCall("call")},
			CreditsUsed:    "1",
		}}}
		var runs atomic.Int32
		tools := llmadapter.ToolRunnerFunc(func(context.Context, string, json.RawMessage, llmadapter.ExecutionContext) (*llmadapter.ToolOutput, error) {
			runs.Add(1)
			return &llmadapter.ToolOutput{Output: "ok", CreditsUsed: "0.5"}, nil
		})
		o, _ := newTestOrchestrator(t, Config{Backend: backend, Tools: tools})

		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})

		require.True(t, res.Success)
		assert.Nil(t, res.Error)
		assert.Equal(t, "still working", res.Message)
		assert.Equal(t, 10, backend.calls())
		assert.Equal(t, int32(10), runs.Load())
		assert.Len(t, res.ToolCalls, 10)
		assert.Equal(t, "15", res.ResourcesUsed.CreditsUsed)
	})

	t.Run("Should honor a configured iteration cap", func(t *testing.T) {
		backend := &scriptedBackend{repeat: &step{completion: &llmadapter.Completion{
			ToolCalls: []llmadapter.ToolCall{searchCall("call")},
		}}}
		tools := llmadapter.ToolRunnerFunc(func(context.Context, string, json.RawMessage, llmadapter.ExecutionContext) (*llmadapter.ToolOutput, error) {
			return &llmadapter.ToolOutput{}, nil
		})
		o, _ := newTestOrchestrator(t, Config{Backend: backend, Tools: tools, MaxToolIterations: 3})
		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})
		require.True(t, res.Success)
		assert.Equal(t, 3, backend.calls())
	})

	t.Run("Should reject an empty swarm id", func(t *testing.T) {
		backend := &scriptedBackend{}
		o, rec := newTestOrchestrator(t, Config{Backend: backend})
		rc := validContext()
		rc.SwarmID = ""

		res := o.GenerateResponse(t.Context(), Params{Context: rc})

		assert.False(t, res.Success)
		require.NotNil(t, res.Error)
		assert.Equal(t, ErrCodeInvalidContext, res.Error.Code)
		assert.Equal(t, "0", res.ResourcesUsed.CreditsUsed)
		assert.Zero(t, backend.calls())
		assert.Empty(t, rec.Events())
	})

	t.Run("Should reject missing bot config and user data", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, Config{Backend: &scriptedBackend{}})
		rc := validContext()
		rc.Bot.Config = nil
		assert.Equal(t, ErrCodeInvalidContext, o.GenerateResponse(t.Context(), Params{Context: rc}).Error.Code)
		rc = validContext()
		rc.UserData = nil
		assert.Equal(t, ErrCodeInvalidContext, o.GenerateResponse(t.Context(), Params{Context: rc}).Error.Code)
		assert.Equal(t, ErrCodeInvalidContext, o.GenerateResponse(t.Context(), Params{}).Error.Code)
	})

	t.Run("Should not call the backend when already cancelled", func(t *testing.T) {
		backend := &scriptedBackend{}
		o, rec := newTestOrchestrator(t, Config{Backend: backend})
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		res := o.GenerateResponse(ctx, Params{Context: validContext()})

		assert.False(t, res.Success)
		require.NotNil(t, res.Error)
		assert.Equal(t, ErrCodeOperationCancelled, res.Error.Code)
		assert.Zero(t, backend.calls())
		assert.Empty(t, rec.Events())
	})

	t.Run("Should stop before the next LLM call once cancelled", func(t *testing.T) {
		backend := &scriptedBackend{repeat: &step{completion: &llmadapter.Completion{
			ToolCalls:   []llmadapter.ToolCall{searchCall("call")},
			CreditsUsed: "2",
		}}}
		ctx, cancel := context.WithCancel(t.Context())
		tools := llmadapter.ToolRunnerFunc(func(context.Context, string, json.RawMessage, llmadapter.ExecutionContext) (*llmadapter.ToolOutput, error) {
			cancel()
			return &llmadapter.ToolOutput{Output: "done", CreditsUsed: "1"}, nil
		})
		o, rec := newTestOrchestrator(t, Config{Backend: backend, Tools: tools})

		res := o.GenerateResponse(ctx, Params{Context: validContext()})

		assert.Equal(t, ErrCodeOperationCancelled, res.Error.Code)
		assert.Equal(t, 1, backend.calls())
		require.Len(t, res.ToolCalls, 1)
		assert.Equal(t, "done", res.ToolCalls[0].Result)
		assert.Equal(t, "3", res.ResourcesUsed.CreditsUsed)
		assert.Equal(t, []string{events.ChatTypingStart, events.ChatTypingStop}, rec.Types())
	})

	t.Run("Should fail when the system prompt cannot be built", func(t *testing.T) {
		backend := &scriptedBackend{}
		o, _ := newTestOrchestrator(t, Config{
			Backend:       backend,
			PromptBuilder: stubBuilder{err: errors.New("Unknown variable scope: env")},
		})
		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})
		assert.Equal(t, ErrCodePromptBuild, res.Error.Code)
		assert.Contains(t, res.Error.Message, "Unknown variable scope")
		assert.Zero(t, backend.calls())
	})

	t.Run("Should fail when history cannot be assembled", func(t *testing.T) {
		history := historyFunc(func(context.Context, *conversation.ResponseContext) ([]conversation.Message, error) {
			return nil, errors.New("store offline")
		})
		o, _ := newTestOrchestrator(t, Config{Backend: &scriptedBackend{}, History: history})
		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})
		assert.Equal(t, ErrCodeHistory, res.Error.Code)
	})

	t.Run("Should apply overrides and limits to the completion request", func(t *testing.T) {
		backend := &scriptedBackend{steps: []step{{completion: &llmadapter.Completion{MessageContent: "hi"}}}}
		o, _ := newTestOrchestrator(t, Config{Backend: backend})
		rc := validContext()
		rc.ResourceLimits = conversation.ResourceLimits{MaxTokens: 500, TimeoutMs: 1500}

		res := o.GenerateResponse(t.Context(), Params{
			Context:   rc,
			Overrides: &Overrides{DefaultMaxTokens: 2000, DefaultTemperature: 0.2},
		})

		require.True(t, res.Success)
		opts := backend.requests[0].Options
		assert.Equal(t, "test-model", opts.Model)
		assert.Equal(t, 500, opts.MaxTokens)
		assert.InDelta(t, 0.2, opts.Temperature, 1e-9)
		assert.Equal(t, 1500*time.Millisecond, opts.Timeout)
		assert.Equal(t, "conv-1", backend.requests[0].ChatID)
		require.Len(t, backend.requests[0].Tools, 1)
	})

	t.Run("Should map backend deadline errors to TIMEOUT", func(t *testing.T) {
		backend := llmadapter.BackendFunc(func(ctx context.Context, _ *llmadapter.CompletionRequest) (*llmadapter.Completion, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
		o, _ := newTestOrchestrator(t, Config{Backend: backend})
		rc := validContext()
		rc.ResourceLimits.TimeoutMs = 20
		res := o.GenerateResponse(t.Context(), Params{Context: rc})
		assert.Equal(t, llmadapter.ErrCodeTimeout, res.Error.Code)
	})

	t.Run("Should keep generating when typing events fail", func(t *testing.T) {
		backend := &scriptedBackend{steps: []step{{completion: &llmadapter.Completion{MessageContent: "ok", CreditsUsed: "1"}}}}
		sink := &events.Recorder{Err: errors.New("bus down")}
		o, _ := newTestOrchestrator(t, Config{Backend: backend, Events: sink})
		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})
		assert.True(t, res.Success)
		assert.Len(t, sink.Events(), 2)
	})
}

type historyFunc func(ctx context.Context, rc *conversation.ResponseContext) ([]conversation.Message, error)

func (f historyFunc) BuildMessages(ctx context.Context, rc *conversation.ResponseContext) ([]conversation.Message, error) {
	return f(ctx, rc)
}

func TestOrchestrator_WithPromptBuilder(t *testing.T) {
	newBuilder := func(t *testing.T, template string) *prompt.Builder {
		t.Helper()
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "prompt.txt", []byte(template), 0o644))
		store, err := prompt.NewTemplateStore(fs, 8, true)
		require.NoError(t, err)
		b, err := prompt.NewBuilder(store, nil)
		require.NoError(t, err)
		return b
	}

	t.Run("Should send the rendered template as the system message", func(t *testing.T) {
		backend := &scriptedBackend{steps: []step{{completion: &llmadapter.Completion{MessageContent: "hi"}}}}
		o, _ := newTestOrchestrator(t, Config{Backend: backend, PromptBuilder: newBuilder(t, "You are {{BOT.name}}.")})
		res := o.GenerateResponse(t.Context(), Params{Context: validContext()})
		require.True(t, res.Success)
		assert.Equal(t, "You are Ada.", backend.requests[0].Messages[0].Content)
	})

	t.Run("Should fail with PROMPT_BUILD_ERROR on an unknown variable scope", func(t *testing.T) {
		backend := &scriptedBackend{}
		o, _ := newTestOrchestrator(t, Config{Backend: backend, PromptBuilder: newBuilder(t, "{{who}}")})
		rc := validContext()
		rc.Bot.Config.AgentSpec = &agent.AgentSpec{Prompt: &agent.PromptSpec{
			Source:    agent.PromptSourceDirect,
			Content:   "Hello {{who}}",
			Mode:      agent.PromptModeSupplement,
			Variables: map[string]string{"who": "env.HOME"},
		}}
		res := o.GenerateResponse(t.Context(), Params{Context: rc})
		require.NotNil(t, res.Error)
		assert.Equal(t, ErrCodePromptBuild, res.Error.Code)
		assert.Contains(t, res.Error.Message, "Unknown variable scope")
		assert.Zero(t, backend.calls())
	})
}
