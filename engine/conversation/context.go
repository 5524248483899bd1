package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/swarmworks/responder/engine/agent"
	"github.com/swarmworks/responder/engine/swarm"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"    yaml:"role"`
	Content string `json:"content" yaml:"content"`
	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"toolCallId,omitempty" yaml:"toolCallId,omitempty"`
}

// Tool is a capability offered to the model.
type Tool struct {
	Name        string         `json:"name"                  yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty" yaml:"inputSchema,omitempty"`
}

// SessionUser is the user on whose behalf the bot responds.
type SessionUser struct {
	ID        string   `json:"id"                  yaml:"id"`
	Name      string   `json:"name,omitempty"      yaml:"name,omitempty"`
	Credits   string   `json:"credits,omitempty"   yaml:"credits,omitempty"`
	Languages []string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// ResourceLimits bounds one generation. Enforcement happens in the backends.
type ResourceLimits struct {
	MaxCredits string `json:"maxCredits,omitempty" yaml:"maxCredits,omitempty"`
	MaxTokens  int    `json:"maxTokens,omitempty"  yaml:"maxTokens,omitempty"`
	TimeoutMs  int    `json:"timeoutMs,omitempty"  yaml:"timeoutMs,omitempty"`
}

// ResponseContext is everything needed to produce one bot response.
type ResponseContext struct {
	SwarmID        string                `json:"swarmId"              yaml:"swarmId"        validate:"required"`
	ConversationID string                `json:"conversationId"       yaml:"conversationId"`
	Bot            *agent.BotParticipant `json:"bot"                  yaml:"bot"            validate:"required"`
	UserData       *SessionUser          `json:"userData"             yaml:"userData"       validate:"required"`
	Messages       []Message             `json:"messages,omitempty"   yaml:"messages,omitempty"`
	AvailableTools []Tool                `json:"availableTools"       yaml:"availableTools"`
	Strategy       string                `json:"strategy,omitempty"   yaml:"strategy,omitempty"`
	ResourceLimits ResourceLimits        `json:"resourceLimits"       yaml:"resourceLimits"`
	ChatConfig     *agent.ChatConfig     `json:"chatConfig,omitempty" yaml:"chatConfig,omitempty"`
	TeamConfig     *agent.TeamConfig     `json:"teamConfig,omitempty" yaml:"teamConfig,omitempty"`
	SwarmState     *swarm.State          `json:"swarmState,omitempty" yaml:"swarmState,omitempty"`
}

// HistoryAssembler turns stored conversation history into model messages.
type HistoryAssembler interface {
	BuildMessages(ctx context.Context, rc *ResponseContext) ([]Message, error)
}

// NoHistory assembles no messages beyond the context's own.
type NoHistory struct{}

func (NoHistory) BuildMessages(context.Context, *ResponseContext) ([]Message, error) {
	return nil, nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ErrInvalidContext is wrapped by all Validate failures.
var ErrInvalidContext = errors.New("invalid response context")

// Validate enforces the entry invariants: a non-blank swarm id, a bot with
// config, and user data.
func (rc *ResponseContext) Validate() error {
	if rc == nil {
		return fmt.Errorf("%w: context is nil", ErrInvalidContext)
	}
	if strings.TrimSpace(rc.SwarmID) == "" {
		return fmt.Errorf("%w: swarmId is required", ErrInvalidContext)
	}
	if err := getValidator().Struct(rc); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("%w: %s is %s", ErrInvalidContext, fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	return nil
}

// UserID returns the session user id, or empty.
func (rc *ResponseContext) UserID() string {
	if rc == nil || rc.UserData == nil {
		return ""
	}
	return rc.UserData.ID
}

// BotID returns the bot id, or empty.
func (rc *ResponseContext) BotID() string {
	if rc == nil || rc.Bot == nil {
		return ""
	}
	return rc.Bot.ID
}
