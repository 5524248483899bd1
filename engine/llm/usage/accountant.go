package usage

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/swarmworks/responder/pkg/logger"
)

type contextKey struct{}

// Tokens reports token counts for a single LLM call.
type Tokens struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ResourceUsage is the resource summary of one generation.
// CreditsUsed is an exact decimal string; TokensUsed reflects the last LLM call only.
type ResourceUsage struct {
	CreditsUsed string `json:"creditsUsed"`
	TokensUsed  Tokens `json:"tokensUsed"`
	ToolCalls   int    `json:"toolCalls"`
}

// Accountant accumulates credits, tokens and tool-call counts for one generation.
// All methods are safe for concurrent use, so tool calls may charge in any order.
type Accountant struct {
	mu        sync.Mutex
	credits   decimal.Decimal
	tokens    Tokens
	toolCalls int
}

func NewAccountant() *Accountant {
	return &Accountant{credits: decimal.Zero}
}

// ContextWithAccountant attaches the accountant so nested components can charge it.
func ContextWithAccountant(ctx context.Context, a *Accountant) context.Context {
	if a == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext retrieves the accountant stored in the context, if present.
func FromContext(ctx context.Context) *Accountant {
	if ctx == nil {
		return nil
	}
	if a, ok := ctx.Value(contextKey{}).(*Accountant); ok {
		return a
	}
	return nil
}

// ParseCredits converts a reported credit value into an exact decimal.
// Empty values count as zero.
func ParseCredits(value string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(trimmed)
}

// AddCredits folds a reported charge into the running total. Values that
// cannot be parsed are logged and ignored.
func (a *Accountant) AddCredits(ctx context.Context, value string) {
	if a == nil {
		return
	}
	amount, err := ParseCredits(value)
	if err != nil {
		logger.FromContext(ctx).Warn("Ignoring unparsable credit value", "value", value, "error", err)
		return
	}
	a.mu.Lock()
	a.credits = a.credits.Add(amount)
	a.mu.Unlock()
}

// SetTokens records the token usage of the most recent LLM call.
func (a *Accountant) SetTokens(tokens Tokens) {
	if a == nil {
		return
	}
	if tokens.Total == 0 {
		tokens.Total = tokens.Prompt + tokens.Completion
	}
	a.mu.Lock()
	a.tokens = tokens
	a.mu.Unlock()
}

// IncToolCalls counts one attempted tool invocation.
func (a *Accountant) IncToolCalls() {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.toolCalls++
	a.mu.Unlock()
}

// Credits returns the exact running credit total.
func (a *Accountant) Credits() decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.credits
}

// Snapshot returns the current totals.
func (a *Accountant) Snapshot() ResourceUsage {
	if a == nil {
		return ResourceUsage{CreditsUsed: decimal.Zero.String()}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return ResourceUsage{
		CreditsUsed: a.credits.String(),
		TokensUsed:  a.tokens,
		ToolCalls:   a.toolCalls,
	}
}
