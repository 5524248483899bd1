package llmadapter

import (
	"context"
	"errors"
	"fmt"
)

// Error codes reported by the completion and tool backends.
const (
	ErrCodeLLM                 = "LLM_ERROR"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeTool                = "TOOL_ERROR"
	ErrCodeToolNotFound        = "TOOL_NOT_FOUND"
	ErrCodeInsufficientCredits = "INSUFFICIENT_CREDITS"
)

// Error is a structured backend failure. CreditsUsed is what the backend
// already charged before failing.
type Error struct {
	Code        string
	Message     string
	CreditsUsed string
	Err         error
}

func NewError(code, message, creditsUsed string) *Error {
	return &Error{Code: code, Message: message, CreditsUsed: creditsUsed}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsError normalizes any backend error into *Error. Unstructured errors map
// to fallbackCode with zero credits; deadline errors map to TIMEOUT.
func AsError(err error, fallbackCode string) *Error {
	if err == nil {
		return nil
	}
	var structured *Error
	if errors.As(err, &structured) && structured != nil {
		return structured
	}
	code := fallbackCode
	if errors.Is(err, context.DeadlineExceeded) {
		code = ErrCodeTimeout
	}
	return &Error{Code: code, Message: err.Error(), CreditsUsed: "0", Err: err}
}
