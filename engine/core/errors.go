package core

import (
	"errors"
	"fmt"
)

// Error is a coded error carrying structured details for callers and logs.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

// NewError wraps err with a machine readable code.
func NewError(err error, code string, details map[string]any) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Code: code, Message: msg, Details: details, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrorCode returns the code of the first *Error in err's chain.
func ErrorCode(err error) (string, bool) {
	var coded *Error
	if errors.As(err, &coded) && coded != nil {
		return coded.Code, true
	}
	return "", false
}
