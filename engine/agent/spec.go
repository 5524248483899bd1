package agent

import (
	"errors"
	"fmt"
)

const (
	PromptSourceDirect = "direct"

	PromptModeReplace    = "replace"
	PromptModeSupplement = "supplement"
)

// ErrMissingDirectContent is returned when a direct prompt has no content.
var ErrMissingDirectContent = errors.New("Direct prompt source requires content field")

// AgentSpec is a per-bot override of prompt construction.
type AgentSpec struct {
	Prompt *PromptSpec `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// PromptSpec overrides or supplements the base template.
// Variables maps a local template name to a dotted path rooted at
// context, config or swarm.
type PromptSpec struct {
	Source    string            `json:"source"              yaml:"source"`
	Content   string            `json:"content,omitempty"   yaml:"content,omitempty"`
	Mode      string            `json:"mode,omitempty"      yaml:"mode,omitempty"`
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`
}

// IsSupplement reports whether the content is appended to the base template.
// Any mode other than supplement replaces the template.
func (p *PromptSpec) IsSupplement() bool {
	return p != nil && p.Mode == PromptModeSupplement
}

func (p *PromptSpec) Validate() error {
	if p == nil {
		return nil
	}
	if p.Source != PromptSourceDirect {
		return fmt.Errorf("unsupported prompt source %q", p.Source)
	}
	if p.Content == "" {
		return ErrMissingDirectContent
	}
	switch p.Mode {
	case "", PromptModeReplace, PromptModeSupplement:
		return nil
	default:
		return fmt.Errorf("unsupported prompt mode %q", p.Mode)
	}
}
