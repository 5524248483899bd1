package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/pkg/logger"
)

// scopeAliases maps a variable scope to the context path that exposes the
// same data, so "config.secrets.**" also guards "context.bot.config.secrets.*".
var scopeAliases = map[string]string{
	scopeConfig: "context.bot.config",
	scopeTeam:   "context.teamConfig",
	scopeSwarm:  "context.swarmState",
}

// sensitiveMatcher matches dotted variable paths against glob patterns such
// as "config.secrets.**". Dots are treated as path separators. A path also
// matches when it names an ancestor of a protected subtree.
type sensitiveMatcher struct {
	patterns []string
	prefixes [][]string
}

func newSensitiveMatcher(patterns []string) (*sensitiveMatcher, error) {
	m := &sensitiveMatcher{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		glob := dottedToSlash(p)
		if !doublestar.ValidatePattern(glob) {
			return nil, fmt.Errorf("invalid sensitive pattern %q", p)
		}
		m.add(glob)
		head, rest, _ := strings.Cut(glob, "/")
		if alias, ok := scopeAliases[head]; ok {
			m.add(strings.TrimSuffix(dottedToSlash(alias)+"/"+rest, "/"))
		}
	}
	return m, nil
}

func (m *sensitiveMatcher) add(glob string) {
	m.patterns = append(m.patterns, glob)
	var literal []string
	for _, seg := range strings.Split(glob, "/") {
		if strings.ContainsAny(seg, `*?[{\`) {
			break
		}
		literal = append(literal, seg)
	}
	m.prefixes = append(m.prefixes, literal)
}

func (m *sensitiveMatcher) Matches(path string) bool {
	if m == nil || len(m.patterns) == 0 {
		return false
	}
	target := dottedToSlash(path)
	for i, p := range m.patterns {
		if ok, err := doublestar.Match(p, target); err == nil && ok {
			return true
		}
		if coversPrefix(strings.Split(target, "/"), m.prefixes[i]) {
			return true
		}
	}
	return false
}

// coversPrefix reports whether target is an ancestor of (or equal to) the
// literal part of a pattern, meaning its value embeds protected data.
func coversPrefix(target, literal []string) bool {
	if len(literal) == 0 || len(target) > len(literal) {
		return false
	}
	for i, seg := range target {
		if seg != literal[i] {
			return false
		}
	}
	return true
}

func dottedToSlash(path string) string {
	return strings.ReplaceAll(strings.Trim(strings.TrimSpace(path), "."), ".", "/")
}

// logSensitiveAccess records an audit entry before a sensitive value is substituted.
func (b *Builder) logSensitiveAccess(ctx context.Context, path string, rc *conversation.ResponseContext) {
	if !b.sensitive.Matches(path) {
		return
	}
	logger.FromContext(ctx).Info(
		"Accessing sensitive data",
		"path", path,
		"bot_id", rc.BotID(),
		"user_id", rc.UserID(),
	)
}
