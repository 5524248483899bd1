package core

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxRedactedLen = 256

type redactionRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// redactionRules run in order. JWTs and connection strings go first so the
// generic key/value rule does not split them.
var redactionRules = []redactionRule{
	{
		pattern:     regexp.MustCompile(`\b(eyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+)\b`),
		replacement: "[JWT_REDACTED]",
	},
	{
		pattern:     regexp.MustCompile(`(?i)((?:redis|rediss|nats|tls|https?)://)[^@\s]+@\S+`),
		replacement: "$1[REDACTED]",
	},
	{
		pattern:     regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9\-._~+/]+=*`),
		replacement: "$1[REDACTED]",
	},
	{
		pattern: regexp.MustCompile(
			`(?i)(api[_-]?key|access_token|refresh_token|token|secret|password|credential)\s*[:=]\s*["']?[^"'\s]+["']?`,
		),
		replacement: "$1=[REDACTED]",
	},
	{
		pattern:     regexp.MustCompile(`\b((?:sk|key)-[A-Za-z0-9_\-]{16,})\b`),
		replacement: "[REDACTED]",
	},
}

// RedactString scrubs credentials from text headed for logs and caps it at
// maxRedactedLen runes.
func RedactString(s string) string {
	s = strings.TrimSpace(s)
	for _, rule := range redactionRules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	if utf8.RuneCountInString(s) <= maxRedactedLen {
		return s
	}
	return string([]rune(s)[:maxRedactedLen]) + "…"
}

// RedactError is RedactString over err's text. A nil error yields "".
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
