package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/swarmworks/responder/engine/agent"
	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/core"
	"github.com/swarmworks/responder/engine/swarm"
	"github.com/swarmworks/responder/pkg/logger"
)

// ErrUnknownScope is returned for variable paths outside context, config, swarm and team.
var ErrUnknownScope = errors.New("Unknown variable scope")

const (
	scopeContext = "context"
	scopeConfig  = "config"
	scopeSwarm   = "swarm"
	scopeTeam    = "team"
)

const (
	memberCountLabelSwarm  = "team-based swarm"
	memberCountLabelDirect = "one-on-one conversation"
	displayDateLayout      = "Monday, January 2, 2006"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_-]+)*)\s*\}\}`)

type lookupFunc func(ctx context.Context, key string) (string, bool)

// replacePlaceholders substitutes every placeholder resolve knows about and
// leaves the others untouched.
func replacePlaceholders(ctx context.Context, text string, resolve lookupFunc) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if v, ok := resolve(ctx, groups[1]); ok {
			return v
		}
		return match
	})
}

type scopeLookup func(r *resolver, ctx context.Context, rest []string) (any, bool, error)

var scopeResolvers = map[string]scopeLookup{
	scopeContext: func(r *resolver, _ context.Context, rest []string) (any, bool, error) {
		return core.LookupPath(r.rc, rest)
	},
	scopeConfig: func(r *resolver, _ context.Context, rest []string) (any, bool, error) {
		return core.LookupPath(r.rc.Bot.Config, rest)
	},
	scopeTeam: func(r *resolver, _ context.Context, rest []string) (any, bool, error) {
		return core.LookupPath(r.rc.TeamConfig, rest)
	},
	scopeSwarm: (*resolver).lookupSwarm,
}

type resolver struct {
	builder  *Builder
	rc       *conversation.ResponseContext
	now      time.Time
	vars     map[string]string
	states   *buildStates
	accessor SwarmAccessor
}

func (b *Builder) newResolver(rc *conversation.ResponseContext, now time.Time) *resolver {
	r := &resolver{builder: b, rc: rc, now: now, accessor: b.accessor}
	if b.states != nil {
		r.states = newBuildStates(b.states)
		if r.accessor == nil {
			r.accessor = swarm.NewAccessor(r.states)
		}
	}
	return r
}

// bindAgentVariables resolves every agent variable up front so that a bad
// path fails the build before any substitution happens.
func (r *resolver) bindAgentVariables(ctx context.Context, spec *agent.PromptSpec) error {
	if spec == nil || len(spec.Variables) == 0 {
		return nil
	}
	names := make([]string, 0, len(spec.Variables))
	for name := range spec.Variables {
		names = append(names, name)
	}
	slices.Sort(names)
	r.vars = make(map[string]string, len(names))
	for _, name := range names {
		value, err := r.resolvePath(ctx, spec.Variables[name])
		if err != nil {
			return fmt.Errorf("resolve prompt variable %q: %w", name, err)
		}
		r.vars[name] = value
	}
	return nil
}

func (r *resolver) resolvePath(ctx context.Context, path string) (string, error) {
	segments, err := core.SplitPath(path)
	if err != nil {
		return "", err
	}
	if len(segments) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownScope, path)
	}
	lookup, ok := scopeResolvers[segments[0]]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownScope, segments[0])
	}
	r.builder.logSensitiveAccess(ctx, path, r.rc)
	value, found, err := lookup(r, ctx, segments[1:])
	if err != nil {
		return "", err
	}
	if !found {
		logger.FromContext(ctx).Debug("Prompt variable path not found", "path", path)
		return "", nil
	}
	return stringify(value), nil
}

func (r *resolver) lookupSwarm(ctx context.Context, rest []string) (any, bool, error) {
	if acc := r.accessor; acc != nil {
		value, err := acc.Access(ctx, r.rc.SwarmID, rest)
		if err == nil {
			return value, true, nil
		}
		if errors.Is(err, core.ErrPathTooDeep) {
			return nil, false, err
		}
		logger.FromContext(ctx).Info(
			"Swarm accessor failed, falling back to context state",
			"swarm_id", r.rc.SwarmID,
			"path", strings.Join(rest, "."),
			"error", core.RedactError(err),
		)
	}
	return core.LookupPath(r.rc.SwarmState, rest)
}

// resolveInline answers placeholders found in template text.
func (r *resolver) resolveInline(ctx context.Context, key string) (string, bool) {
	if v, ok := r.vars[key]; ok {
		return v, true
	}
	switch key {
	case "GOAL":
		return r.goal(), true
	case "MEMBER_COUNT_LABEL":
		if strings.TrimSpace(r.rc.SwarmID) != "" {
			return memberCountLabelSwarm, true
		}
		return memberCountLabelDirect, true
	case "DISPLAY_DATE":
		return r.now.Format(displayDateLayout), true
	case "ISO_EPOCH_SECONDS":
		return strconv.FormatInt(r.now.Unix(), 10), true
	}
	head, rest, hasRest := strings.Cut(key, ".")
	if !hasRest {
		return "", false
	}
	switch head {
	case "BOT":
		return fieldValue(r.rc.Bot, rest)
	case "TEAM", "TEAM_CONFIG":
		return fieldValue(r.rc.TeamConfig, rest)
	}
	if _, ok := scopeResolvers[head]; !ok {
		return "", false
	}
	value, err := r.resolvePath(ctx, key)
	if err != nil {
		logger.FromContext(ctx).Debug("Leaving unresolved placeholder", "placeholder", key, "error", err)
		return "", false
	}
	return value, true
}

func (r *resolver) goal() string {
	switch {
	case r.rc.ChatConfig != nil && r.rc.ChatConfig.Goal != "":
		return r.rc.ChatConfig.Goal
	case r.rc.TeamConfig != nil && r.rc.TeamConfig.Goal != "":
		return r.rc.TeamConfig.Goal
	case r.rc.SwarmState != nil:
		return r.rc.SwarmState.Goal
	default:
		return ""
	}
}

// fieldValue looks up a dotted field by JSON name, accepting upper case or
// capitalized spellings of the first segment.
func fieldValue(source any, path string) (string, bool) {
	segments, err := core.SplitPath(path)
	if err != nil || len(segments) == 0 {
		return "", false
	}
	candidates := []string{segments[0], strings.ToLower(segments[0]), lowerFirst(segments[0])}
	for _, first := range candidates {
		segments[0] = first
		value, found, err := core.LookupPath(source, segments)
		if err == nil && found {
			return stringify(value), true
		}
	}
	return "", false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
