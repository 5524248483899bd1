package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/swarmworks/responder/engine/conversation"
	"github.com/swarmworks/responder/engine/core"
	"github.com/swarmworks/responder/engine/swarm"
	"github.com/swarmworks/responder/pkg/logger"
)

const (
	noSwarmState = "No swarm state available."
	noTools      = "No tools available."
)

// renderSwarmState summarizes the swarm. Stored state wins over the copy
// carried by the context. Every section is capped at maxPreview runes.
func (b *Builder) renderSwarmState(ctx context.Context, res *resolver) string {
	rc := res.rc
	state := rc.SwarmState
	if res.states != nil && rc.SwarmID != "" {
		stored, err := res.states.GetState(ctx, rc.SwarmID)
		switch {
		case err == nil:
			state = stored
		case errors.Is(err, swarm.ErrNotFound):
		default:
			logger.FromContext(ctx).Warn(
				"Failed to load swarm state, using context copy",
				"swarm_id", rc.SwarmID,
				"error", core.RedactError(err),
			)
		}
	}
	if state == nil {
		return noSwarmState
	}
	active, completed := state.SplitSubtasks()
	sections := []string{
		b.renderHeader(state),
		fmt.Sprintf("Subtasks: %d active, %d completed", len(active), len(completed)),
	}
	if len(active) > 0 {
		sections = append(sections, b.renderSubtasks("Active subtasks:", active))
	}
	if len(completed) > 0 {
		sections = append(sections, b.renderSubtasks("Completed subtasks:", completed))
	}
	if len(state.Blackboard) > 0 {
		sections = append(sections, b.renderBlackboard(state.Blackboard))
	}
	sections = append(sections, renderStats(state.Stats))
	for i, s := range sections {
		sections[i] = truncate(s, b.maxPreview)
	}
	return strings.Join(sections, "\n\n")
}

func (b *Builder) renderHeader(state *swarm.State) string {
	var sb strings.Builder
	name := state.Name
	if name == "" {
		name = "unnamed"
	}
	fmt.Fprintf(&sb, "Swarm: %s (%s)\n", name, state.ID)
	leader := state.LeaderID
	if leader == "" {
		leader = "none"
	}
	fmt.Fprintf(&sb, "Leader: %s\n", leader)
	fmt.Fprintf(&sb, "Agents: %d", len(state.AgentPool))
	return sb.String()
}

func (b *Builder) renderSubtasks(title string, tasks []swarm.Subtask) string {
	var sb strings.Builder
	sb.WriteString(title)
	for _, t := range tasks {
		fmt.Fprintf(&sb, "\n- [%s] %s", t.Status, t.ID)
		if t.AssigneeID != "" {
			fmt.Fprintf(&sb, " (assignee %s)", t.AssigneeID)
		}
		fmt.Fprintf(&sb, ": %s", truncate(t.Description, b.maxPreview))
	}
	return sb.String()
}

func (b *Builder) renderBlackboard(items []swarm.BlackboardItem) string {
	var sb strings.Builder
	sb.WriteString("Blackboard:")
	for _, item := range items {
		fmt.Fprintf(&sb, "\n- %s: %s", item.ID, truncate(stringify(item.Value), b.maxPreview))
	}
	return sb.String()
}

func renderStats(stats swarm.Stats) string {
	credits := stats.TotalCredits
	if credits == "" {
		credits = "0"
	}
	return fmt.Sprintf("Stats: %d tool calls, %s credits used", stats.TotalToolCalls, credits)
}

func renderToolSchemas(tools []conversation.Tool) string {
	if len(tools) == 0 {
		return noTools
	}
	raw, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		names := make([]string, 0, len(tools))
		for _, t := range tools {
			names = append(names, t.Name)
		}
		return strings.Join(names, ", ")
	}
	return string(raw)
}

type stateResult struct {
	state *swarm.State
	err   error
}

// buildStates memoizes GetState for the lifetime of a single build.
type buildStates struct {
	store  swarm.Store
	loaded map[string]stateResult
}

func newBuildStates(store swarm.Store) *buildStates {
	return &buildStates{store: store, loaded: make(map[string]stateResult)}
}

func (s *buildStates) GetState(ctx context.Context, swarmID string) (*swarm.State, error) {
	if r, ok := s.loaded[swarmID]; ok {
		return r.state, r.err
	}
	state, err := s.store.GetState(ctx, swarmID)
	s.loaded[swarmID] = stateResult{state: state, err: err}
	return state, err
}

func (s *buildStates) SaveState(ctx context.Context, state *swarm.State) error {
	if state != nil {
		delete(s.loaded, state.ID)
	}
	return s.store.SaveState(ctx, state)
}

// truncate caps s at limit runes and marks the cut with "...".
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
