package swarm

import "time"

// Subtask statuses counted as still in flight.
const (
	SubtaskTodo       = "todo"
	SubtaskInProgress = "in_progress"
	SubtaskBlocked    = "blocked"
	SubtaskDone       = "done"
	SubtaskFailed     = "failed"
)

// State is the shared multi-agent context a bot participates in.
type State struct {
	ID          string           `json:"id"                    yaml:"id"`
	Name        string           `json:"name,omitempty"        yaml:"name,omitempty"`
	Goal        string           `json:"goal,omitempty"        yaml:"goal,omitempty"`
	LeaderID    string           `json:"leaderId,omitempty"    yaml:"leaderId,omitempty"`
	Config      map[string]any   `json:"config,omitempty"      yaml:"config,omitempty"`
	AgentPool   []Agent          `json:"agentPool,omitempty"   yaml:"agentPool,omitempty"`
	Subtasks    []Subtask        `json:"subtasks,omitempty"    yaml:"subtasks,omitempty"`
	Blackboard  []BlackboardItem `json:"blackboard,omitempty"  yaml:"blackboard,omitempty"`
	Stats       Stats            `json:"stats"                 yaml:"stats"`
	Environment map[string]any   `json:"environment,omitempty" yaml:"environment,omitempty"`
}

type Agent struct {
	ID   string `json:"id"             yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Role string `json:"role,omitempty" yaml:"role,omitempty"`
}

type Subtask struct {
	ID          string `json:"id"                   yaml:"id"`
	Description string `json:"description"          yaml:"description"`
	Status      string `json:"status"               yaml:"status"`
	AssigneeID  string `json:"assigneeId,omitempty" yaml:"assigneeId,omitempty"`
}

type BlackboardItem struct {
	ID    string `json:"id"    yaml:"id"`
	Value any    `json:"value" yaml:"value"`
}

type Stats struct {
	TotalToolCalls int       `json:"totalToolCalls"                      yaml:"totalToolCalls"`
	TotalCredits   string    `json:"totalCredits"                        yaml:"totalCredits"`
	StartedAt      time.Time `json:"startedAt,omitzero"                  yaml:"startedAt,omitempty"`
	LastProcessing time.Time `json:"lastProcessingCycleEndedAt,omitzero" yaml:"lastProcessingCycleEndedAt,omitempty"`
}

// IsCompleted reports whether the subtask reached a terminal status.
func (s Subtask) IsCompleted() bool {
	return s.Status == SubtaskDone || s.Status == SubtaskFailed
}

// SplitSubtasks separates active and completed subtasks, preserving order.
func (s *State) SplitSubtasks() (active, completed []Subtask) {
	if s == nil {
		return nil, nil
	}
	for _, task := range s.Subtasks {
		if task.IsCompleted() {
			completed = append(completed, task)
			continue
		}
		active = append(active, task)
	}
	return active, completed
}
