package agent

import "strings"

// Leadership roles receive recruitment instructions in their system prompt.
const (
	RoleLeader      = "leader"
	RoleCoordinator = "coordinator"
	RoleDelegator   = "delegator"
)

// BotParticipant is one configured AI persona taking part in a conversation.
type BotParticipant struct {
	ID     string     `json:"id"               yaml:"id"`
	Name   string     `json:"name"             yaml:"name"`
	Role   string     `json:"role,omitempty"   yaml:"role,omitempty"`
	Model  string     `json:"model,omitempty"  yaml:"model,omitempty"`
	Config *BotConfig `json:"config,omitempty" yaml:"config,omitempty" validate:"required"`
}

// IsLeadershipRole reports whether role is one of leader, coordinator or delegator.
func IsLeadershipRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleLeader, RoleCoordinator, RoleDelegator:
		return true
	default:
		return false
	}
}

// IsLeader reports whether the bot holds a leadership role.
func (b *BotParticipant) IsLeader() bool {
	return b != nil && IsLeadershipRole(b.Role)
}
