package prompt

import (
	"fmt"
	"strings"

	"github.com/swarmworks/responder/engine/agent"
)

const recruitmentHeader = "## Recruitment rule:"

func roleInstructions(bot *agent.BotParticipant, recruitmentTool string) string {
	role := strings.TrimSpace(bot.Role)
	if bot.IsLeader() {
		return fmt.Sprintf(`%s
As the %s of this swarm you are responsible for staffing it. When the goal needs a capability nobody in the agent pool has, recruit a new member by calling the `+"`%s`"+` tool and adding the member to the agent pool. Only delegate subtasks to members that appear in the agent pool.`,
			recruitmentHeader, strings.ToLower(role), recruitmentTool)
	}
	if role == "" {
		role = "participant"
	}
	return fmt.Sprintf(`## Role instructions:
Perform tasks according to your role (%s). Work on the subtasks assigned to you and report results on the blackboard.`, role)
}
