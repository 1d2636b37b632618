package strategy

import (
	"context"
	"fmt"

	"github.com/harrison/agentcore/internal/agentcore"
)

// ServerAdmin is the slice of the Remote Tool Manager that
// REMOTE_SERVER_ADMIN needs: ping, connect, and disconnect a specific
// server by id.
type ServerAdmin interface {
	Ping(ctx context.Context, serverID string) error
	Reconnect(ctx context.Context, serverID string) error
	Disconnect(serverID string) error
}

// RemoteAdminStrategy implements REMOTE_SERVER_ADMIN.
type RemoteAdminStrategy struct {
	Admin    ServerAdmin
	Narrator Narrator
}

// NewRemoteAdminStrategy constructs a RemoteAdminStrategy.
func NewRemoteAdminStrategy(admin ServerAdmin, narrator Narrator) *RemoteAdminStrategy {
	return &RemoteAdminStrategy{Admin: admin, Narrator: narrator}
}

// Execute implements Strategy.
func (s *RemoteAdminStrategy) Execute(ctx context.Context, task *agentcore.Task) (agentcore.TaskResult, error) {
	return timed(func() (agentcore.TaskResult, error) {
		serverID, err := requireParam(task, "server_id")
		if err != nil {
			return agentcore.TaskResult{}, err
		}
		action, err := requireParam(task, "action")
		if err != nil {
			return agentcore.TaskResult{}, err
		}

		if s.Narrator != nil {
			s.Narrator.Narrate(fmt.Sprintf("agent performing remote server admin action %q on %s", action, serverID))
		}

		switch action {
		case "ping":
			if err := s.Admin.Ping(ctx, serverID); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
			return agentcore.TaskResult{Success: true, Output: fmt.Sprintf("server %s responded to ping", serverID)}, nil
		case "connect":
			if err := s.Admin.Reconnect(ctx, serverID); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
			return agentcore.TaskResult{Success: true, Output: fmt.Sprintf("server %s connected", serverID)}, nil
		case "disconnect":
			if err := s.Admin.Disconnect(serverID); err != nil {
				return agentcore.TaskResult{Success: false, Error: err.Error()}, nil
			}
			return agentcore.TaskResult{Success: true, Output: fmt.Sprintf("server %s disconnected", serverID)}, nil
		default:
			return agentcore.TaskResult{}, agentcore.NewValidationError("action", fmt.Sprintf("unknown remote server admin action %q", action))
		}
	})
}
