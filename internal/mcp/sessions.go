package mcp

import (
	"context"

	"github.com/meltforce/liftcoach/internal/session"
)

// ManagerSessions serves get_session from a live session manager.
type ManagerSessions struct {
	Manager *session.Manager
}

var _ SessionSource = ManagerSessions{}

func (s ManagerSessions) CurrentSession(ctx context.Context, userID int) (any, error) {
	m, err := s.Manager.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.State(), nil
}
