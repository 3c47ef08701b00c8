package mcp

import (
	"context"

	"github.com/meltforce/liftcoach/internal/models"
	"github.com/meltforce/liftcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListExercises(ctx context.Context, f models.ExerciseFilter) ([]models.ExerciseDescriptor, error)
	GetExercise(ctx context.Context, id string) (*models.ExerciseDescriptor, error)
	GetRecord(ctx context.Context, userID int, exerciseID string) (*models.PersonalRecord, error)
	ListRecords(ctx context.Context, userID int) ([]models.PersonalRecord, error)
	RecentSessions(ctx context.Context, userID, limit int) ([]models.HistorySession, error)
	ListSessions(ctx context.Context, userID, limit int) ([]models.SessionRecord, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

// SessionSource exposes the caller's in-progress session. It is optional;
// without one the get_session tool is not offered.
type SessionSource interface {
	CurrentSession(ctx context.Context, userID int) (any, error)
}
