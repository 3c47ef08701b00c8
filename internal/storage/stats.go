package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/liftcoach/internal/models"
)

// UpdateStats adds one finished session to the user's lifetime aggregates.
func (db *DB) UpdateStats(ctx context.Context, userID int, d models.StatsDelta) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO user_stats (user_id, total_sessions, total_sets, total_volume, total_seconds, last_session_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
			total_sessions  = user_stats.total_sessions + EXCLUDED.total_sessions,
			total_sets      = user_stats.total_sets + EXCLUDED.total_sets,
			total_volume    = user_stats.total_volume + EXCLUDED.total_volume,
			total_seconds   = user_stats.total_seconds + EXCLUDED.total_seconds,
			last_session_at = GREATEST(user_stats.last_session_at, EXCLUDED.last_session_at)`,
		userID, d.Sessions, d.Sets, d.Volume, d.Seconds, d.FinishedAt)
	if err != nil {
		return fmt.Errorf("updating stats: %w", err)
	}
	return nil
}

// GetStats returns the user's aggregates; a user with no sessions gets zeros.
func (db *DB) GetStats(ctx context.Context, userID int) (*models.UserStats, error) {
	stats := &models.UserStats{UserID: userID}
	err := db.Pool.QueryRow(ctx,
		`SELECT total_sessions, total_sets, total_volume, total_seconds, last_session_at
		 FROM user_stats WHERE user_id = $1`, userID,
	).Scan(&stats.TotalSessions, &stats.TotalSets, &stats.TotalVolume, &stats.TotalSeconds, &stats.LastSessionAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return stats, nil
}
