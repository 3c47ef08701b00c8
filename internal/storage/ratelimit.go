package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/liftcoach/internal/models"
)

// AIRateLimiter caps plan generations per user per UTC day.
type AIRateLimiter struct {
	DB    *DB
	Limit int
	Now   func() time.Time
}

// CheckAndIncrement counts one generation if the user is under the limit.
// Denied calls do not consume quota.
func (l *AIRateLimiter) CheckAndIncrement(ctx context.Context, userID int) (models.RateLimitStatus, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	start := windowStart(now())
	if l.Limit <= 0 {
		return rateStatus(false, 0, 0, start), nil
	}

	var count int
	err := l.DB.Pool.QueryRow(ctx,
		`INSERT INTO ai_rate_limits (user_id, window_start, count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, window_start) DO UPDATE
			SET count = ai_rate_limits.count + 1
			WHERE ai_rate_limits.count < $3
		 RETURNING count`,
		userID, start, l.Limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return rateStatus(false, l.Limit, l.Limit, start), nil
	}
	if err != nil {
		return models.RateLimitStatus{}, fmt.Errorf("checking rate limit: %w", err)
	}
	return rateStatus(count <= l.Limit, count, l.Limit, start), nil
}

func windowStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rateStatus(allowed bool, used, limit int, start time.Time) models.RateLimitStatus {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return models.RateLimitStatus{
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   start.Add(24 * time.Hour),
	}
}
