package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// GetOrCreateUser maps a tailnet login to the user id that owns records and
// sessions. Each sighting bumps last_seen; a blank display name keeps the
// stored one.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return 0, errors.New("resolving user: empty login")
	}
	var id int
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO users (login, display_name) VALUES ($1, $2)
		 ON CONFLICT (login) DO UPDATE SET
			last_seen    = NOW(),
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name)
		 RETURNING id`,
		login, strings.TrimSpace(displayName)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving user %s: %w", login, err)
	}
	return id, nil
}
