package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when a points operation targets a missing user.
var ErrUserNotFound = errors.New("user not found")

// GetPoints returns a user's point total, or 0 if the user has no ledger row.
func GetPoints(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var points int
	err := db.QueryRowContext(ctx, `SELECT points FROM users WHERE id = ?`, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting points: %w", err)
	}
	return points, nil
}

// AddPoints atomically increases a user's total by delta and returns the
// totals before and after the increment.
func AddPoints(ctx context.Context, db *sql.DB, userID int64, delta int) (previous, total int, err error) {
	err = db.QueryRowContext(ctx,
		`UPDATE users SET points = points + ? WHERE id = ? RETURNING points`,
		delta, userID,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrUserNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("adding points: %w", err)
	}
	return total - delta, total, nil
}
