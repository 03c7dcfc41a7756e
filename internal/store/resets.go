package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreatePasswordReset stores the hash of a one-time reset token. Any earlier
// token for the same user is discarded.
func CreatePasswordReset(ctx context.Context, db *sql.DB, tokenHash string, userID int64, expiresAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing password resets: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES (?, ?, ?)`,
		tokenHash, userID, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("creating password reset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing password reset: %w", err)
	}
	return nil
}

// ConsumePasswordReset deletes the reset token and returns its user ID.
// It returns 0 when the token is unknown or expired.
func ConsumePasswordReset(ctx context.Context, db *sql.DB, tokenHash string, now time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	var expiresAt time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM password_resets WHERE token_hash = ?`, tokenHash,
	).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting password reset: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE token_hash = ?`, tokenHash); err != nil {
		return 0, fmt.Errorf("consuming password reset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing password reset: %w", err)
	}

	if now.After(expiresAt) {
		return 0, nil
	}
	return userID, nil
}
