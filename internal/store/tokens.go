package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeSession records that the session token with the given JTI was
// signed out. The entry is kept until the token would have expired.
func RevokeSession(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("revoking session %s: %w", jti, err)
	}

	if _, err := PruneRevokedSessions(ctx, db, time.Now()); err != nil {
		return err
	}
	return nil
}

// PruneRevokedSessions drops sign-outs of sessions that expired before now
// and returns how many were removed.
func PruneRevokedSessions(ctx context.Context, db *sql.DB, now time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning revoked sessions: %w", err)
	}
	return res.RowsAffected()
}

// SessionRevoked reports whether the session token with the given JTI was
// signed out.
func SessionRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking session %s: %w", jti, err)
	}
	return revoked, nil
}
