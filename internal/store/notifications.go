package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/dukandaar/internal/model"
)

// CreateNotification queues a notification for a user.
func CreateNotification(ctx context.Context, db *sql.DB, userID int64, kind, message, data string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, kind, message, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, kind, message, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListUnseenNotifications returns a user's undismissed notifications in the
// order they were queued.
func ListUnseenNotifications(ctx context.Context, db *sql.DB, userID int64) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, kind, message, data, created_at, seen_at
		 FROM notifications WHERE user_id = ? AND seen_at IS NULL
		 ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notes []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.Data, &n.CreatedAt, &n.SeenAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkNotificationSeen dismisses one of the user's notifications.
// It reports false if no such unseen notification exists.
func MarkNotificationSeen(ctx context.Context, db *sql.DB, userID, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET seen_at = ? WHERE id = ? AND user_id = ? AND seen_at IS NULL`,
		time.Now().UTC(), id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification seen: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking notification update: %w", err)
	}
	return n > 0, nil
}
