package store

import (
	"context"
	"testing"

	"github.com/erazemk/dukandaar/internal/db"
	"github.com/erazemk/dukandaar/internal/model"
)

func TestNotificationsQueue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "n@example.com", "N", "hash", model.RoleUser)
	other, _ := CreateUser(ctx, database, "o@example.com", "O", "hash", model.RoleUser)

	CreateNotification(ctx, database, user.ID, model.NotificationMilestone, "50 points", "50")
	CreateNotification(ctx, database, user.ID, model.NotificationListingApproved, "approved", "")

	notes, err := ListUnseenNotifications(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("ListUnseenNotifications: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notes))
	}
	if notes[0].Kind != model.NotificationMilestone {
		t.Errorf("expected milestone first, got %q", notes[0].Kind)
	}

	// Another user cannot dismiss it.
	ok, _ := MarkNotificationSeen(ctx, database, other.ID, notes[0].ID)
	if ok {
		t.Error("expected other user's dismissal to be refused")
	}

	ok, err = MarkNotificationSeen(ctx, database, user.ID, notes[0].ID)
	if err != nil || !ok {
		t.Fatalf("MarkNotificationSeen: ok=%v err=%v", ok, err)
	}

	notes, _ = ListUnseenNotifications(ctx, database, user.ID)
	if len(notes) != 1 {
		t.Errorf("expected 1 unseen notification, got %d", len(notes))
	}
}
