package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/dukandaar/internal/db"
	"github.com/erazemk/dukandaar/internal/model"
)

func TestPasswordResetSingleUse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "r@example.com", "R", "hash", model.RoleUser)
	if err := CreatePasswordReset(ctx, database, "h1", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreatePasswordReset: %v", err)
	}

	id, err := ConsumePasswordReset(ctx, database, "h1", time.Now())
	if err != nil {
		t.Fatalf("ConsumePasswordReset: %v", err)
	}
	if id != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, id)
	}

	id, _ = ConsumePasswordReset(ctx, database, "h1", time.Now())
	if id != 0 {
		t.Error("expected reset token to be single use")
	}
}

func TestPasswordResetExpiredAndReplaced(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "r@example.com", "R", "hash", model.RoleUser)
	CreatePasswordReset(ctx, database, "old", user.ID, time.Now().Add(time.Hour))
	CreatePasswordReset(ctx, database, "new", user.ID, time.Now().Add(time.Hour))

	if id, _ := ConsumePasswordReset(ctx, database, "old", time.Now()); id != 0 {
		t.Error("expected replaced token to be invalid")
	}

	if id, _ := ConsumePasswordReset(ctx, database, "new", time.Now().Add(2*time.Hour)); id != 0 {
		t.Error("expected expired token to be invalid")
	}
}
