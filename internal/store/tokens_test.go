package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/dukandaar/internal/db"
)

func TestSignedOutSessionIsRevoked(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		jti  string
		want bool
	}{
		{"signed out", "session-a", true},
		{"still signed in", "session-b", false},
	}

	if err := RevokeSession(ctx, database, "session-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	// Signing out twice is harmless.
	if err := RevokeSession(ctx, database, "session-a", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("second RevokeSession: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SessionRevoked(ctx, database, tt.jti)
			if err != nil {
				t.Fatalf("SessionRevoked: %v", err)
			}
			if got != tt.want {
				t.Errorf("SessionRevoked(%q) = %v, want %v", tt.jti, got, tt.want)
			}
		})
	}
}

func TestPruneRevokedSessions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if err := RevokeSession(ctx, database, "expiring", now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := RevokeSession(ctx, database, "long-lived", now.Add(24*time.Hour)); err != nil {
		t.Fatal(err)
	}

	n, err := PruneRevokedSessions(ctx, database, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneRevokedSessions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned session, got %d", n)
	}

	if revoked, _ := SessionRevoked(ctx, database, "expiring"); revoked {
		t.Error("expected expired sign-out to be pruned")
	}
	if revoked, _ := SessionRevoked(ctx, database, "long-lived"); !revoked {
		t.Error("expected live sign-out to be kept")
	}
}
