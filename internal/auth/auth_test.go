package auth

import (
	"testing"
	"time"

	"github.com/erazemk/dukandaar/internal/model"
)

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("expected mismatch")
	}
}

func TestResetToken(t *testing.T) {
	token, hash, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(token))
	}
	if hash == token || HashResetToken(token) != hash {
		t.Error("expected stored hash to differ from token and be reproducible")
	}
}

func TestResolveRole(t *testing.T) {
	admins := []string{"boss@example.com"}

	tests := []struct {
		name   string
		email  string
		stored string
		want   string
	}{
		{"allow-list promotes", "Boss@Example.com", model.RoleUser, model.RoleAdmin},
		{"stored admin kept", "other@example.com", model.RoleAdmin, model.RoleAdmin},
		{"plain user", "other@example.com", model.RoleUser, model.RoleUser},
		{"unknown role", "other@example.com", "superuser", model.RoleUser},
		{"empty email", "", "", model.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(admins, tt.email, tt.stored); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLockout(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(5, time.Minute)
	l.Now = func() time.Time { return now }

	for i := 4; i >= 1; i-- {
		remaining, lockedFor := l.Fail("a@example.com")
		if remaining != i || lockedFor != 0 {
			t.Fatalf("expected %d remaining, got %d (locked %v)", i, remaining, lockedFor)
		}
	}

	if locked, _ := l.Locked("a@example.com"); locked {
		t.Fatal("locked before the limit")
	}

	if _, lockedFor := l.Fail("A@example.com"); lockedFor != time.Minute {
		t.Fatalf("expected lockout on fifth failure, got %v", lockedFor)
	}

	now = now.Add(20 * time.Second)
	locked, remaining := l.Locked("a@example.com")
	if !locked || remaining != 40*time.Second {
		t.Fatalf("expected 40s lockout, got %v %v", locked, remaining)
	}

	if locked, _ := l.Locked("b@example.com"); locked {
		t.Error("lockout leaked to another email")
	}

	now = now.Add(41 * time.Second)
	if locked, _ := l.Locked("a@example.com"); locked {
		t.Error("expected lockout to expire")
	}
	if remaining, _ := l.Fail("a@example.com"); remaining != 4 {
		t.Errorf("expected counter reset after expiry, got %d remaining", remaining)
	}

	l.Reset("a@example.com")
	if remaining, _ := l.Fail("a@example.com"); remaining != 4 {
		t.Errorf("expected counter reset, got %d remaining", remaining)
	}
}
