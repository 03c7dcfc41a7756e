package points

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/erazemk/dukandaar/internal/db"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/store"
)

func newTestLedger(t *testing.T) (*Ledger, int64) {
	t.Helper()
	database := db.NewTestDB(t)
	user, err := store.CreateUser(context.Background(), database, "l@example.com", "L", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return &Ledger{DB: database}, user.ID
}

func TestCurrentTotalUnknownUser(t *testing.T) {
	ledger, _ := newTestLedger(t)

	total, err := ledger.CurrentTotal(context.Background(), 12345)
	if err != nil {
		t.Fatalf("CurrentTotal: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0, got %d", total)
	}
}

func TestAddPointsRejectsNonPositive(t *testing.T) {
	ledger, uid := newTestLedger(t)

	for _, d := range []int{0, -10} {
		if _, err := ledger.AddPoints(context.Background(), uid, d); !errors.Is(err, ErrInvalidDelta) {
			t.Errorf("AddPoints(%d): expected ErrInvalidDelta, got %v", d, err)
		}
	}
}

// 40 points plus 20 crosses 50 and moves from Helper to Soldier.
func TestAddPointsCrossesFirstMilestone(t *testing.T) {
	ledger, uid := newTestLedger(t)
	ctx := context.Background()

	if _, err := ledger.AddPoints(ctx, uid, 40); err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	before, _ := ledger.Rank(ctx, uid)
	if before.Title != "Helper" {
		t.Fatalf("expected Helper at 40, got %q", before.Title)
	}

	award, err := ledger.AddPoints(ctx, uid, 20)
	if err != nil {
		t.Fatalf("AddPoints: %v", err)
	}
	if award.Previous != 40 || award.Total != 60 {
		t.Errorf("expected 40 -> 60, got %d -> %d", award.Previous, award.Total)
	}
	if !reflect.DeepEqual(award.Crossed, []int{50}) {
		t.Errorf("expected crossed [50], got %v", award.Crossed)
	}
	if award.Rank.Title != "Soldier" || !award.RankUp {
		t.Errorf("expected rank up to Soldier, got %+v", award.Rank)
	}
}

// Five submissions of 50 end at 250 and report 50 and 200 exactly once each.
func TestFiveSubmissionsReachCommander(t *testing.T) {
	ledger, uid := newTestLedger(t)
	ctx := context.Background()

	var crossed [][]int
	for i := 0; i < 5; i++ {
		award, err := ledger.AddPoints(ctx, uid, SubmissionAward)
		if err != nil {
			t.Fatalf("AddPoints #%d: %v", i+1, err)
		}
		crossed = append(crossed, award.Crossed)
	}

	want := [][]int{{50}, nil, nil, {200}, nil}
	if !reflect.DeepEqual(crossed, want) {
		t.Errorf("crossed per step = %v, want %v", crossed, want)
	}

	total, _ := ledger.CurrentTotal(ctx, uid)
	if total != 250 {
		t.Errorf("expected 250, got %d", total)
	}
	rank, _ := ledger.Rank(ctx, uid)
	if rank.Title != "Commander" {
		t.Errorf("expected Commander, got %q", rank.Title)
	}

	progress, _ := ledger.Progress(ctx, uid)
	if progress.NextMilestone != 500 {
		t.Errorf("expected next milestone 500, got %d", progress.NextMilestone)
	}
}
