package points

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/dukandaar/internal/store"
)

// ErrInvalidDelta is returned when an award is not a positive integer.
var ErrInvalidDelta = errors.New("points delta must be positive")

// Award is the outcome of a single increment.
type Award struct {
	UserID   int64 `json:"user_id"`
	Delta    int   `json:"delta"`
	Previous int   `json:"previous"`
	Total    int   `json:"total"`
	Crossed  []int `json:"crossed_milestones"`
	Rank     Rank  `json:"rank"`
	RankUp   bool  `json:"rank_up"`
}

// Ledger stores per-user point totals in the users table.
type Ledger struct {
	DB *sql.DB
}

// CurrentTotal returns the user's total, or 0 if none exists yet.
func (l *Ledger) CurrentTotal(ctx context.Context, userID int64) (int, error) {
	return store.GetPoints(ctx, l.DB, userID)
}

// AddPoints increases the user's total by delta and reports every milestone
// crossed by this increment, in ascending order.
func (l *Ledger) AddPoints(ctx context.Context, userID int64, delta int) (*Award, error) {
	if delta <= 0 {
		return nil, ErrInvalidDelta
	}

	prev, total, err := store.AddPoints(ctx, l.DB, userID, delta)
	if err != nil {
		return nil, fmt.Errorf("awarding %d points to user %d: %w", delta, userID, err)
	}

	rank := RankFor(total)
	return &Award{
		UserID:   userID,
		Delta:    delta,
		Previous: prev,
		Total:    total,
		Crossed:  Crossed(prev, total),
		Rank:     rank,
		RankUp:   rank.Threshold > RankFor(prev).Threshold,
	}, nil
}

// Rank returns the user's current rank.
func (l *Ledger) Rank(ctx context.Context, userID int64) (Rank, error) {
	total, err := l.CurrentTotal(ctx, userID)
	if err != nil {
		return Rank{}, err
	}
	return RankFor(total), nil
}

// Progress returns the user's progress toward the next milestone.
func (l *Ledger) Progress(ctx context.Context, userID int64) (Progress, error) {
	total, err := l.CurrentTotal(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return ProgressFor(total), nil
}

// Standing is a user's full reputation summary.
type Standing struct {
	Total    int      `json:"points"`
	Rank     Rank     `json:"rank"`
	Progress Progress `json:"progress"`
}

// Standing returns total, rank and progress in one read.
func (l *Ledger) Standing(ctx context.Context, userID int64) (Standing, error) {
	total, err := l.CurrentTotal(ctx, userID)
	if err != nil {
		return Standing{}, err
	}
	return Standing{Total: total, Rank: RankFor(total), Progress: ProgressFor(total)}, nil
}
