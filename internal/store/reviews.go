package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/dukandaar/internal/model"
)

// CreateReview stores a review for a listing.
func CreateReview(ctx context.Context, db *sql.DB, listingID string, userID int64, rating int, comment string) (*model.Review, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO reviews (listing_id, user_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		listingID, userID, rating, comment, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting review id: %w", err)
	}

	r := &model.Review{}
	err = db.QueryRowContext(ctx,
		`SELECT r.id, r.listing_id, r.user_id, u.display_name, r.rating, r.comment, r.created_at
		 FROM reviews r JOIN users u ON u.id = r.user_id WHERE r.id = ?`, id,
	).Scan(&r.ID, &r.ListingID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting review: %w", err)
	}
	return r, nil
}

// ListReviews returns the reviews of a listing, newest first.
func ListReviews(ctx context.Context, db *sql.DB, listingID string) ([]model.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.listing_id, r.user_id, u.display_name, r.rating, r.comment, r.created_at
		 FROM reviews r JOIN users u ON u.id = r.user_id
		 WHERE r.listing_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`, listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.ListingID, &r.UserID, &r.UserName, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
