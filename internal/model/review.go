package model

import "time"

// Review is a user's rating of a listing.
type Review struct {
	ID        int64     `json:"id"`
	ListingID string    `json:"listing_id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5

	MaxCommentLength = 1000
)
