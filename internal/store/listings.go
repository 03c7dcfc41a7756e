package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/erazemk/dukandaar/internal/model"
)

// ListingContent holds the editable fields of a listing.
type ListingContent struct {
	Name         string
	OwnerName    string
	Category     string
	Description  string
	Phone        string
	OpeningHours string
}

const listingColumns = `l.id, l.name, l.owner_name, l.category, l.description, l.phone, l.opening_hours,
	l.latitude, l.longitude, l.images, l.submitter_id, l.submitter_name, l.submitter_email,
	l.status, l.approved_at, l.rejected_at, l.verified_by, l.verified_at, l.version,
	l.created_at, l.updated_at,
	COALESCE((SELECT AVG(rating) FROM reviews r WHERE r.listing_id = l.id), 0),
	(SELECT COUNT(*) FROM reviews r WHERE r.listing_id = l.id)`

func scanListing(row interface{ Scan(...any) error }, l *model.Listing) error {
	var images string
	var status sql.NullString
	err := row.Scan(&l.ID, &l.Name, &l.OwnerName, &l.Category, &l.Description, &l.Phone, &l.OpeningHours,
		&l.Latitude, &l.Longitude, &images, &l.SubmitterID, &l.SubmitterName, &l.SubmitterEmail,
		&status, &l.ApprovedAt, &l.RejectedAt, &l.VerifiedBy, &l.VerifiedAt, &l.Version,
		&l.CreatedAt, &l.UpdatedAt, &l.AverageRating, &l.ReviewCount)
	if err != nil {
		return err
	}
	l.Status = status.String
	l.Images = []string{}
	if images != "" {
		if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
			return fmt.Errorf("decoding images: %w", err)
		}
	}
	return nil
}

// CreateListing inserts a new pending listing and returns the stored record
// with its generated ID.
func CreateListing(ctx context.Context, db *sql.DB, l *model.Listing) (*model.Listing, error) {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("encoding images: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx,
		`INSERT INTO listings (id, name, owner_name, category, description, phone, opening_hours,
		                       latitude, longitude, images, submitter_id, submitter_name, submitter_email,
		                       status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, l.Name, l.OwnerName, l.Category, l.Description, l.Phone, l.OpeningHours,
		l.Latitude, l.Longitude, string(encoded), l.SubmitterID, l.SubmitterName, l.SubmitterEmail,
		model.StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating listing: %w", err)
	}

	return GetListing(ctx, db, id)
}

// GetListing returns a listing by ID.
func GetListing(ctx context.Context, db *sql.DB, id string) (*model.Listing, error) {
	l := &model.Listing{}
	err := scanListing(db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings l WHERE l.id = ?`, id,
	), l)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	return l, nil
}

// ListListings returns every listing, newest first.
func ListListings(ctx context.Context, db *sql.DB) ([]model.Listing, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+listingColumns+` FROM listings l ORDER BY l.created_at DESC, l.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		var l model.Listing
		if err := scanListing(rows, &l); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// TransitionListing moves a pending listing to status, stamping the matching
// timestamp. It reports false when the listing is missing or not pending.
func TransitionListing(ctx context.Context, db *sql.DB, id, status string, at time.Time) (bool, error) {
	var column string
	switch status {
	case model.StatusApproved:
		column = "approved_at"
	case model.StatusRejected:
		column = "rejected_at"
	default:
		return false, fmt.Errorf("invalid target status %q", status)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE listings SET status = ?, `+column+` = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND COALESCE(NULLIF(status, ''), 'pending') = 'pending'`,
		status, at, at, id,
	)
	if err != nil {
		return false, fmt.Errorf("transitioning listing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking transition: %w", err)
	}
	return n > 0, nil
}

// UpdateListingContent replaces the editable fields of a listing. When
// version is non-zero the update only applies if it matches the stored
// version. It reports false when no row was updated.
func UpdateListingContent(ctx context.Context, db *sql.DB, id string, c ListingContent, version int) (bool, error) {
	query := `UPDATE listings SET name = ?, owner_name = ?, category = ?, description = ?, phone = ?,
	                 opening_hours = ?, version = version + 1, updated_at = ?
	          WHERE id = ?`
	args := []any{c.Name, c.OwnerName, c.Category, c.Description, c.Phone, c.OpeningHours, time.Now().UTC(), id}
	if version != 0 {
		query += ` AND version = ?`
		args = append(args, version)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("updating listing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking update: %w", err)
	}
	return n > 0, nil
}

// VerifyListing stamps a listing as verified by an admin. It reports false
// when the listing is missing or already verified.
func VerifyListing(ctx context.Context, db *sql.DB, id string, adminID int64, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE listings SET verified_by = ?, verified_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND verified_at IS NULL`,
		adminID, at, at, id,
	)
	if err != nil {
		return false, fmt.Errorf("verifying listing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking verification: %w", err)
	}
	return n > 0, nil
}

// DeleteListing permanently removes a listing and its reviews.
// It reports false when the listing did not exist.
func DeleteListing(ctx context.Context, db *sql.DB, id string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE listing_id = ?`, id); err != nil {
		return false, fmt.Errorf("deleting reviews: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting listing: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking delete: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing delete: %w", err)
	}
	return n > 0, nil
}
