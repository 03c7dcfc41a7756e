package model

import "time"

// Listing is a user-submitted shop entry with a moderation status.
type Listing struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	OwnerName      string     `json:"owner_name"`
	Category       string     `json:"category"`
	Description    string     `json:"description,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	OpeningHours   string     `json:"opening_hours,omitempty"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Images         []string   `json:"images"`
	SubmitterID    int64      `json:"submitted_by_id"`
	SubmitterName  string     `json:"submitted_by_name"`
	SubmitterEmail string     `json:"submitted_by_email,omitempty"`
	Status         string     `json:"status,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`
	VerifiedBy     *int64     `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	Version        int        `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	AverageRating float64 `json:"average_rating,omitempty"`
	ReviewCount   int     `json:"review_count,omitempty"`
}

// Listing statuses. An empty status is read as pending.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// EffectiveStatus returns the moderation status, treating a missing value as pending.
func (l *Listing) EffectiveStatus() string {
	if l.Status == "" {
		return StatusPending
	}
	return l.Status
}

// Categories.
const (
	CategoryFood        = "Food"
	CategoryClothing    = "Clothing"
	CategoryServices    = "Services"
	CategoryGroceries   = "Groceries"
	CategoryElectronics = "Electronics"
	CategoryOther       = "Other"

	// CategoryAll is the filter sentinel that matches every category.
	CategoryAll = "All"
)

// Categories lists the accepted categories in display order.
var Categories = []string{
	CategoryFood,
	CategoryClothing,
	CategoryServices,
	CategoryGroceries,
	CategoryElectronics,
	CategoryOther,
}

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, cat := range Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// Field limits.
const (
	MaxNameLength        = 100
	MaxOwnerNameLength   = 100
	MaxDescriptionLength = 1000
	MaxPhoneLength       = 100
	MaxHoursLength       = 100
	MaxImages            = 5
)
