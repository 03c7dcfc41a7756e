package model

import "time"

// Notification is a queued message for a user, shown once and then dismissed.
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	Data      string     `json:"data,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	SeenAt    *time.Time `json:"seen_at,omitempty"`
}

// Notification kinds.
const (
	NotificationMilestone       = "milestone"
	NotificationListingApproved = "listing_approved"
	NotificationListingRejected = "listing_rejected"
)

// Preferences is per-user client state kept outside the relational store.
type Preferences struct {
	Favorites      []string `json:"favorites"`
	SeenOnboarding bool     `json:"seen_onboarding"`
	Language       string   `json:"language"`
}

// Languages.
const (
	LanguageEnglish = "en"
	LanguageMarathi = "mr"
)
