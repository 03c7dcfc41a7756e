package model

import (
	"errors"
	"time"
)

// User is a registered account. Points is the user's ledger total.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Points       int       `json:"points"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// MinPasswordLength is the shortest password accepted on sign-up or change.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned by ValidatePassword.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	return levels[role] >= levels[minimum] && levels[minimum] > 0
}

// ValidRole reports whether role is one of the stored roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// ValidatePassword checks the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// Identity is the acting caller as seen by the listing service.
//
// Identity is established in two phases: the token yields UserID, Email and
// Name; the role is resolved afterwards from the stored profile and the admin
// allow-list. Until RoleResolved is set the caller is treated as a plain user.
type Identity struct {
	UserID       int64
	Email        string
	Name         string
	Role         string
	RoleResolved bool
}

// IsAdmin reports whether the identity has a resolved admin role.
func (id Identity) IsAdmin() bool {
	return id.RoleResolved && RoleAtLeast(id.Role, RoleAdmin)
}

// Authenticated reports whether the identity refers to a signed-in user.
func (id Identity) Authenticated() bool {
	return id.UserID > 0
}
