package auth

import (
	"strings"

	"github.com/erazemk/dukandaar/internal/model"
)

// ResolveRole returns the effective role for a user. An email on the admin
// allow-list is always admin; otherwise the stored role applies. The
// allow-list can promote but never demote.
func ResolveRole(adminEmails []string, email, stored string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range adminEmails {
		if email != "" && strings.EqualFold(e, email) {
			return model.RoleAdmin
		}
	}
	if model.ValidRole(stored) {
		return stored
	}
	return model.RoleUser
}
