// Package authz decides which role may perform which action, using a Casbin
// RBAC model with an embedded policy.
package authz

import (
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects.
const (
	ObjListing     = "listing"
	ObjReview      = "review"
	ObjPreferences = "preferences"
	ObjUser        = "user"
)

// Actions.
const (
	ActSubmit    = "submit"
	ActEditOwn   = "edit_own"
	ActEditAny   = "edit_any"
	ActRemoveOwn = "remove_own"
	ActRemoveAny = "remove_any"
	ActModerate  = "moderate"
	ActVerify    = "verify"
	ActViewAll   = "view_all"
	ActCreate    = "create"
	ActWrite     = "write"
	ActManage    = "manage"
)

// Enforcer wraps a synced Casbin enforcer.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds an enforcer from the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("loading casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("creating casbin enforcer: %w", err)
	}

	if err := loadPolicy(e, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Enforcer{enforcer: e}, nil
}

func loadPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("adding policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("adding grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Allowed reports whether role may perform act on obj. Errors deny.
func (e *Enforcer) Allowed(role, obj, act string) bool {
	if role == "" {
		return false
	}
	ok, err := e.enforcer.Enforce(role, obj, act)
	if err != nil {
		slog.Error("authorization check failed", "role", role, "object", obj, "action", act, "error", err)
		return false
	}
	return ok
}
