package listing

import (
	"sort"
	"strings"

	"github.com/erazemk/dukandaar/internal/model"
)

// RecentLimit is the size of the recent view.
const RecentLimit = 10

// Views selectable through Query.View.
const (
	ViewMap      = "map"
	ViewApproved = "approved"
	ViewMine     = "mine"
	ViewPending  = "pending"
	ViewRejected = "rejected"
	ViewAll      = "all"
)

// Views return new slices and never modify their input.

func filter(ls []model.Listing, keep func(l *model.Listing) bool) []model.Listing {
	out := []model.Listing{}
	for i := range ls {
		if keep(&ls[i]) {
			out = append(out, ls[i])
		}
	}
	return out
}

func withStatus(status string) func(l *model.Listing) bool {
	return func(l *model.Listing) bool { return l.EffectiveStatus() == status }
}

// Approved returns the approved listings.
func Approved(ls []model.Listing) []model.Listing {
	return filter(ls, withStatus(model.StatusApproved))
}

// Pending returns the pending listings, including those without a status.
func Pending(ls []model.Listing) []model.Listing {
	return filter(ls, withStatus(model.StatusPending))
}

// Rejected returns the rejected listings.
func Rejected(ls []model.Listing) []model.Listing {
	return filter(ls, withStatus(model.StatusRejected))
}

// MapVisible returns every approved listing plus every listing submitted by
// userID, whatever its status. Anonymous callers pass 0.
func MapVisible(ls []model.Listing, userID int64) []model.Listing {
	return filter(ls, func(l *model.Listing) bool {
		return l.EffectiveStatus() == model.StatusApproved || (userID > 0 && l.SubmitterID == userID)
	})
}

// Mine returns the listings submitted by userID.
func Mine(ls []model.Listing, userID int64) []model.Listing {
	return filter(ls, func(l *model.Listing) bool { return userID > 0 && l.SubmitterID == userID })
}

// FilterCategory keeps listings in category. An empty category or
// CategoryAll keeps everything.
func FilterCategory(ls []model.Listing, category string) []model.Listing {
	if category == "" || category == model.CategoryAll {
		return filter(ls, func(*model.Listing) bool { return true })
	}
	return filter(ls, func(l *model.Listing) bool { return l.Category == category })
}

// Search keeps listings whose name, category or owner name contains q,
// ignoring case. An empty query keeps everything.
func Search(ls []model.Listing, q string) []model.Listing {
	q = strings.ToLower(strings.TrimSpace(q))
	return filter(ls, func(l *model.Listing) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(l.Name), q) ||
			strings.Contains(strings.ToLower(l.Category), q) ||
			strings.Contains(strings.ToLower(l.OwnerName), q)
	})
}

// Recent returns up to RecentLimit listings, newest first.
func Recent(ls []model.Listing) []model.Listing {
	out := filter(ls, func(*model.Listing) bool { return true })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > RecentLimit {
		out = out[:RecentLimit]
	}
	return out
}

// Favorites keeps listings whose ID is in ids.
func Favorites(ls []model.Listing, ids []string) []model.Listing {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return filter(ls, func(l *model.Listing) bool { return set[l.ID] })
}

// Stats summarizes a set of listings.
type Stats struct {
	Total       int            `json:"total"`
	TopCategory string         `json:"top_category,omitempty"`
	Categories  map[string]int `json:"categories"`
}

// StatsFor counts listings per category. The top category is the one with
// the most listings; ties go to the category seen first.
func StatsFor(ls []model.Listing) Stats {
	st := Stats{Total: len(ls), Categories: map[string]int{}}
	var order []string
	for _, l := range ls {
		if _, ok := st.Categories[l.Category]; !ok {
			order = append(order, l.Category)
		}
		st.Categories[l.Category]++
	}

	best := 0
	for _, c := range order {
		if n := st.Categories[c]; n > best {
			best = n
			st.TopCategory = c
		}
	}
	return st
}

// Query selects and narrows a view of the listing collection.
type Query struct {
	View      string
	Category  string
	Search    string
	Favorites []string
	// OnlyFavorites restricts the result to Favorites.
	OnlyFavorites bool
	Recent        bool
}

// Apply projects all through the query for actor. Views other than map,
// approved and mine require viewAll.
func (q Query) Apply(all []model.Listing, actor model.Identity, viewAll bool) ([]model.Listing, error) {
	var ls []model.Listing
	switch q.View {
	case "", ViewMap:
		ls = MapVisible(all, actor.UserID)
	case ViewApproved:
		ls = Approved(all)
	case ViewMine:
		if !actor.Authenticated() {
			return nil, ErrUnauthorized
		}
		ls = Mine(all, actor.UserID)
	case ViewPending, ViewRejected, ViewAll:
		if !viewAll {
			return nil, ErrUnauthorized
		}
		switch q.View {
		case ViewPending:
			ls = Pending(all)
		case ViewRejected:
			ls = Rejected(all)
		default:
			ls = filter(all, func(*model.Listing) bool { return true })
		}
	default:
		return nil, invalid(newFieldError("view", "oneof", "view must be one of: map approved mine pending rejected all"))
	}

	if q.OnlyFavorites {
		ls = Favorites(ls, q.Favorites)
	}
	ls = Search(FilterCategory(ls, q.Category), q.Search)
	if q.Recent {
		ls = Recent(ls)
	}
	return ls, nil
}
