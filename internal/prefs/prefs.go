// Package prefs keeps per-user client state (favorites, onboarding flag,
// language) in BadgerDB.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/erazemk/dukandaar/internal/model"
)

const keyPrefix = "prefs:"

// ErrInvalidLanguage is returned for an unsupported language code.
var ErrInvalidLanguage = errors.New("unsupported language")

// Store reads and writes preferences.
type Store struct {
	db *badger.DB
}

// NewStore wraps an open BadgerDB.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

func key(userID int64) []byte {
	return []byte(keyPrefix + strconv.FormatInt(userID, 10))
}

func defaults() *model.Preferences {
	return &model.Preferences{Favorites: []string{}, Language: model.LanguageEnglish}
}

// Get returns the user's preferences, or defaults if none are stored.
func (s *Store) Get(_ context.Context, userID int64) (*model.Preferences, error) {
	p := defaults()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, p)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}
	if p.Favorites == nil {
		p.Favorites = []string{}
	}
	return p, nil
}

// update applies fn to the stored preferences in a single transaction.
func (s *Store) update(userID int64, fn func(p *model.Preferences) error) (*model.Preferences, error) {
	var out *model.Preferences
	err := s.db.Update(func(txn *badger.Txn) error {
		p := defaults()
		item, err := txn.Get(key(userID))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, p) }); err != nil {
				return err
			}
		}

		if err := fn(p); err != nil {
			return err
		}

		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		out = p
		return txn.Set(key(userID), data)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleFavorite adds or removes a listing from the user's favorites and
// reports whether it is now a favorite.
func (s *Store) ToggleFavorite(_ context.Context, userID int64, listingID string) (bool, error) {
	var favorite bool
	_, err := s.update(userID, func(p *model.Preferences) error {
		if i := slices.Index(p.Favorites, listingID); i >= 0 {
			p.Favorites = slices.Delete(p.Favorites, i, i+1)
			favorite = false
			return nil
		}
		p.Favorites = append(p.Favorites, listingID)
		favorite = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}
	return favorite, nil
}

// RemoveFavorite drops a listing from the user's favorites, if present.
func (s *Store) RemoveFavorite(_ context.Context, userID int64, listingID string) error {
	_, err := s.update(userID, func(p *model.Preferences) error {
		p.Favorites = slices.DeleteFunc(p.Favorites, func(id string) bool { return id == listingID })
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}

// MarkOnboardingSeen records that the user has dismissed the onboarding tour.
func (s *Store) MarkOnboardingSeen(_ context.Context, userID int64) error {
	_, err := s.update(userID, func(p *model.Preferences) error {
		p.SeenOnboarding = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("marking onboarding seen: %w", err)
	}
	return nil
}

// SetLanguage stores the user's interface language.
func (s *Store) SetLanguage(_ context.Context, userID int64, lang string) (*model.Preferences, error) {
	if lang != model.LanguageEnglish && lang != model.LanguageMarathi {
		return nil, ErrInvalidLanguage
	}
	p, err := s.update(userID, func(p *model.Preferences) error {
		p.Language = lang
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setting language: %w", err)
	}
	return p, nil
}

// Delete removes all preferences for a user.
func (s *Store) Delete(_ context.Context, userID int64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(userID))
	})
	if err != nil {
		return fmt.Errorf("deleting preferences: %w", err)
	}
	return nil
}
