// Package media stores processed listing photos in BadgerDB and serves
// them under a public URL prefix.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/erazemk/dukandaar/internal/imaging"
)

// URLPrefix is the public path under which stored objects are served.
const URLPrefix = "/media/"

const (
	dataKeyPrefix = "media:"
	mimeKeyPrefix  = "mime:"
	ownerKeyPrefix = "owner:"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("media object not found")

// Object is a stored blob.
type Object struct {
	Name string
	MIME string
	Data []byte
}

// Store is a BadgerDB-backed object store.
type Store struct {
	db *badger.DB
}

// NewStore wraps an open BadgerDB.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Put stores data uploaded by owner under a generated name and returns the
// object's public URL.
func (s *Store) Put(_ context.Context, owner int64, data []byte, mime string) (string, error) {
	name := uuid.NewString() + extension(mime)

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKeyPrefix+name), data); err != nil {
			return fmt.Errorf("set data: %w", err)
		}
		if err := txn.Set([]byte(ownerKeyPrefix+name), []byte(strconv.FormatInt(owner, 10))); err != nil {
			return fmt.Errorf("set owner: %w", err)
		}
		return txn.Set([]byte(mimeKeyPrefix+name), []byte(mime))
	})
	if err != nil {
		return "", fmt.Errorf("storing media object: %w", err)
	}
	return URL(name), nil
}

// Upload processes raw image bytes and stores the normalized JPEG.
func (s *Store) Upload(ctx context.Context, owner int64, raw []byte) (string, error) {
	result, err := imaging.Process(bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	return s.Put(ctx, owner, result.Data, result.MIME)
}

// Get returns a stored object by name.
func (s *Store) Get(_ context.Context, name string) (*Object, error) {
	obj := &Object{Name: name}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataKeyPrefix + name))
		if err != nil {
			return err
		}
		if obj.Data, err = item.ValueCopy(nil); err != nil {
			return err
		}

		item, err = txn.Get([]byte(mimeKeyPrefix + name))
		if err != nil {
			return err
		}
		mime, err := item.ValueCopy(nil)
		obj.MIME = string(mime)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading media object: %w", err)
	}
	return obj, nil
}

// Exists reports whether an object is stored under name.
func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(dataKeyPrefix + name))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking media object: %w", err)
	}
	return true, nil
}

// Owner returns the ID of the user who uploaded the object. Objects stored
// without an owner report 0.
func (s *Store) Owner(_ context.Context, name string) (int64, error) {
	var owner int64
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(dataKeyPrefix + name)); err != nil {
			return err
		}
		item, err := txn.Get([]byte(ownerKeyPrefix + name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			owner, err = strconv.ParseInt(string(v), 10, 64)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("reading media owner: %w", err)
	}
	return owner, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Store) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range []string{dataKeyPrefix, mimeKeyPrefix, ownerKeyPrefix} {
			if err := txn.Delete([]byte(prefix + name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting media object: %w", err)
	}
	return nil
}

// DeleteURL removes the object behind a public URL. URLs that do not
// point into this store are ignored.
func (s *Store) DeleteURL(ctx context.Context, url string) error {
	name, ok := NameFromURL(url)
	if !ok {
		return nil
	}
	return s.Delete(ctx, name)
}

// URL returns the public URL for an object name.
func URL(name string) string {
	return URLPrefix + name
}

// NameFromURL extracts the object name from a public URL.
func NameFromURL(url string) (string, bool) {
	name, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ""
}
