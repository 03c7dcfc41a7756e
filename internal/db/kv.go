package db

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// OpenKV opens the BadgerDB key-value store used for media blobs and
// per-user preferences.
func OpenKV(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	kv, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening kv store: %w", err)
	}
	return kv, nil
}
