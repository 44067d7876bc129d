// Package storage persists manifests, scopes, runs, and sessions in a
// bbolt database, with JSON values and a secondary index by target.
package storage

import (
	"errors"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketManifests = "manifests"
	bucketScopes    = "scopes"
	bucketRuns      = "runs"
	bucketRunIndex  = "run_index"
	bucketSessions  = "sessions"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps a bbolt database for entity persistence
type Store struct {
	db *bbolt.DB
}

// NewStore opens a bbolt database at the given path and initializes required buckets
func NewStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{bucketManifests, bucketScopes, bucketRuns, bucketRunIndex, bucketSessions} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the bbolt database
func (s *Store) Close() error {
	return s.db.Close()
}
