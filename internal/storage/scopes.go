package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hamza/scanhub/internal/models"
	"go.etcd.io/bbolt"
)

// SaveScope persists a scope record
func (s *Store) SaveScope(scope *models.Scope) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(scope)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketScopes)).Put([]byte(scope.ID), data)
	})
}

// GetScope retrieves a scope record by ID
func (s *Store) GetScope(id string) (*models.Scope, error) {
	var scope *models.Scope

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketScopes)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: scope %s", ErrNotFound, id)
		}
		scope = &models.Scope{}
		return json.Unmarshal(data, scope)
	})

	return scope, err
}

// ListScopes retrieves all scope records sorted by name
func (s *Store) ListScopes() ([]*models.Scope, error) {
	var scopes []*models.Scope

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketScopes)).ForEach(func(_, data []byte) error {
			var scope models.Scope
			if err := json.Unmarshal(data, &scope); err != nil {
				return err
			}
			scopes = append(scopes, &scope)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(scopes, func(i, j int) bool {
		return scopes[i].Name < scopes[j].Name
	})

	return scopes, nil
}

// ActiveScopes retrieves only scopes currently marked active
func (s *Store) ActiveScopes() ([]*models.Scope, error) {
	scopes, err := s.ListScopes()
	if err != nil {
		return nil, err
	}
	active := scopes[:0]
	for _, sc := range scopes {
		if sc.Active {
			active = append(active, sc)
		}
	}
	return active, nil
}

// DeleteScope removes a scope record
func (s *Store) DeleteScope(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketScopes))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: scope %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}
