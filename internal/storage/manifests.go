package storage

import (
	"encoding/json"
	"fmt"

	"github.com/hamza/scanhub/internal/models"
	"go.etcd.io/bbolt"
)

// manifestKey builds the composite bucket key for one manifest version.
func manifestKey(tool string, version int) []byte {
	return []byte(fmt.Sprintf("%s/%06d", tool, version))
}

// SaveManifest persists one manifest version. Versions are append-only:
// an existing key is never overwritten.
func (s *Store) SaveManifest(m *models.ToolManifest) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketManifests))
		key := manifestKey(m.Tool, m.Version)
		if bucket.Get(key) != nil {
			return fmt.Errorf("manifest %s version %d already exists", m.Tool, m.Version)
		}
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return bucket.Put(key, data)
	})
}

// GetManifest retrieves one manifest version, e.g. for run provenance.
func (s *Store) GetManifest(tool string, version int) (*models.ToolManifest, error) {
	var m *models.ToolManifest

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketManifests)).Get(manifestKey(tool, version))
		if data == nil {
			return fmt.Errorf("%w: manifest %s v%d", ErrNotFound, tool, version)
		}
		m = &models.ToolManifest{}
		return json.Unmarshal(data, m)
	})

	return m, err
}
