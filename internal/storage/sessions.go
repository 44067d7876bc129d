package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hamza/scanhub/internal/models"
	"go.etcd.io/bbolt"
)

// SaveSession persists a smart-scan session record
func (s *Store) SaveSession(session *models.SmartScanSession) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketSessions)).Put([]byte(session.ID), data)
	})
}

// GetSession retrieves a session record by ID
func (s *Store) GetSession(id string) (*models.SmartScanSession, error) {
	var session *models.SmartScanSession

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSessions)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: session %s", ErrNotFound, id)
		}
		session = &models.SmartScanSession{}
		return json.Unmarshal(data, session)
	})

	return session, err
}

// ListSessions retrieves all session records, newest first
func (s *Store) ListSessions() ([]*models.SmartScanSession, error) {
	var sessions []*models.SmartScanSession

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSessions)).ForEach(func(_, data []byte) error {
			var session models.SmartScanSession
			if err := json.Unmarshal(data, &session); err != nil {
				return err
			}
			sessions = append(sessions, &session)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

// DeleteSession removes a session record
func (s *Store) DeleteSession(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketSessions))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: session %s", ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}
