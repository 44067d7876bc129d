package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hamza/scanhub/internal/models"
	"go.etcd.io/bbolt"
)

// SaveRun persists a run record and maintains the target index
func (s *Store) SaveRun(run *models.Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return err
		}

		runs := tx.Bucket([]byte(bucketRuns))
		if err := runs.Put([]byte(run.ID), data); err != nil {
			return err
		}

		// Update run index (target -> []run_id mapping)
		index := tx.Bucket([]byte(bucketRunIndex))
		targetKey := []byte(run.Target)

		var runIDs []string
		if existing := index.Get(targetKey); existing != nil {
			if err := json.Unmarshal(existing, &runIDs); err != nil {
				return err
			}
		}

		found := false
		for _, id := range runIDs {
			if id == run.ID {
				found = true
				break
			}
		}
		if !found {
			runIDs = append(runIDs, run.ID)
		}

		indexData, err := json.Marshal(runIDs)
		if err != nil {
			return err
		}
		return index.Put(targetKey, indexData)
	})
}

// GetRun retrieves a run record by ID
func (s *Store) GetRun(id string) (*models.Run, error) {
	var run *models.Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketRuns)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: run %s", ErrNotFound, id)
		}
		run = &models.Run{}
		return json.Unmarshal(data, run)
	})

	return run, err
}

// ListRuns retrieves all runs for a target, newest first. An empty target
// lists every run.
func (s *Store) ListRuns(target string) ([]*models.Run, error) {
	var runs []*models.Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRuns))

		if target == "" {
			return bucket.ForEach(func(_, data []byte) error {
				var run models.Run
				if err := json.Unmarshal(data, &run); err != nil {
					return err
				}
				runs = append(runs, &run)
				return nil
			})
		}

		index := tx.Bucket([]byte(bucketRunIndex))
		data := index.Get([]byte(target))
		if data == nil {
			return nil
		}

		var runIDs []string
		if err := json.Unmarshal(data, &runIDs); err != nil {
			return err
		}

		for _, id := range runIDs {
			if runData := bucket.Get([]byte(id)); runData != nil {
				var run models.Run
				if err := json.Unmarshal(runData, &run); err != nil {
					return err
				}
				runs = append(runs, &run)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}

// DeleteRun removes a run record and its index entry
func (s *Store) DeleteRun(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(bucketRuns))
		data := runs.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: run %s", ErrNotFound, id)
		}

		var run models.Run
		if err := json.Unmarshal(data, &run); err != nil {
			return err
		}
		if err := runs.Delete([]byte(id)); err != nil {
			return err
		}

		index := tx.Bucket([]byte(bucketRunIndex))
		indexData := index.Get([]byte(run.Target))
		if indexData == nil {
			return nil
		}

		var runIDs []string
		if err := json.Unmarshal(indexData, &runIDs); err != nil {
			return err
		}
		filtered := runIDs[:0]
		for _, rid := range runIDs {
			if rid != id {
				filtered = append(filtered, rid)
			}
		}
		updated, err := json.Marshal(filtered)
		if err != nil {
			return err
		}
		return index.Put([]byte(run.Target), updated)
	})
}
