package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/cuemby/guildsync/pkg/types"
)

// DefaultRetention is the number of passes kept per family
const DefaultRetention = 500

var families = []types.Family{types.FamilyRoles, types.FamilyChannels}

func bucketFor(family types.Family) []byte {
	return []byte("passes_" + string(family))
}

// BoltStore implements Store using BoltDB. Each family has its own bucket
// keyed by start time, so a cursor walks passes in chronological order.
type BoltStore struct {
	db        *bolt.DB
	retention int
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens or creates the history database in dataDir
func NewBoltStore(dataDir string, retention int) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "guildsync.db")

	// A running daemon holds the file lock; fail instead of waiting for it.
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, f := range families {
			if _, err := tx.CreateBucketIfNotExists(bucketFor(f)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucketFor(f), err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if retention <= 0 {
		retention = DefaultRetention
	}
	return &BoltStore{db: db, retention: retention}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// passKey orders passes by start time; the ID keeps keys unique
func passKey(r *types.PassReport) []byte {
	key := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(key, uint64(r.StartedAt.UnixNano()))
	return append(key, r.ID...)
}

func (s *BoltStore) SavePass(report *types.PassReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode pass: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFor(report.Family))
		if b == nil {
			return fmt.Errorf("unknown family %q", report.Family)
		}
		if err := b.Put(passKey(report), data); err != nil {
			return err
		}
		return prune(b, s.retention)
	})
}

// prune drops the oldest passes beyond the retention. Bucket stats do not
// see writes of the running transaction, so keys are counted with a cursor.
func prune(b *bolt.Bucket, retention int) error {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	excess := n - retention
	if excess <= 0 {
		return nil
	}
	var stale [][]byte
	for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
		stale = append(stale, append([]byte(nil), k...))
	}
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *BoltStore) ListPasses(family types.Family, limit int) ([]*types.PassReport, error) {
	selected := families
	if family != "" {
		selected = []types.Family{family}
	}

	var passes []*types.PassReport
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, f := range selected {
			b := tx.Bucket(bucketFor(f))
			if b == nil {
				return fmt.Errorf("unknown family %q", f)
			}
			c := b.Cursor()
			n := 0
			for k, v := c.Last(); k != nil && (limit <= 0 || n < limit); k, v = c.Prev() {
				var report types.PassReport
				if err := json.Unmarshal(v, &report); err != nil {
					return err
				}
				passes = append(passes, &report)
				n++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(passes, func(i, j int) bool {
		return passes[i].StartedAt.After(passes[j].StartedAt)
	})
	if limit > 0 && len(passes) > limit {
		passes = passes[:limit]
	}
	return passes, nil
}

func (s *BoltStore) GetPass(id string) (*types.PassReport, error) {
	var found *types.PassReport
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, f := range families {
			err := tx.Bucket(bucketFor(f)).ForEach(func(k, v []byte) error {
				if string(k[8:]) != id {
					return nil
				}
				var report types.PassReport
				if err := json.Unmarshal(v, &report); err != nil {
					return err
				}
				found = &report
				return nil
			})
			if err != nil || found != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}
