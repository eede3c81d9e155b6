package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/smallstep/agentctl/pkg/metrics"
	bolt "go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

// BoltStore implements Store using BoltDB. Keys are the start time in
// big-endian nanoseconds followed by the entry ID, so a cursor walks the
// bucket in chronological order.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the journal at path
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRuns); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketRuns, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func entryKey(e *Entry) []byte {
	key := make([]byte, 8, 8+len(e.ID))
	binary.BigEndian.PutUint64(key, uint64(e.StartedAt.UnixNano()))
	return append(key, e.ID...)
}

// Append stores an entry, assigning an ID and start time when missing
func (s *BoltStore) Append(entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	entry.StartedAt = entry.StartedAt.UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRuns).Put(entryKey(entry), data)
	})
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	if count, err := s.Count(); err == nil {
		metrics.JournalEntries.Set(float64(count))
	}
	return nil
}

func (s *BoltStore) List(filter Filter) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRuns).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt journal entry %x: %w", k, err)
			}
			if filter.Kind != "" && entry.Kind != filter.Kind {
				continue
			}
			entries = append(entries, &entry)
			if filter.Limit > 0 && len(entries) >= filter.Limit {
				break
			}
		}
		return nil
	})
	return entries, err
}

func (s *BoltStore) Prune(before time.Time) (int, error) {
	cutoff := make([]byte, 8)
	binary.BigEndian.PutUint64(cutoff, uint64(before.UnixNano()))

	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && bytes.Compare(k[:8], cutoff) < 0; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return removed, nil
}

func (s *BoltStore) Count() (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketRuns).Stats().KeyN
		return nil
	})
	return count, err
}
