package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
)

var transferPrefix = []byte("transfer/")

// PebbleStore keeps one JSON-encoded record per key in a pebble database
type PebbleStore struct {
	db   *pebble.DB
	path string
	mu   sync.Mutex
}

// NewPebbleStore opens a pebble database at the given directory
func NewPebbleStore(path string, opts *pebble.Options) (*PebbleStore, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	if opts == nil {
		opts = &pebble.Options{}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	return &PebbleStore{db: db, path: path}, nil
}

func transferKey(id string) []byte {
	key := make([]byte, 0, len(transferPrefix)+len(id))
	key = append(key, transferPrefix...)
	return append(key, id...)
}

func (s *PebbleStore) get(id string) (*Transfer, error) {
	value, closer, err := s.db.Get(transferKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("transfer '%s' not found", id)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var t Transfer
	if err := json.Unmarshal(value, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer '%s': %w", id, err)
	}
	return &t, nil
}

func (s *PebbleStore) put(t *Transfer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer: %w", err)
	}
	return s.db.Set(transferKey(t.ID), data, pebble.Sync)
}

// Create adds a new transfer
func (s *PebbleStore) Create(t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(t.ID); err == nil {
		return fmt.Errorf("transfer '%s' already exists", t.ID)
	}
	return s.put(t)
}

// Get retrieves a transfer by id
func (s *PebbleStore) Get(id string) (*Transfer, error) {
	return s.get(id)
}

// Update replaces an existing transfer
func (s *PebbleStore) Update(t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(t.ID); err != nil {
		return err
	}
	return s.put(t)
}

// List returns all transfers, oldest first
func (s *PebbleStore) List() ([]*Transfer, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: transferPrefix,
		UpperBound: keyUpperBound(transferPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var transfers []*Transfer
	for iter.First(); iter.Valid(); iter.Next() {
		var t Transfer
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", iter.Key(), err)
		}
		transfers = append(transfers, &t)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	sortByCreated(transfers)
	return transfers, nil
}

// Close flushes and closes the database
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Path returns the database directory
func (s *PebbleStore) Path() string {
	return s.path
}

// keyUpperBound returns the upper bound for prefix iteration
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end
		}
	}
	return nil // no upper bound
}
