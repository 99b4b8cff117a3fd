package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store persists transfer records
type Store interface {
	Create(t *Transfer) error
	Get(id string) (*Transfer, error)
	Update(t *Transfer) error
	List() ([]*Transfer, error)
	Close() error
}

// FileStore keeps every transfer in a single JSON file
type FileStore struct {
	filePath  string
	mu        sync.RWMutex
	transfers map[string]*Transfer
}

// fileContents represents the JSON structure for storage
type fileContents struct {
	Transfers map[string]*Transfer `json:"transfers"`
}

// NewFileStore opens (or lazily creates) the journal file at filePath
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("journal path is required")
	}

	store := &FileStore{
		filePath:  filePath,
		transfers: make(map[string]*Transfer),
	}

	// Load existing transfers if file exists
	if err := store.load(); err != nil {
		// If file doesn't exist, that's okay - we'll create it on first save
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load transfers: %w", err)
		}
	}

	return store, nil
}

// load reads transfers from the storage file
func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var contents fileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return fmt.Errorf("failed to unmarshal transfers: %w", err)
	}

	s.transfers = contents.Transfers
	if s.transfers == nil {
		s.transfers = make(map[string]*Transfer)
	}

	return nil
}

// saveLocked writes transfers to the storage file; s.mu must be held
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(fileContents{Transfers: s.transfers}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transfers: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write transfers: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Create adds a new transfer to storage
func (s *FileStore) Create(t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transfers[t.ID]; exists {
		return fmt.Errorf("transfer '%s' already exists", t.ID)
	}

	s.transfers[t.ID] = cloneTransfer(t)
	return s.saveLocked()
}

// Get retrieves a transfer by id
func (s *FileStore) Get(id string) (*Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.transfers[id]
	if !exists {
		return nil, fmt.Errorf("transfer '%s' not found", id)
	}

	return cloneTransfer(t), nil
}

// Update replaces an existing transfer
func (s *FileStore) Update(t *Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transfers[t.ID]; !exists {
		return fmt.Errorf("transfer '%s' not found", t.ID)
	}

	s.transfers[t.ID] = cloneTransfer(t)
	return s.saveLocked()
}

// List returns all transfers, oldest first
func (s *FileStore) List() ([]*Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfers := make([]*Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		transfers = append(transfers, cloneTransfer(t))
	}
	sortByCreated(transfers)

	return transfers, nil
}

// Close is a no-op; every write is already flushed
func (s *FileStore) Close() error {
	return nil
}

// GetFilePath returns the storage file path
func (s *FileStore) GetFilePath() string {
	return s.filePath
}

func cloneTransfer(t *Transfer) *Transfer {
	c := *t
	if t.CompletedTime != nil {
		completed := *t.CompletedTime
		c.CompletedTime = &completed
	}
	return &c
}

func sortByCreated(transfers []*Transfer) {
	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].Created.Equal(transfers[j].Created) {
			return transfers[i].ID < transfers[j].ID
		}
		return transfers[i].Created.Before(transfers[j].Created)
	})
}
