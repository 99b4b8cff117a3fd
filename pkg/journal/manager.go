package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ibt-bridge/config"
)

// Manager records the lifecycle of bridge transfers
type Manager struct {
	store Store
}

// NewManager wraps an existing store
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Open creates a manager on the backend selected by cfg
func Open(cfg config.JournalConfig) (*Manager, error) {
	path := expandHome(cfg.Path)

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case config.JournalBackendFile, "":
		store, err = NewFileStore(path)
	case config.JournalBackendPebble:
		store, err = NewPebbleStore(path, nil)
	default:
		return nil, fmt.Errorf("unknown journal backend '%s'", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	return NewManager(store), nil
}

// Start records a new transfer in the pending state and assigns its id
func (m *Manager) Start(t *Transfer) (*Transfer, error) {
	now := time.Now()

	t.ID = uuid.New().String()
	t.Created = now
	t.LastUpdated = now
	t.State = StatePending

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.Create(t); err != nil {
		return nil, err
	}

	return t, nil
}

// MarkSourceConfirmed records the confirmed source-chain burn
func (m *Manager) MarkSourceConfirmed(id, txHash string) error {
	return m.update(id, func(t *Transfer) error {
		if t.State != StatePending {
			return fmt.Errorf("transfer '%s' is %s, expected %s", id, t.State, StatePending)
		}
		t.State = StateSourceConfirmed
		t.SourceTxHash = txHash
		return nil
	})
}

// MarkCompleted records the confirmed destination-chain mint
func (m *Manager) MarkCompleted(id, txHash string) error {
	return m.update(id, func(t *Transfer) error {
		if t.IsTerminal() {
			return fmt.Errorf("transfer '%s' is already %s", id, t.State)
		}
		now := time.Now()
		t.State = StateCompleted
		t.DestTxHash = txHash
		t.CompletedTime = &now
		return nil
	})
}

// MarkFailed moves a transfer into the failed state. txHash is kept when the
// failing transaction was broadcast before it was rejected.
func (m *Manager) MarkFailed(id string, phase Phase, txHash, message string) error {
	return m.update(id, func(t *Transfer) error {
		if t.IsTerminal() {
			return fmt.Errorf("transfer '%s' is already %s", id, t.State)
		}
		t.State = StateFailed
		t.FailedPhase = phase
		t.FailedTxHash = txHash
		t.ErrorMessage = message
		return nil
	})
}

func (m *Manager) update(id string, fn func(t *Transfer) error) error {
	t, err := m.store.Get(id)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	t.LastUpdated = time.Now()
	return m.store.Update(t)
}

// Get retrieves a transfer by id
func (m *Manager) Get(id string) (*Transfer, error) {
	return m.store.Get(id)
}

// List returns all transfers, oldest first
func (m *Manager) List() ([]*Transfer, error) {
	return m.store.List()
}

// ListByState returns transfers filtered by state
func (m *Manager) ListByState(state State) ([]*Transfer, error) {
	return m.filter(func(t *Transfer) bool { return t.State == state })
}

// ListStuck returns transfers whose source burn has no matching mint
func (m *Manager) ListStuck() ([]*Transfer, error) {
	return m.filter((*Transfer).IsStuck)
}

func (m *Manager) filter(keep func(*Transfer) bool) ([]*Transfer, error) {
	all, err := m.store.List()
	if err != nil {
		return nil, err
	}

	var out []*Transfer
	for _, t := range all {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close releases the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
