package state

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"rewardhub/core/events"
	"rewardhub/storage"
)

// ErrConflict is returned by Commit when a key read by the transaction was
// changed by another transaction that committed first.
var ErrConflict = errors.New("state: transaction conflict")

// ErrRetriesExhausted is returned by Update when the closure kept conflicting.
var ErrRetriesExhausted = errors.New("state: too many conflicting retries")

const defaultMaxRetries = 16

// Manager provides transactional access to rlp-encoded values stored under
// keccak-hashed keys in the backing database.
type Manager struct {
	db         storage.Database
	commitMu   sync.Mutex
	maxRetries int
	logger     *slog.Logger
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, maxRetries: defaultMaxRetries, logger: slog.Default()}
}

// SetMaxRetries bounds how many times Update re-runs a conflicting closure.
func (m *Manager) SetMaxRetries(n int) {
	if n <= 0 {
		n = defaultMaxRetries
	}
	m.maxRetries = n
}

// SetLogger overrides the logger used for conflict diagnostics.
func (m *Manager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	m.logger = logger
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVGet reads a committed value outside of any transaction. The boolean
// return value indicates whether the key existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, found, err := m.load(kvKey(key))
	if err != nil || !found {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) load(hashed []byte) ([]byte, bool, error) {
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Begin opens a new transaction. Transactions are cheap; they hold no locks
// until Commit.
func (m *Manager) Begin() *Tx {
	return &Tx{
		m:      m,
		reads:  make(map[string]readEntry),
		writes: make(map[string]writeEntry),
	}
}

// Update runs fn inside a transaction and commits it. When the commit
// conflicts the closure is re-run against fresh state. Events buffered with
// Tx.AddEvent are returned only for the attempt that committed.
func (m *Manager) Update(fn func(tx *Tx) error) ([]events.Event, error) {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		tx := m.Begin()
		if err := fn(tx); err != nil {
			return nil, err
		}
		err := tx.Commit()
		if err == nil {
			return tx.Events(), nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		m.logger.Debug("state transaction conflicted, retrying", slog.Int("attempt", attempt+1))
	}
	return nil, ErrRetriesExhausted
}

// View runs fn against a transaction that is always discarded.
func (m *Manager) View(fn func(tx *Tx) error) error {
	return fn(m.Begin())
}

func (m *Manager) commit(tx *Tx) error {
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	for hashed, read := range tx.reads {
		current, found, err := m.load([]byte(hashed))
		if err != nil {
			return err
		}
		if found != read.found || !bytes.Equal(current, read.value) {
			return ErrConflict
		}
	}
	if len(tx.writes) == 0 {
		return nil
	}
	batch := storage.NewBatch()
	for hashed, w := range tx.writes {
		if w.deleted {
			batch.Delete([]byte(hashed))
			continue
		}
		batch.Put([]byte(hashed), w.value)
	}
	return m.db.Write(batch)
}
