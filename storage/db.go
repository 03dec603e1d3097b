package storage

import (
	"errors"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when the key is absent from the backend.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store. Backends must apply a
// Batch atomically: either every operation in it becomes visible or none does.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	Write(batch *Batch) error
	Close()
}

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch collects writes that must be applied together.
type Batch struct {
	ops []batchOp
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

// Put queues a write of value under key.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

// Delete queues the removal of key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), delete: true})
}

// Len reports the number of queued operations.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Replay applies the queued operations in order to the supplied callbacks.
func (b *Batch) Replay(put func(key, value []byte) error, del func(key []byte) error) error {
	if b == nil {
		return nil
	}
	for _, op := range b.ops {
		if op.delete {
			if err := del(op.key); err != nil {
				return err
			}
			continue
		}
		if err := put(op.key, op.value); err != nil {
			return err
		}
	}
	return nil
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.data, string(key))
	return nil
}

// Write applies the batch while holding the write lock so readers never
// observe a partially applied batch.
func (db *MemDB) Write(batch *Batch) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return batch.Replay(func(key, value []byte) error {
		db.data[string(key)] = value
		return nil
	}, func(key []byte) error {
		delete(db.data, string(key))
		return nil
	})
}

// Keys returns the stored keys in lexical order. Intended for diagnostics.
func (db *MemDB) Keys() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := make([]string, 0, len(db.data))
	for k := range db.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Delete removes a key. Deleting an absent key is not an error.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

// Write commits the batch through a native leveldb batch.
func (ldb *LevelDB) Write(batch *Batch) error {
	native := new(leveldb.Batch)
	_ = batch.Replay(func(key, value []byte) error {
		native.Put(key, value)
		return nil
	}, func(key []byte) error {
		native.Delete(key)
		return nil
	})
	return ldb.db.Write(native, nil)
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}
