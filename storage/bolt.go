package storage

import (
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var bucketState = []byte("state")

// BoltDB stores state in a single bbolt bucket. Every batch is applied inside
// one bbolt read-write transaction.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the bbolt file at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Put(key []byte, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Put(key, value)
	})
}

func (b *BoltDB) Get(key []byte) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		value := tx.Bucket(bucketState).Get(key)
		if value == nil {
			return ErrNotFound
		}
		// bbolt values are only valid for the lifetime of the transaction.
		out = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BoltDB) Delete(key []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Delete(key)
	})
}

func (b *BoltDB) Write(batch *Batch) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		return batch.Replay(bucket.Put, bucket.Delete)
	})
}

func (b *BoltDB) Close() {
	_ = b.db.Close()
}

// Open selects a backend by name. Supported names are "memory", "leveldb" and
// "bolt".
func Open(backend, path string) (Database, error) {
	switch backend {
	case "", "memory":
		return NewMemDB(), nil
	case "leveldb":
		return NewLevelDB(path)
	case "bolt":
		return NewBoltDB(path)
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", backend)
	}
}
