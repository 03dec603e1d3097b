package oraclerelayd

import (
	"encoding/binary"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var (
	bucketCursor    = []byte("cursor")
	bucketDelivered = []byte("delivered")
	keyNextBlock    = []byte("next_block")
)

// Store persists the scan cursor and the set of delivered callbacks so the
// relay delivers each oracle event exactly once across restarts.
type Store struct {
	db *bbolt.DB
}

// OpenStore opens (or creates) the bbolt file at path.
func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open relay state: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketCursor, bucketDelivered} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init relay buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NextBlock returns the first block not yet scanned.
func (s *Store) NextBlock() (uint64, bool, error) {
	var (
		next uint64
		ok   bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketCursor).Get(keyNextBlock)
		if len(raw) == 8 {
			next, ok = binary.BigEndian.Uint64(raw), true
		}
		return nil
	})
	return next, ok, err
}

func (s *Store) SetNextBlock(next uint64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCursor).Put(keyNextBlock, binary.BigEndian.AppendUint64(nil, next))
	})
}

func (s *Store) Delivered(key string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		ok = tx.Bucket(bucketDelivered).Get([]byte(key)) != nil
		return nil
	})
	return ok, err
}

func (s *Store) MarkDelivered(key string, at time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDelivered).Put([]byte(key), binary.BigEndian.AppendUint64(nil, uint64(at.Unix())))
	})
}
