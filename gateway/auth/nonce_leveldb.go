package auth

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	noncePrefix    = []byte("nonce/")
	observedPrefix = []byte("observed/")
)

// LevelDBNonceStore persists nonce observations in LevelDB. Nonces are
// indexed by observation time so pruning is a prefix scan.
type LevelDBNonceStore struct {
	db *leveldb.DB
}

var _ NonceStore = (*LevelDBNonceStore)(nil)

// OpenLevelDBNonceStore opens (or creates) the store at path.
func OpenLevelDBNonceStore(path string) (*LevelDBNonceStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("nonce store path required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open nonce store: %w", err)
	}
	return &LevelDBNonceStore{db: db}, nil
}

func (s *LevelDBNonceStore) Close() error {
	return s.db.Close()
}

func composite(rec NonceRecord) string {
	return rec.RelayID + "|" + rec.Timestamp + "|" + rec.Nonce
}

func observedKey(at time.Time, id string) []byte {
	key := append([]byte(nil), observedPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(at.UnixNano()))
	return append(key, id...)
}

func (s *LevelDBNonceStore) Remember(_ context.Context, rec NonceRecord) (bool, error) {
	id := composite(rec)
	key := append(append([]byte(nil), noncePrefix...), id...)
	_, err := s.db.Get(key, nil)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, leveldb.ErrNotFound):
		return false, err
	}
	at := rec.ObservedAt.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}
	batch := new(leveldb.Batch)
	batch.Put(key, binary.BigEndian.AppendUint64(nil, uint64(at.UnixNano())))
	batch.Put(observedKey(at, id), nil)
	return false, s.db.Write(batch, nil)
}

func (s *LevelDBNonceStore) Since(ctx context.Context, cutoff time.Time) ([]NonceRecord, error) {
	iter := s.db.NewIterator(util.BytesPrefix(observedPrefix), nil)
	defer iter.Release()
	var out []NonceRecord
	for ok := iter.Seek(observedKey(cutoff, "")); ok; ok = iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, ok := parseObserved(iter.Key())
		if ok {
			out = append(out, rec)
		}
	}
	return out, iter.Error()
}

func (s *LevelDBNonceStore) Prune(ctx context.Context, cutoff time.Time) error {
	limit := observedKey(cutoff, "")
	iter := s.db.NewIterator(util.BytesPrefix(observedPrefix), nil)
	defer iter.Release()
	batch := new(leveldb.Batch)
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if bytes.Compare(iter.Key(), limit) >= 0 {
			break
		}
		key := append([]byte(nil), iter.Key()...)
		batch.Delete(key)
		batch.Delete(append(append([]byte(nil), noncePrefix...), key[len(observedPrefix)+8:]...))
	}
	if err := iter.Error(); err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.db.Write(batch, nil)
}

func parseObserved(key []byte) (NonceRecord, bool) {
	if len(key) < len(observedPrefix)+8 {
		return NonceRecord{}, false
	}
	nanos := int64(binary.BigEndian.Uint64(key[len(observedPrefix):]))
	parts := strings.SplitN(string(key[len(observedPrefix)+8:]), "|", 3)
	if len(parts) != 3 {
		return NonceRecord{}, false
	}
	return NonceRecord{RelayID: parts[0], Timestamp: parts[1], Nonce: parts[2], ObservedAt: time.Unix(0, nanos).UTC()}, true
}
