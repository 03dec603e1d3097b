package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	bolt, err := NewBoltDB(filepath.Join(dir, "state.bolt"))
	require.NoError(t, err)
	dbs := map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    bolt,
	}
	t.Cleanup(func() {
		for _, db := range dbs {
			db.Close()
		}
	})
	return dbs
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, db.Put([]byte("k"), []byte("v")))
			got, err := db.Get([]byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("v"), got)

			require.NoError(t, db.Delete([]byte("k")))
			_, err = db.Get([]byte("k"))
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestDatabaseBatchWrite(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("stale"), []byte("x")))

			batch := NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("stale"))
			require.Equal(t, 3, batch.Len())
			require.NoError(t, db.Write(batch))

			a, err := db.Get([]byte("a"))
			require.NoError(t, err)
			require.Equal(t, []byte("1"), a)
			b, err := db.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), b)
			_, err = db.Get([]byte("stale"))
			require.True(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db1.Put([]byte("key"), []byte("value")))
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	got, err := db2.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, err := Open("rocksdb", t.TempDir())
	require.Error(t, err)
}
