package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"rewardhub/core/events"
)

// ErrTxClosed is returned when a committed or discarded transaction is used.
var ErrTxClosed = errors.New("state: transaction closed")

type readEntry struct {
	value []byte
	found bool
}

type writeEntry struct {
	value   []byte
	deleted bool
}

type undoEntry struct {
	key     string
	prev    writeEntry
	existed bool
}

// Tx buffers writes and records every key it observes. Reads see the
// transaction's own writes first. Nothing reaches the database until Commit.
type Tx struct {
	m      *Manager
	reads  map[string]readEntry
	writes map[string]writeEntry
	undo   []undoEntry
	events []events.Event
	closed bool
}

// Snapshot identifies a point in the transaction that can be reverted to.
type Snapshot struct {
	undo   int
	events int
}

// KVGet retrieves the value stored under key and decodes it into out. The
// boolean return value indicates whether the key existed.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if tx.closed {
		return false, ErrTxClosed
	}
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, found, err := tx.get(string(kvKey(key)))
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

func (tx *Tx) get(hashed string) ([]byte, bool, error) {
	if w, ok := tx.writes[hashed]; ok {
		if w.deleted {
			return nil, false, nil
		}
		return w.value, true, nil
	}
	if r, ok := tx.reads[hashed]; ok {
		return r.value, r.found, nil
	}
	data, found, err := tx.m.load([]byte(hashed))
	if err != nil {
		return nil, false, err
	}
	tx.reads[hashed] = readEntry{value: data, found: found}
	return data, found, nil
}

// KVPut rlp-encodes value and stages it under key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if tx.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	tx.stage(string(kvKey(key)), writeEntry{value: encoded})
	return nil
}

// KVDelete stages the removal of key.
func (tx *Tx) KVDelete(key []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	tx.stage(string(kvKey(key)), writeEntry{deleted: true})
	return nil
}

func (tx *Tx) stage(hashed string, w writeEntry) {
	prev, existed := tx.writes[hashed]
	tx.undo = append(tx.undo, undoEntry{key: hashed, prev: prev, existed: existed})
	tx.writes[hashed] = w
}

// AddEvent buffers an event that is released only if the transaction commits.
func (tx *Tx) AddEvent(evt events.Event) {
	if evt == nil || tx.closed {
		return
	}
	tx.events = append(tx.events, evt)
}

// Events returns the buffered events in emission order.
func (tx *Tx) Events() []events.Event {
	return append([]events.Event(nil), tx.events...)
}

// Snapshot captures the current set of staged writes and events.
func (tx *Tx) Snapshot() Snapshot {
	return Snapshot{undo: len(tx.undo), events: len(tx.events)}
}

// RevertToSnapshot discards every write and event staged after snap was
// taken. Keys read in the meantime stay in the read set.
func (tx *Tx) RevertToSnapshot(snap Snapshot) {
	for i := len(tx.undo) - 1; i >= snap.undo; i-- {
		entry := tx.undo[i]
		if entry.existed {
			tx.writes[entry.key] = entry.prev
		} else {
			delete(tx.writes, entry.key)
		}
	}
	tx.undo = tx.undo[:snap.undo]
	if snap.events < len(tx.events) {
		tx.events = tx.events[:snap.events]
	}
}

// Commit validates the read set and atomically applies the staged writes.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	return tx.m.commit(tx)
}

// Discard drops the transaction without writing anything.
func (tx *Tx) Discard() {
	tx.closed = true
}
