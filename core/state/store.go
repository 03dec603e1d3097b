package state

import "rewardhub/core/events"

// Store is the transactional view handed to modules and verifier hooks. Every
// write made through it commits or rolls back with the enclosing transaction.
type Store interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	AddEvent(evt events.Event)
}

var _ Store = (*Tx)(nil)
