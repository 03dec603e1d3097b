package campaign

import (
	"math/big"
	"sync"

	"rewardhub/core/state"
)

// ClaimContext carries the inputs of a ProcessClaim call. Skip lists assets
// the ledger has already refused for this claim; the verifier must neither
// report nor record payments for them.
type ClaimContext struct {
	Campaign *Campaign
	AP       [20]byte
	Params   []byte
	Skip     map[string]bool
}

// Skipped reports whether asset was excluded by the ledger.
func (c ClaimContext) Skipped(asset string) bool {
	return c.Skip != nil && c.Skip[asset]
}

// ActionVerifier is the capability set every verification module implements.
// A hook rejects by returning an error. Hooks receive the caller's
// transactional store, so a rejection discards the verifier's own writes
// together with the ledger's.
type ActionVerifier interface {
	Address() [20]byte
	OnCreate(store state.Store, c *Campaign, assets []string, amounts []*big.Int, caller [20]byte) error
	OnIncentivesAdded(store state.Store, c *Campaign, assets []string, amounts []*big.Int, extraParams []byte, caller [20]byte) error
	OnIncentivesRemoved(store state.Store, c *Campaign, assets []string, amounts []*big.Int, caller [20]byte) error
	ProcessClaim(store state.Store, ctx ClaimContext) ([]ClaimLine, error)
	UnspentCeiling(store state.Store, c *Campaign, assets []string) ([]*big.Int, error)
}

type verifierRegistry struct {
	mu        sync.RWMutex
	verifiers map[[20]byte]ActionVerifier
}

func (r *verifierRegistry) register(v ActionVerifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verifiers == nil {
		r.verifiers = make(map[[20]byte]ActionVerifier)
	}
	r.verifiers[v.Address()] = v
}

func (r *verifierRegistry) lookup(addr [20]byte) (ActionVerifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verifiers[addr]
	return v, ok
}
