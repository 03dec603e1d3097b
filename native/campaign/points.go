package campaign

import (
	"fmt"
	"math/big"
	"sync"

	"rewardhub/core/state"
)

// PointsRegistry is the boundary to the points issuance registry. Points
// assets are not custodied by the vault: deposits consume the provider's
// spend cap and payouts are minted to the claimant.
type PointsRegistry interface {
	IsRegisteredAsset(asset string) bool
	SpendCap(ip [20]byte, asset string) (*big.Int, bool)
}

// StaticPoints is an in-memory PointsRegistry seeded from configuration.
type StaticPoints struct {
	mu   sync.RWMutex
	caps map[string]map[[20]byte]*big.Int
}

// NewStaticPoints returns an empty registry.
func NewStaticPoints() *StaticPoints {
	return &StaticPoints{caps: make(map[string]map[[20]byte]*big.Int)}
}

// Register declares asset as a points program.
func (s *StaticPoints) Register(asset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caps[asset]; !ok {
		s.caps[asset] = make(map[[20]byte]*big.Int)
	}
}

// SetCap sets the lifetime spend cap of ip for asset, registering the asset.
func (s *StaticPoints) SetCap(ip [20]byte, asset string, limit *big.Int) {
	s.Register(asset)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps[asset][ip] = cloneBigInt(limit)
}

func (s *StaticPoints) IsRegisteredAsset(asset string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.caps[asset]
	return ok
}

func (s *StaticPoints) SpendCap(ip [20]byte, asset string) (*big.Int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	caps, ok := s.caps[asset]
	if !ok {
		return nil, false
	}
	limit, ok := caps[ip]
	if !ok {
		return nil, false
	}
	return cloneBigInt(limit), true
}

func (e *Engine) isPoints(asset string) bool {
	return e.points != nil && e.points.IsRegisteredAsset(asset)
}

func committedPoints(store state.Store, ip [20]byte, asset string) (*big.Int, error) {
	var stored big.Int
	ok, err := store.KVGet(pointsCommittedKey(ip, asset), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &stored, nil
}

func (e *Engine) commitPoints(store state.Store, ip [20]byte, asset string, amount *big.Int) error {
	limit, ok := e.points.SpendCap(ip, asset)
	if !ok {
		return fmt.Errorf("%w: no cap for %x on %s", ErrPointsCapExceeded, ip, asset)
	}
	current, err := committedPoints(store, ip, asset)
	if err != nil {
		return err
	}
	next := new(big.Int).Add(current, amount)
	if next.Cmp(limit) > 0 {
		return fmt.Errorf("%w: committed %s + %s > cap %s", ErrPointsCapExceeded, current, amount, limit)
	}
	return store.KVPut(pointsCommittedKey(ip, asset), next)
}

// releasePoints returns refunded points to ip's spend allowance. The
// committed figure never drops below zero, which matters when the refunded
// points were deposited by a co-provider.
func (e *Engine) releasePoints(store state.Store, ip [20]byte, asset string, amount *big.Int) error {
	current, err := committedPoints(store, ip, asset)
	if err != nil {
		return err
	}
	next := new(big.Int).Sub(current, amount)
	if next.Sign() < 0 {
		next.SetInt64(0)
	}
	return store.KVPut(pointsCommittedKey(ip, asset), next)
}
