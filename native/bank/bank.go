// Package bank keeps per-(principal, asset) balances inside the state store.
// Balances are plain integers; assets are opaque identifiers.
package bank

import (
	"fmt"
	"math/big"
	"strings"

	coreerrors "rewardhub/core/errors"
	"rewardhub/core/events"
	"rewardhub/core/state"
)

const maxAssetLength = 64

var (
	ErrInvalidAsset        = coreerrors.Wrap(coreerrors.ErrValidation, "bank: invalid asset identifier")
	ErrInvalidAmount       = coreerrors.Wrap(coreerrors.ErrValidation, "bank: amount must be positive")
	ErrInsufficientBalance = coreerrors.Wrap(coreerrors.ErrValidation, "bank: insufficient balance")
)

var (
	balancePrefix = []byte("bank/balance/")
	genesisKey    = []byte("bank/genesis")
)

func balanceKey(addr [20]byte, asset string) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(addr)+1+len(asset))
	buf = append(buf, balancePrefix...)
	buf = append(buf, addr[:]...)
	buf = append(buf, '/')
	buf = append(buf, asset...)
	return buf
}

// NormalizeAsset trims whitespace and validates the identifier.
func NormalizeAsset(asset string) (string, error) {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" || len(trimmed) > maxAssetLength || strings.ContainsRune(trimmed, '/') {
		return "", fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
	}
	return trimmed, nil
}

// Balance returns the balance of addr in asset. Missing entries read as zero.
func Balance(store state.Store, addr [20]byte, asset string) (*big.Int, error) {
	var stored big.Int
	ok, err := store.KVGet(balanceKey(addr, asset), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &stored, nil
}

func setBalance(store state.Store, addr [20]byte, asset string, amount *big.Int) error {
	if amount.Sign() == 0 {
		return store.KVDelete(balanceKey(addr, asset))
	}
	return store.KVPut(balanceKey(addr, asset), amount)
}

// Transfer moves amount of asset from one principal to another.
func Transfer(store state.Store, from, to [20]byte, asset string, amount *big.Int) error {
	if err := Burn(store, from, asset, amount); err != nil {
		return err
	}
	return Mint(store, to, asset, amount)
}

// Mint credits amount of asset to addr.
func Mint(store state.Store, to [20]byte, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	current, err := Balance(store, to, asset)
	if err != nil {
		return err
	}
	return setBalance(store, to, asset, new(big.Int).Add(current, amount))
}

// Burn debits amount of asset from addr, failing when the balance is short.
func Burn(store state.Store, from [20]byte, asset string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	current, err := Balance(store, from, asset)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s %s, needs %s", ErrInsufficientBalance, fmt.Sprintf("%x", from[:]), current, asset, amount)
	}
	return setBalance(store, from, asset, new(big.Int).Sub(current, amount))
}

// Allocation is a genesis balance.
type Allocation struct {
	Address [20]byte
	Asset   string
	Amount  *big.Int
}

// ApplyGenesis mints the supplied allocations exactly once per store and
// records a supply event for each. It reports whether the allocations were
// applied by this call.
func ApplyGenesis(store state.Store, allocations []Allocation) (bool, error) {
	var done bool
	ok, err := store.KVGet(genesisKey, &done)
	if err != nil {
		return false, err
	}
	if ok && done {
		return false, nil
	}
	for _, alloc := range allocations {
		asset, err := NormalizeAsset(alloc.Asset)
		if err != nil {
			return false, err
		}
		if err := Mint(store, alloc.Address, asset, alloc.Amount); err != nil {
			return false, fmt.Errorf("genesis allocation %x/%s: %w", alloc.Address, asset, err)
		}
		store.AddEvent(events.AssetSupply{
			Asset:  asset,
			Holder: alloc.Address,
			Delta:  new(big.Int).Set(alloc.Amount),
			Reason: events.SupplyReasonGenesis,
		})
	}
	return true, store.KVPut(genesisKey, true)
}
