package campaign

import (
	"fmt"
	"math/big"

	"rewardhub/core/state"
	"rewardhub/native/bank"
)

func loadAsset(store state.Store, id ID, asset string) (*AssetBalance, bool, error) {
	bal := new(AssetBalance)
	ok, err := store.KVGet(assetKey(id, asset), bal)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return &AssetBalance{Gross: big.NewInt(0), Debited: big.NewInt(0)}, false, nil
	}
	bal.Gross = cloneBigInt(bal.Gross)
	bal.Debited = cloneBigInt(bal.Debited)
	return bal, true, nil
}

func storeAsset(store state.Store, id ID, asset string, bal *AssetBalance) error {
	if bal.Debited.Cmp(bal.Gross) > 0 {
		// Unreachable unless a caller skipped the unspent checks.
		return fmt.Errorf("%w: debited %s exceeds gross %s for %s", ErrExceedsUnspent, bal.Debited, bal.Gross, asset)
	}
	return store.KVPut(assetKey(id, asset), bal)
}

// deposit moves amount from the depositor into escrow and grows Gross.
func (e *Engine) deposit(store state.Store, id ID, depositor [20]byte, asset string, amount *big.Int) error {
	if e.isPoints(asset) {
		if err := e.commitPoints(store, depositor, asset, amount); err != nil {
			return err
		}
	} else if err := bank.Transfer(store, depositor, VaultAddress, asset, amount); err != nil {
		return err
	}
	bal, _, err := loadAsset(store, id, asset)
	if err != nil {
		return err
	}
	bal.Gross.Add(bal.Gross, amount)
	return storeAsset(store, id, asset, bal)
}

// unspent reports the ledger-tracked remainder for (campaign, asset). Assets
// outside the campaign have nothing unspent.
func unspent(store state.Store, id ID, asset string) (*big.Int, error) {
	bal, _, err := loadAsset(store, id, asset)
	if err != nil {
		return nil, err
	}
	return bal.Unspent(), nil
}

// debit records a claim payout of owed against the escrow entry. The caller
// has already checked owed against unspent.
func debit(store state.Store, id ID, asset string, owed *big.Int) error {
	bal, _, err := loadAsset(store, id, asset)
	if err != nil {
		return err
	}
	if owed.Cmp(bal.Unspent()) > 0 {
		return ErrExceedsUnspent
	}
	bal.Debited.Add(bal.Debited, owed)
	return storeAsset(store, id, asset, bal)
}

// refund shrinks Gross by amount and returns the funds to recipient.
func (e *Engine) refund(store state.Store, id ID, recipient [20]byte, asset string, amount *big.Int) error {
	bal, _, err := loadAsset(store, id, asset)
	if err != nil {
		return err
	}
	if amount.Cmp(bal.Unspent()) > 0 {
		return fmt.Errorf("%w: %s requested, %s unspent", ErrExceedsUnspent, amount, bal.Unspent())
	}
	bal.Gross.Sub(bal.Gross, amount)
	if err := storeAsset(store, id, asset, bal); err != nil {
		return err
	}
	if e.isPoints(asset) {
		return e.releasePoints(store, recipient, asset, amount)
	}
	return bank.Transfer(store, VaultAddress, recipient, asset, amount)
}

// payout delivers amount of asset out of escrow to recipient.
func (e *Engine) payout(store state.Store, recipient [20]byte, asset string, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if e.isPoints(asset) {
		return bank.Mint(store, recipient, asset, amount)
	}
	return bank.Transfer(store, VaultAddress, recipient, asset, amount)
}
