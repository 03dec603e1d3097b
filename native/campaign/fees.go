package campaign

import (
	"math/big"

	"github.com/holiman/uint256"

	"rewardhub/core/state"
)

var feeScale = uint256.MustFromBig(FeeRateScale)

// SplitFee divides owed into the protocol fee and the net payout using the
// campaign's snapshotted rate. The fee rounds down.
func SplitFee(owed, rate *big.Int) (fee, net *big.Int, err error) {
	if owed == nil || owed.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	if rate == nil || rate.Sign() == 0 {
		return big.NewInt(0), new(big.Int).Set(owed), nil
	}
	if owed.Sign() < 0 || rate.Sign() < 0 || rate.Cmp(FeeRateScale) > 0 {
		return nil, nil, ErrInvalidFeeRate
	}
	o, overflow := uint256.FromBig(owed)
	if overflow {
		return nil, nil, ErrFeeOverflow
	}
	r, _ := uint256.FromBig(rate)
	f, overflow := new(uint256.Int).MulDivOverflow(o, r, feeScale)
	if overflow {
		return nil, nil, ErrFeeOverflow
	}
	fee = f.ToBig()
	return fee, new(big.Int).Sub(owed, fee), nil
}

func feeBalance(store state.Store, claimant [20]byte, asset string) (*big.Int, error) {
	var stored big.Int
	ok, err := store.KVGet(feeAccountKey(claimant, asset), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &stored, nil
}

func creditFee(store state.Store, claimant [20]byte, asset string, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	current, err := feeBalance(store, claimant, asset)
	if err != nil {
		return err
	}
	return store.KVPut(feeAccountKey(claimant, asset), new(big.Int).Add(current, amount))
}

// drainFee zeroes the fee account, keeping the entry so it can be
// re-credited, and returns the prior balance.
func drainFee(store state.Store, claimant [20]byte, asset string) (*big.Int, error) {
	current, err := feeBalance(store, claimant, asset)
	if err != nil {
		return nil, err
	}
	if current.Sign() == 0 {
		return current, nil
	}
	if err := store.KVPut(feeAccountKey(claimant, asset), big.NewInt(0)); err != nil {
		return nil, err
	}
	return current, nil
}
