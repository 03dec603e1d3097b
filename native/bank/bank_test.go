package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "rewardhub/core/errors"
	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/storage"
)

func TestTransferMovesFunds(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	alice := [20]byte{0xA1}
	bob := [20]byte{0xB0}

	_, err := mgr.Update(func(tx *state.Tx) error {
		if err := Mint(tx, alice, "USDC", big.NewInt(100)); err != nil {
			return err
		}
		return Transfer(tx, alice, bob, "USDC", big.NewInt(40))
	})
	require.NoError(t, err)

	require.NoError(t, mgr.View(func(tx *state.Tx) error {
		a, err := Balance(tx, alice, "USDC")
		require.NoError(t, err)
		b, err := Balance(tx, bob, "USDC")
		require.NoError(t, err)
		require.Equal(t, int64(60), a.Int64())
		require.Equal(t, int64(40), b.Int64())
		return nil
	}))
}

func TestTransferInsufficientBalance(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	_, err := mgr.Update(func(tx *state.Tx) error {
		return Transfer(tx, [20]byte{1}, [20]byte{2}, "USDC", big.NewInt(1))
	})
	require.True(t, errors.Is(err, ErrInsufficientBalance))
	require.True(t, errors.Is(err, coreerrors.ErrValidation))
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	_, err := mgr.Update(func(tx *state.Tx) error {
		return Mint(tx, [20]byte{1}, "USDC", big.NewInt(0))
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestApplyGenesisOnce(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	alloc := []Allocation{{Address: [20]byte{9}, Asset: " WETH ", Amount: big.NewInt(5)}}

	for i, want := range []bool{true, false} {
		evts, err := mgr.Update(func(tx *state.Tx) error {
			applied, err := ApplyGenesis(tx, alloc)
			if err != nil {
				return err
			}
			require.Equal(t, want, applied, "round %d", i)
			return nil
		})
		require.NoError(t, err)
		if want {
			require.Len(t, evts, 1)
			supply, ok := evts[0].(events.AssetSupply)
			require.True(t, ok)
			require.Equal(t, "WETH", supply.Asset)
			require.Equal(t, int64(5), supply.Delta.Int64())
		} else {
			require.Empty(t, evts)
		}
	}
	require.NoError(t, mgr.View(func(tx *state.Tx) error {
		bal, err := Balance(tx, [20]byte{9}, "WETH")
		require.NoError(t, err)
		require.Equal(t, int64(5), bal.Int64())
		return nil
	}))
}

func TestNormalizeAsset(t *testing.T) {
	asset, err := NormalizeAsset("  USDC ")
	require.NoError(t, err)
	require.Equal(t, "USDC", asset)

	for _, bad := range []string{"", "   ", "a/b"} {
		_, err := NormalizeAsset(bad)
		require.ErrorIs(t, err, ErrInvalidAsset)
	}
}
