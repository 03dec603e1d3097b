package oracle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeClaimParamsBoundsAmountWidth(t *testing.T) {
	widest := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	raw, err := EncodeClaimParams(ClaimParams{CumulativeAmounts: []*big.Int{big.NewInt(5), widest}, Epoch: 1})
	require.NoError(t, err)
	decoded, err := DecodeClaimParams(raw)
	require.NoError(t, err)
	require.Zero(t, widest.Cmp(decoded.CumulativeAmounts[1]))

	// 2^256 no longer fits the fixed-width leaf layout.
	overflow := new(big.Int).Lsh(big.NewInt(1), 256)
	raw, err = EncodeClaimParams(ClaimParams{CumulativeAmounts: []*big.Int{big.NewInt(5), overflow}, Epoch: 1})
	require.NoError(t, err)
	_, err = DecodeClaimParams(raw)
	require.ErrorIs(t, err, ErrInvalidClaimParams)
}
