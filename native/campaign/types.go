package campaign

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// FeeRateScale is the fixed-point scale of protocol fee rates: 1e18 is 100%.
var FeeRateScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// MaxAssetsPerCampaign bounds the incentive list of a single campaign.
const MaxAssetsPerCampaign = 32

// ID uniquely identifies a campaign.
type ID [32]byte

// Hex returns the 0x-prefixed hex encoding of the id.
func (id ID) Hex() string { return ethcommon.Hash(id).Hex() }

// ParseID decodes a 0x-prefixed or bare hex campaign id.
func ParseID(s string) (ID, bool) {
	var id ID
	raw := ethcommon.FromHex(s)
	if len(raw) != len(id) {
		return id, false
	}
	copy(id[:], raw)
	return id, true
}

// VaultAddress is the principal that custodies every transferable asset held
// in campaign escrow and in unclaimed fee accounts.
var VaultAddress = func() [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("rewardhub/campaign/vault"))[12:])
	return addr
}()

// Campaign is the persisted record of a funded, verifier-bound distribution.
type Campaign struct {
	ID                ID
	Owner             [20]byte
	Verifier          [20]byte
	ActionParams      []byte
	StartTime         uint64
	EndTime           uint64
	FeeRate           *big.Int
	FeeClaimant       [20]byte
	Assets            []string
	CoProviderRemoval bool
	CreatedAt         uint64
}

// HasAsset reports whether asset is part of the campaign's incentive list.
func (c *Campaign) HasAsset(asset string) bool {
	if c == nil {
		return false
	}
	for _, a := range c.Assets {
		if a == asset {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so verifier hooks cannot mutate the ledger's copy.
func (c *Campaign) Clone() *Campaign {
	if c == nil {
		return nil
	}
	out := *c
	out.ActionParams = append([]byte(nil), c.ActionParams...)
	out.Assets = append([]string(nil), c.Assets...)
	out.FeeRate = cloneBigInt(c.FeeRate)
	return &out
}

// AssetBalance is the ledger's bookkeeping for one (campaign, asset) pair.
// Gross includes the fee portion; Debited covers net payouts and fees.
type AssetBalance struct {
	Gross   *big.Int
	Debited *big.Int
}

// Unspent returns Gross minus Debited.
func (b *AssetBalance) Unspent() *big.Int {
	if b == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(cloneBigInt(b.Gross), cloneBigInt(b.Debited))
}

// Incentive is the query view of one asset entry.
type Incentive struct {
	Asset   string
	Gross   *big.Int
	Debited *big.Int
	Unspent *big.Int
}

// Params holds the ledger-wide configuration.
type Params struct {
	Owner          [20]byte
	DefaultFeeRate *big.Int
	FeeClaimant    [20]byte
}

// CreateRequest describes a new campaign.
type CreateRequest struct {
	Verifier     [20]byte
	ActionParams []byte
	StartTime    uint64
	EndTime      uint64
	Assets       []string
	Amounts      []*big.Int
}

// ClaimLine is one (asset, owed) pair reported by a verifier.
type ClaimLine struct {
	Asset  string
	Amount *big.Int
}

// LineResult reports how the ledger settled a single claim line.
type LineResult struct {
	Asset string
	Owed  *big.Int
	Net   *big.Int
	Fee   *big.Int
	Err   error
}

// ClaimResult is the outcome of one claim against one campaign.
type ClaimResult struct {
	CampaignID ID
	Lines      []LineResult
	Err        error
}

// Paid returns the total net amount paid for asset.
func (r *ClaimResult) Paid(asset string) *big.Int {
	total := big.NewInt(0)
	if r == nil {
		return total
	}
	for _, line := range r.Lines {
		if line.Asset == asset && line.Err == nil && line.Net != nil {
			total.Add(total, line.Net)
		}
	}
	return total
}

// ClaimEntry is one element of a batched claim.
type ClaimEntry struct {
	CampaignID ID
	Params     []byte
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
