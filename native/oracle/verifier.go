package oracle

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"rewardhub/core/state"
	"rewardhub/native/campaign"
)

// DecodeActionParams parses Campaign.ActionParams. Empty params are valid.
func DecodeActionParams(raw []byte) (*ActionParams, error) {
	out := new(ActionParams)
	if len(raw) == 0 {
		return out, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActionParams, err)
	}
	return out, nil
}

// EncodeActionParams is the inverse of DecodeActionParams.
func EncodeActionParams(p ActionParams) ([]byte, error) {
	return rlp.EncodeToBytes(&p)
}

// EncodeClaimParams rlp-encodes oracle claim params.
func EncodeClaimParams(p ClaimParams) ([]byte, error) {
	return rlp.EncodeToBytes(&p)
}

// DecodeClaimParams parses the params passed to ProcessClaim.
func DecodeClaimParams(raw []byte) (*ClaimParams, error) {
	out := new(ClaimParams)
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaimParams, err)
	}
	for i, amount := range out.CumulativeAmounts {
		// Leaves encode each amount as one 32-byte word.
		if amount == nil || amount.BitLen() > 256 {
			return nil, fmt.Errorf("%w: cumulative amount %d exceeds 256 bits", ErrInvalidClaimParams, i)
		}
	}
	return out, nil
}

// OnCreate validates the campaign window and seeds one emission stream per
// asset starting at the later of StartTime and now.
func (s *Settlement) OnCreate(store state.Store, c *campaign.Campaign, assets []string, amounts []*big.Int, _ [20]byte) error {
	if _, err := DecodeActionParams(c.ActionParams); err != nil {
		return err
	}
	now := s.now()
	if c.EndTime <= c.StartTime || c.EndTime <= now {
		return fmt.Errorf("%w: start %d end %d now %d", ErrInvalidWindow, c.StartTime, c.EndTime, now)
	}
	for i, asset := range assets {
		stream := &Stream{Remaining: cloneBigInt(amounts[i]), LastUpdate: maxUint64(now, c.StartTime)}
		if err := storeStream(store, c.ID, asset, stream); err != nil {
			return err
		}
	}
	return nil
}

// OnIncentivesAdded tops up the emission streams. Additions after EndTime are
// refused because they could never be emitted.
func (s *Settlement) OnIncentivesAdded(store state.Store, c *campaign.Campaign, assets []string, amounts []*big.Int, _ []byte, _ [20]byte) error {
	now := s.now()
	if now >= c.EndTime {
		return ErrCampaignEnded
	}
	for i, asset := range assets {
		stream, err := loadStream(store, c, asset)
		if err != nil {
			return err
		}
		stream.release(now, c.EndTime)
		stream.Remaining = new(big.Int).Add(stream.Remaining, amounts[i])
		if err := storeStream(store, c.ID, asset, stream); err != nil {
			return err
		}
	}
	return nil
}

// OnIncentivesRemoved withdraws from the not-yet-emitted remainder.
func (s *Settlement) OnIncentivesRemoved(store state.Store, c *campaign.Campaign, assets []string, amounts []*big.Int, _ [20]byte) error {
	now := s.now()
	for i, asset := range assets {
		stream, err := loadStream(store, c, asset)
		if err != nil {
			return err
		}
		stream.release(now, c.EndTime)
		if amounts[i].Cmp(stream.Remaining) > 0 {
			return fmt.Errorf("%w: %s requested %s, remaining %s", ErrExceedsCeiling, asset, amounts[i], stream.Remaining)
		}
		stream.Remaining = new(big.Int).Sub(stream.Remaining, amounts[i])
		if err := storeStream(store, c.ID, asset, stream); err != nil {
			return err
		}
	}
	return nil
}

// UnspentCeiling reports the not-yet-emitted remainder of each asset. Emitted
// funds are committed to entitlements and cannot be removed.
func (s *Settlement) UnspentCeiling(store state.Store, c *campaign.Campaign, assets []string) ([]*big.Int, error) {
	now := s.now()
	out := make([]*big.Int, len(assets))
	for i, asset := range assets {
		stream, err := loadStream(store, c, asset)
		if err != nil {
			return nil, err
		}
		stream.release(now, c.EndTime)
		out[i] = stream.Remaining
	}
	return out, nil
}

func loadPaid(store state.Store, cid campaign.ID, ap [20]byte) ([]*big.Int, error) {
	var paid []*big.Int
	if _, err := store.KVGet(paidKey(cid, ap), &paid); err != nil {
		return nil, err
	}
	return paid, nil
}

// ProcessClaim verifies a cumulative entitlement proof against the resolved
// root and reports the increase over what was already paid. Claims are
// idempotent: replaying a paid proof yields zero owed.
func (s *Settlement) ProcessClaim(store state.Store, ctx campaign.ClaimContext) ([]campaign.ClaimLine, error) {
	c := ctx.Campaign
	params, err := DecodeClaimParams(ctx.Params)
	if err != nil {
		return nil, err
	}
	if len(params.CumulativeAmounts) == 0 || len(params.CumulativeAmounts) > len(c.Assets) {
		return nil, fmt.Errorf("%w: %d amounts for %d assets", ErrInvalidClaimParams, len(params.CumulativeAmounts), len(c.Assets))
	}
	root := new(Root)
	ok, err := store.KVGet(rootKey(c.ID), root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoResolvedRoot
	}
	if params.Epoch != root.Epoch {
		return nil, fmt.Errorf("%w: proof epoch %d, root epoch %d", ErrStaleEpoch, params.Epoch, root.Epoch)
	}
	assets := c.Assets[:len(params.CumulativeAmounts)]
	leaf := LeafHash(c.ID, ctx.AP, params.Epoch, assets, params.CumulativeAmounts)
	if !VerifyProof(root.Root, leaf, params.Proof) {
		return nil, ErrInvalidProof
	}

	paid, err := loadPaid(store, c.ID, ctx.AP)
	if err != nil {
		return nil, err
	}
	for len(paid) < len(assets) {
		paid = append(paid, big.NewInt(0))
	}
	lines := make([]campaign.ClaimLine, 0, len(assets))
	for i, asset := range assets {
		if ctx.Skipped(asset) {
			continue
		}
		cumulative := params.CumulativeAmounts[i]
		if cumulative.Cmp(paid[i]) < 0 {
			return nil, fmt.Errorf("%w: %s cumulative %s, paid %s", ErrCumulativeRegression, asset, cumulative, paid[i])
		}
		owed := new(big.Int).Sub(cumulative, paid[i])
		paid[i] = new(big.Int).Set(cumulative)
		lines = append(lines, campaign.ClaimLine{Asset: asset, Amount: owed})
	}
	if err := store.KVPut(paidKey(c.ID, ctx.AP), paid); err != nil {
		return nil, err
	}
	return lines, nil
}
