package oracle

import (
	"math/big"

	"rewardhub/native/campaign"
)

// AssertionID is the opaque identifier issued by the oracle host.
type AssertionID [32]byte

// Assertion is a staked claim that MerkleRoot is the correct entitlement
// snapshot for CampaignID. Resolved is terminal.
type Assertion struct {
	ID         AssertionID
	CampaignID campaign.ID
	MerkleRoot [32]byte
	Asserter   [20]byte
	Bond       *big.Int
	Currency   string
	AssertedAt uint64
	Resolved   bool
	ResolvedAt uint64
	DisputedAt uint64
}

// Pending tracks the single live assertion of a campaign. Submitted is false
// while the bond is reserved and the host has not yet issued an id. A non-zero
// TxHash marks a submission the host sent but could not confirm; it is held
// until Reconcile learns its outcome.
type Pending struct {
	AssertionID AssertionID
	Asserter    [20]byte
	Bond        *big.Int
	Currency    string
	ReservedAt  uint64
	Submitted   bool
	MerkleRoot  [32]byte
	TxHash      [32]byte
}

// Unconfirmed reports whether the reservation waits on a sent submission.
func (p *Pending) Unconfirmed() bool {
	return p != nil && !p.Submitted && p.TxHash != [32]byte{}
}

// Root is the canonical claimable root of a campaign. Epoch increases by one
// with every truthful resolution, which invalidates proofs for older roots.
type Root struct {
	Root        [32]byte
	Epoch       uint64
	AssertionID AssertionID
	ResolvedAt  uint64
}

// Stream is the linear emission schedule of one campaign asset. Remaining is
// the amount not yet emitted as of LastUpdate.
type Stream struct {
	Remaining  *big.Int
	LastUpdate uint64
}

// Params holds the owner-configurable settlement parameters.
type Params struct {
	Owner        [20]byte
	BondCurrency string
	Liveness     uint64
}

// ActionParams is the rlp payload carried in Campaign.ActionParams.
type ActionParams struct {
	Description string
}

// ClaimParams is the rlp payload of an oracle claim. CumulativeAmounts is
// aligned with the campaign's asset order and may cover a prefix of it.
type ClaimParams struct {
	CumulativeAmounts []*big.Int
	Epoch             uint64
	Proof             [][32]byte
}
