package events

import (
	"math/big"
	"strings"

	"rewardhub/core/types"
	"rewardhub/crypto"
)

const (
	// TypeAssetSupply is emitted whenever new units of an asset enter the
	// ledger.
	TypeAssetSupply = "bank.supply"

	// SupplyReasonGenesis identifies balances seeded from configuration.
	SupplyReasonGenesis = "genesis"
)

// AssetSupply captures a supply delta credited to a holder.
type AssetSupply struct {
	Asset  string
	Holder [20]byte
	Delta  *big.Int
	Reason string
}

func (AssetSupply) EventType() string { return TypeAssetSupply }

// Event renders the structured supply change event for downstream consumers.
func (e AssetSupply) Event() *types.Event {
	attrs := map[string]string{}
	asset := strings.TrimSpace(e.Asset)
	if asset == "" {
		asset = "UNKNOWN"
	}
	attrs["asset"] = asset
	attrs["holder"] = crypto.Address(e.Holder).String()

	delta := big.NewInt(0)
	if e.Delta != nil {
		delta = new(big.Int).Set(e.Delta)
	}
	attrs["delta"] = delta.String()

	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeAssetSupply, Attributes: attrs}
}
