package campaign

import (
	"math/big"
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"rewardhub/core/types"
)

const (
	EventTypeCampaignCreated       = "campaign.created"
	EventTypeIncentivesAdded       = "campaign.incentives_added"
	EventTypeIncentivesRemoved     = "campaign.incentives_removed"
	EventTypeClaimPaid             = "campaign.claim.paid"
	EventTypeClaimLineRejected     = "campaign.claim.line_rejected"
	EventTypeFeesClaimed           = "campaign.fees.claimed"
	EventTypeCoProviderAdded       = "campaign.coprovider.added"
	EventTypeCoProviderRemoved     = "campaign.coprovider.removed"
	EventTypeCoProviderRemovalSet  = "campaign.coprovider.removal_policy"
	EventTypeDefaultFeeRateUpdated = "campaign.params.fee_rate"
	EventTypeFeeClaimantUpdated    = "campaign.params.fee_claimant"
)

type campaignEvent struct {
	evt *types.Event
}

func (e campaignEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e campaignEvent) Event() *types.Event { return e.evt }

func newCreatedEvent(c *Campaign, amounts []*big.Int) campaignEvent {
	attrs := campaignAttrs(c.ID)
	attrs["owner"] = addrHex(c.Owner)
	attrs["verifier"] = addrHex(c.Verifier)
	attrs["assets"] = strings.Join(c.Assets, ",")
	attrs["amounts"] = joinAmounts(amounts)
	attrs["feeRate"] = c.FeeRate.String()
	attrs["feeClaimant"] = addrHex(c.FeeClaimant)
	attrs["startTime"] = strconv.FormatUint(c.StartTime, 10)
	attrs["endTime"] = strconv.FormatUint(c.EndTime, 10)
	return campaignEvent{evt: &types.Event{Type: EventTypeCampaignCreated, Attributes: attrs}}
}

func newIncentivesEvent(eventType string, id ID, caller [20]byte, assets []string, amounts []*big.Int) campaignEvent {
	attrs := campaignAttrs(id)
	attrs["caller"] = addrHex(caller)
	attrs["assets"] = strings.Join(assets, ",")
	attrs["amounts"] = joinAmounts(amounts)
	return campaignEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

func newClaimPaidEvent(id ID, ap [20]byte, line LineResult) campaignEvent {
	attrs := campaignAttrs(id)
	attrs["ap"] = addrHex(ap)
	attrs["asset"] = line.Asset
	attrs["owed"] = line.Owed.String()
	attrs["net"] = line.Net.String()
	attrs["fee"] = line.Fee.String()
	return campaignEvent{evt: &types.Event{Type: EventTypeClaimPaid, Attributes: attrs}}
}

func newLineRejectedEvent(id ID, ap [20]byte, asset string, owed, available *big.Int) campaignEvent {
	attrs := campaignAttrs(id)
	attrs["ap"] = addrHex(ap)
	attrs["asset"] = asset
	attrs["owed"] = owed.String()
	attrs["unspent"] = available.String()
	return campaignEvent{evt: &types.Event{Type: EventTypeClaimLineRejected, Attributes: attrs}}
}

func newFeesClaimedEvent(claimant, to [20]byte, asset string, amount *big.Int) campaignEvent {
	return campaignEvent{evt: &types.Event{Type: EventTypeFeesClaimed, Attributes: map[string]string{
		"claimant": addrHex(claimant),
		"to":       addrHex(to),
		"asset":    asset,
		"amount":   amount.String(),
	}}}
}

func newCoProviderEvent(eventType string, id ID, principal [20]byte) campaignEvent {
	attrs := campaignAttrs(id)
	attrs["principal"] = addrHex(principal)
	return campaignEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

func newRemovalPolicyEvent(id ID, allowed bool) campaignEvent {
	attrs := campaignAttrs(id)
	attrs["coProviderRemoval"] = strconv.FormatBool(allowed)
	return campaignEvent{evt: &types.Event{Type: EventTypeCoProviderRemovalSet, Attributes: attrs}}
}

func newParamsEvent(eventType, key, value string) campaignEvent {
	return campaignEvent{evt: &types.Event{Type: eventType, Attributes: map[string]string{key: value}}}
}

func campaignAttrs(id ID) map[string]string {
	return map[string]string{"campaignId": id.Hex()}
}

func addrHex(addr [20]byte) string {
	return strings.ToLower(ethcommon.Address(addr).Hex())
}

func joinAmounts(amounts []*big.Int) string {
	parts := make([]string, len(amounts))
	for i, amt := range amounts {
		parts[i] = cloneBigInt(amt).String()
	}
	return strings.Join(parts, ",")
}
