package oracle

import (
	"strconv"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"rewardhub/core/types"
)

const (
	EventTypeAssertionMade     = "oracle.assertion.made"
	EventTypeAssertionResolved = "oracle.assertion.resolved"
	EventTypeAssertionRemoved  = "oracle.assertion.removed"
	EventTypeAssertionDisputed = "oracle.assertion.disputed"
	EventTypeRootFinalized     = "oracle.root.finalized"
	EventTypeAsserterUpdated   = "oracle.asserter.updated"
	EventTypeParamsUpdated     = "oracle.params.updated"
)

type oracleEvent struct {
	evt *types.Event
}

func (e oracleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e oracleEvent) Event() *types.Event { return e.evt }

func assertionAttrs(a *Assertion) map[string]string {
	return map[string]string{
		"assertionId": ethcommon.Hash(a.ID).Hex(),
		"campaignId":  a.CampaignID.Hex(),
		"root":        ethcommon.Hash(a.MerkleRoot).Hex(),
		"asserter":    addrHex(a.Asserter),
	}
}

func newAssertionMadeEvent(a *Assertion) oracleEvent {
	attrs := assertionAttrs(a)
	attrs["bond"] = a.Bond.String()
	attrs["currency"] = a.Currency
	return oracleEvent{evt: &types.Event{Type: EventTypeAssertionMade, Attributes: attrs}}
}

func newAssertionResolvedEvent(a *Assertion) oracleEvent {
	return oracleEvent{evt: &types.Event{Type: EventTypeAssertionResolved, Attributes: assertionAttrs(a)}}
}

func newAssertionRemovedEvent(a *Assertion) oracleEvent {
	return oracleEvent{evt: &types.Event{Type: EventTypeAssertionRemoved, Attributes: assertionAttrs(a)}}
}

func newAssertionDisputedEvent(a *Assertion) oracleEvent {
	attrs := assertionAttrs(a)
	attrs["disputedAt"] = strconv.FormatUint(a.DisputedAt, 10)
	return oracleEvent{evt: &types.Event{Type: EventTypeAssertionDisputed, Attributes: attrs}}
}

func newRootFinalizedEvent(a *Assertion, r *Root) oracleEvent {
	attrs := assertionAttrs(a)
	attrs["epoch"] = strconv.FormatUint(r.Epoch, 10)
	return oracleEvent{evt: &types.Event{Type: EventTypeRootFinalized, Attributes: attrs}}
}

func newAsserterEvent(addr [20]byte, allowed bool) oracleEvent {
	return oracleEvent{evt: &types.Event{Type: EventTypeAsserterUpdated, Attributes: map[string]string{
		"asserter": addrHex(addr),
		"allowed":  strconv.FormatBool(allowed),
	}}}
}

func newParamsEvent(p *Params) oracleEvent {
	return oracleEvent{evt: &types.Event{Type: EventTypeParamsUpdated, Attributes: map[string]string{
		"bondCurrency": p.BondCurrency,
		"liveness":     strconv.FormatUint(p.Liveness, 10),
	}}}
}

func addrHex(addr [20]byte) string {
	return strings.ToLower(ethcommon.Address(addr).Hex())
}
