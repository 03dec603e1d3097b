package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	coreerrors "rewardhub/core/errors"
	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/native/bank"
	"rewardhub/native/campaign"
	"rewardhub/storage"
)

var (
	verifierAddr = addr(0x0C)
	hostAddr     = addr(0x0B)
	ledgerOwner  = addr(0xAD)
	oracleOwner  = addr(0xAE)
	feeClaimant  = addr(0xFE)
	provider     = addr(0x01)
	asserter     = addr(0x02)
	stranger     = addr(0x03)
	apOne        = addr(0x10)
	apTwo        = addr(0x11)
)

func addr(b byte) [20]byte {
	var out [20]byte
	for i := range out {
		out[i] = b
	}
	return out
}

type harness struct {
	mgr        *state.Manager
	ledger     *campaign.Engine
	settlement *Settlement
	host       *LocalHost
	emitter    *events.Recorder
	now        int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: 1_000}
	clock := func() int64 { return h.now }

	h.mgr = state.NewManager(storage.NewMemDB())
	h.ledger = campaign.NewEngine(h.mgr)
	h.ledger.SetNowFunc(clock)
	h.host = NewLocalHost(hostAddr, big.NewInt(25))
	h.host.SetNowFunc(clock)
	h.settlement = NewSettlement(h.mgr, verifierAddr, h.host)
	h.settlement.SetNowFunc(clock)
	h.host.SetCallbacks(h.settlement)
	h.emitter = &events.Recorder{}
	h.settlement.SetEmitter(h.emitter)
	h.ledger.SetEmitter(h.emitter)
	h.ledger.RegisterVerifier(h.settlement)

	if err := h.ledger.InitParams(campaign.Params{Owner: ledgerOwner, DefaultFeeRate: big.NewInt(1e17), FeeClaimant: feeClaimant}); err != nil {
		t.Fatalf("ledger params: %v", err)
	}
	if err := h.settlement.InitParams(Params{Owner: oracleOwner, BondCurrency: "BOND", Liveness: 7_200}); err != nil {
		t.Fatalf("oracle params: %v", err)
	}
	_, err := h.mgr.Update(func(tx *state.Tx) error {
		for _, who := range [][20]byte{provider, asserter, stranger} {
			for _, asset := range []string{"X", "Y", "BOND"} {
				if err := bank.Mint(tx, who, asset, big.NewInt(1_000_000)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	return h
}

func (h *harness) balance(t *testing.T, who [20]byte, asset string) int64 {
	t.Helper()
	var out *big.Int
	if err := h.mgr.View(func(tx *state.Tx) error {
		var err error
		out, err = bank.Balance(tx, who, asset)
		return err
	}); err != nil {
		t.Fatalf("balance: %v", err)
	}
	return out.Int64()
}

func (h *harness) createCampaign(t *testing.T, amounts ...int64) campaign.ID {
	t.Helper()
	params, err := EncodeActionParams(ActionParams{Description: "swap volume rewards"})
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	assets := []string{"X", "Y"}[:len(amounts)]
	values := make([]*big.Int, len(amounts))
	for i, v := range amounts {
		values[i] = big.NewInt(v)
	}
	id, err := h.ledger.CreateCampaign(provider, campaign.CreateRequest{
		Verifier:     verifierAddr,
		ActionParams: params,
		StartTime:    1_000,
		EndTime:      2_000,
		Assets:       assets,
		Amounts:      values,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return id
}

type entitlement struct {
	ap      [20]byte
	amounts []*big.Int
}

// publish builds the entitlement tree for the next epoch, asserts it and lets
// it resolve truthfully.
func (h *harness) publish(t *testing.T, cid campaign.ID, entries []entitlement) (*Tree, uint64) {
	t.Helper()
	epoch := uint64(1)
	if root, ok, err := h.settlement.Root(cid); err != nil {
		t.Fatalf("root: %v", err)
	} else if ok {
		epoch = root.Epoch + 1
	}
	c, err := h.ledger.Campaign(cid)
	if err != nil {
		t.Fatalf("campaign: %v", err)
	}
	leaves := make([][32]byte, len(entries))
	for i, e := range entries {
		leaves[i] = LeafHash(cid, e.ap, epoch, c.Assets[:len(e.amounts)], e.amounts)
	}
	tree := BuildTree(leaves)
	id, err := h.settlement.AssertRoot(context.Background(), provider, cid, tree.Root(), big.NewInt(100))
	if err != nil {
		t.Fatalf("assert root: %v", err)
	}
	h.now += 7_200
	if err := h.host.Settle(id); err != nil {
		t.Fatalf("settle: %v", err)
	}
	return tree, epoch
}

func claimParams(t *testing.T, tree *Tree, index int, epoch uint64, amounts ...int64) []byte {
	t.Helper()
	proof, ok := tree.Proof(index)
	if !ok {
		t.Fatalf("no proof for leaf %d", index)
	}
	values := make([]*big.Int, len(amounts))
	for i, v := range amounts {
		values[i] = big.NewInt(v)
	}
	raw, err := EncodeClaimParams(ClaimParams{CumulativeAmounts: values, Epoch: epoch, Proof: proof})
	if err != nil {
		t.Fatalf("encode claim: %v", err)
	}
	return raw
}

func TestFalseResolutionRemovesAssertionAndReopensCampaign(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)

	id, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(100))
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	if got := h.balance(t, hostAddr, "BOND"); got != 100 {
		t.Fatalf("expected bond escrowed with host, got %d", got)
	}
	if err := h.host.Dispute(id); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := h.host.Adjudicate(id, false); err != nil {
		t.Fatalf("adjudicate: %v", err)
	}
	if err := h.host.Settle(id); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if _, err := h.settlement.Assertion(id); !errors.Is(err, ErrAssertionRemoved) {
		t.Fatalf("expected removed assertion, got %v", err)
	}
	if _, ok, _ := h.settlement.Pending(cid); ok {
		t.Fatalf("pending pointer not cleared")
	}
	if got := h.balance(t, hostAddr, "BOND"); got != 100 {
		t.Fatalf("false assertion bond should stay with host, got %d", got)
	}
	if err := h.settlement.OnResolved(hostAddr, id, true); !errors.Is(err, coreerrors.ErrStateConflict) {
		t.Fatalf("expected state conflict on replay, got %v", err)
	}
	if _, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{2}, big.NewInt(100)); err != nil {
		t.Fatalf("fresh assertion after removal: %v", err)
	}
}

func TestSecondResolutionConflicts(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	id, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(100))
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	if err := h.settlement.OnResolved(hostAddr, id, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, truthful := range []bool{true, false} {
		if err := h.settlement.OnResolved(hostAddr, id, truthful); !errors.Is(err, ErrAlreadyResolved) || !errors.Is(err, coreerrors.ErrStateConflict) {
			t.Fatalf("expected conflict for truthful=%v, got %v", truthful, err)
		}
	}
	a, err := h.settlement.Assertion(id)
	if err != nil || !a.Resolved {
		t.Fatalf("assertion should stay resolved: %+v err=%v", a, err)
	}
	root, ok, err := h.settlement.Root(cid)
	if err != nil || !ok || root.Epoch != 1 || root.Root != ([32]byte{1}) {
		t.Fatalf("unexpected root %+v ok=%v err=%v", root, ok, err)
	}
	if got := h.balance(t, provider, "BOND"); got != 1_000_000 {
		t.Fatalf("truthful bond should be returned, got %d", got)
	}
}

func TestUnauthorizedAsserterMovesNoBond(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)

	_, err := h.settlement.AssertRoot(context.Background(), stranger, cid, [32]byte{1}, big.NewInt(100))
	if !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if got := h.balance(t, stranger, "BOND"); got != 1_000_000 {
		t.Fatalf("bond moved: %d", got)
	}
	if got := h.balance(t, hostAddr, "BOND"); got != 0 {
		t.Fatalf("host received bond: %d", got)
	}

	if err := h.settlement.AddAsserter(stranger, asserter); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	if err := h.settlement.AddAsserter(oracleOwner, asserter); err != nil {
		t.Fatalf("add asserter: %v", err)
	}
	if _, err := h.settlement.AssertRoot(context.Background(), asserter, cid, [32]byte{1}, big.NewInt(100)); err != nil {
		t.Fatalf("whitelisted assert: %v", err)
	}
}

func TestAssertRootRejectsForeignVerifierCampaign(t *testing.T) {
	h := newHarness(t)
	other := NewSettlement(h.mgr, addr(0x0D), h.host)
	other.SetNowFunc(func() int64 { return h.now })
	h.ledger.RegisterVerifier(other)
	cid, err := h.ledger.CreateCampaign(provider, campaign.CreateRequest{
		Verifier:  other.Address(),
		StartTime: 1_000,
		EndTime:   2_000,
		Assets:    []string{"X"},
		Amounts:   []*big.Int{big.NewInt(10)},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(1))
	if !errors.Is(err, ErrVerifierMismatch) || !errors.Is(err, coreerrors.ErrStateConflict) {
		t.Fatalf("expected verifier mismatch, got %v", err)
	}
}

func TestSingleLiveAssertionPerCampaign(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	if _, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(1)); err != nil {
		t.Fatalf("assert: %v", err)
	}
	_, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{2}, big.NewInt(1))
	if !errors.Is(err, ErrAssertionPending) {
		t.Fatalf("expected pending conflict, got %v", err)
	}
}

func TestHostOutageLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	h.host.SetOffline(true)

	_, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(100))
	if !errors.Is(err, ErrHostUnavailable) || !errors.Is(err, coreerrors.ErrExternalDependency) {
		t.Fatalf("expected external dependency failure, got %v", err)
	}
	if got := h.balance(t, provider, "BOND"); got != 1_000_000 {
		t.Fatalf("bond not released: %d", got)
	}
	if _, ok, _ := h.settlement.Pending(cid); ok {
		t.Fatalf("reservation left behind")
	}

	h.host.SetOffline(false)
	if _, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(100)); err != nil {
		t.Fatalf("assert after recovery: %v", err)
	}
}

func TestZeroBondUsesHostMinimum(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	id, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, nil)
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	a, err := h.settlement.Assertion(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Bond.Int64() != 25 || a.Currency != "BOND" {
		t.Fatalf("expected minimum bond 25 BOND, got %s %s", a.Bond, a.Currency)
	}
}

func TestCallbacksRequireHostIdentity(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	id, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(1))
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	if err := h.settlement.OnResolved(provider, id, true); !errors.Is(err, ErrUnauthorizedCallback) {
		t.Fatalf("expected unauthorized callback, got %v", err)
	}
	if err := h.settlement.OnDisputed(provider, id); !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("expected unauthorized dispute, got %v", err)
	}
	if err := h.settlement.OnResolved(hostAddr, AssertionID{0x42}, true); !errors.Is(err, ErrAssertionNotFound) {
		t.Fatalf("expected unknown assertion, got %v", err)
	}
}

func TestDisputeIsInformational(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	id, err := h.settlement.AssertRoot(context.Background(), provider, cid, [32]byte{1}, big.NewInt(1))
	if err != nil {
		t.Fatalf("assert: %v", err)
	}
	h.now = 1_500
	if err := h.settlement.OnDisputed(hostAddr, id); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := h.settlement.OnDisputed(hostAddr, id); err != nil {
		t.Fatalf("repeated dispute should be a no-op: %v", err)
	}
	a, err := h.settlement.Assertion(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if a.Resolved || a.DisputedAt != 1_500 {
		t.Fatalf("unexpected assertion state %+v", a)
	}
	if _, ok, _ := h.settlement.Pending(cid); !ok {
		t.Fatalf("dispute must not clear the live assertion")
	}
	if h.emitter.Count(EventTypeAssertionDisputed) != 1 {
		t.Fatalf("expected a single dispute event")
	}
}

func TestClaimIsCumulativeAndIdempotent(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000, 500)
	tree, epoch := h.publish(t, cid, []entitlement{
		{ap: apOne, amounts: []*big.Int{big.NewInt(200), big.NewInt(50)}},
		{ap: apTwo, amounts: []*big.Int{big.NewInt(100)}},
	})

	params := claimParams(t, tree, 0, epoch, 200, 50)
	res, err := h.ledger.Claim(apOne, cid, params)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Paid("X").Int64() != 180 || res.Paid("Y").Int64() != 45 {
		t.Fatalf("unexpected payout X=%s Y=%s", res.Paid("X"), res.Paid("Y"))
	}

	res, err = h.ledger.Claim(apOne, cid, params)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	for _, line := range res.Lines {
		if line.Owed.Sign() != 0 || line.Err != nil {
			t.Fatalf("replay must owe nothing, got %+v", line)
		}
	}
	if got := h.balance(t, apOne, "X"); got != 180 {
		t.Fatalf("double payment: %d", got)
	}

	if _, err := h.ledger.Claim(apTwo, cid, claimParams(t, tree, 0, epoch, 200, 50)); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("proof for another AP must fail, got %v", err)
	}
	res, err = h.ledger.Claim(apTwo, cid, claimParams(t, tree, 1, epoch, 100))
	if err != nil || res.Paid("X").Int64() != 90 {
		t.Fatalf("second AP claim: %+v err=%v", res, err)
	}

	next, nextEpoch := h.publish(t, cid, []entitlement{
		{ap: apOne, amounts: []*big.Int{big.NewInt(300), big.NewInt(50)}},
	})
	if _, err := h.ledger.Claim(apOne, cid, params); !errors.Is(err, ErrStaleEpoch) {
		t.Fatalf("old epoch proof must fail, got %v", err)
	}
	res, err = h.ledger.Claim(apOne, cid, claimParams(t, next, 0, nextEpoch, 300, 50))
	if err != nil || res.Paid("X").Int64() != 90 {
		t.Fatalf("cumulative top-up: %+v err=%v", res, err)
	}
	paid, err := h.settlement.AlreadyPaid(cid, apOne)
	if err != nil || paid[0].Int64() != 300 || paid[1].Int64() != 50 {
		t.Fatalf("unexpected already paid %v err=%v", paid, err)
	}
}

func TestClaimWithoutResolvedRoot(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	raw, _ := EncodeClaimParams(ClaimParams{CumulativeAmounts: []*big.Int{big.NewInt(1)}, Epoch: 1})
	if _, err := h.ledger.Claim(apOne, cid, raw); !errors.Is(err, ErrNoResolvedRoot) {
		t.Fatalf("expected no root, got %v", err)
	}
	if _, err := h.ledger.Claim(apOne, cid, []byte{0xFF, 0x00}); !errors.Is(err, ErrInvalidClaimParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func TestCumulativeRegressionRejected(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)
	tree, epoch := h.publish(t, cid, []entitlement{{ap: apOne, amounts: []*big.Int{big.NewInt(300)}}})
	if _, err := h.ledger.Claim(apOne, cid, claimParams(t, tree, 0, epoch, 300)); err != nil {
		t.Fatalf("claim: %v", err)
	}
	lower, lowerEpoch := h.publish(t, cid, []entitlement{{ap: apOne, amounts: []*big.Int{big.NewInt(100)}}})
	if _, err := h.ledger.Claim(apOne, cid, claimParams(t, lower, 0, lowerEpoch, 100)); !errors.Is(err, ErrCumulativeRegression) {
		t.Fatalf("expected regression error, got %v", err)
	}
}

func TestOverstatedRootCappedByLedger(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 100)
	tree, epoch := h.publish(t, cid, []entitlement{{ap: apOne, amounts: []*big.Int{big.NewInt(150)}}})

	res, err := h.ledger.Claim(apOne, cid, claimParams(t, tree, 0, epoch, 150))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(res.Lines) != 1 || !errors.Is(res.Lines[0].Err, coreerrors.ErrEconomicInvariant) {
		t.Fatalf("expected economic invariant rejection, got %+v", res.Lines)
	}
	paid, err := h.settlement.AlreadyPaid(cid, apOne)
	if err != nil {
		t.Fatalf("already paid: %v", err)
	}
	if len(paid) != 0 && paid[0].Sign() != 0 {
		t.Fatalf("verifier recorded an unpaid line: %v", paid)
	}
}

func TestRemovalBoundByEmissionCeiling(t *testing.T) {
	h := newHarness(t)
	cid := h.createCampaign(t, 1_000)

	h.now = 1_500
	c, err := h.ledger.Campaign(cid)
	if err != nil {
		t.Fatalf("campaign: %v", err)
	}
	var ceiling []*big.Int
	if err := h.mgr.View(func(tx *state.Tx) error {
		var err error
		ceiling, err = h.settlement.UnspentCeiling(tx, c, []string{"X"})
		return err
	}); err != nil {
		t.Fatalf("ceiling: %v", err)
	}
	if ceiling[0].Int64() != 500 {
		t.Fatalf("expected half emitted, ceiling %s", ceiling[0])
	}

	err = h.ledger.RemoveIncentives(provider, cid, []string{"X"}, []*big.Int{big.NewInt(501)})
	if !errors.Is(err, coreerrors.ErrEconomicInvariant) {
		t.Fatalf("expected ceiling rejection, got %v", err)
	}
	if got, _ := h.ledger.Unspent(cid, "X"); got.Int64() != 1_000 {
		t.Fatalf("escrow changed: %s", got)
	}
	if err := h.ledger.RemoveIncentives(provider, cid, []string{"X"}, []*big.Int{big.NewInt(500)}); err != nil {
		t.Fatalf("remove within ceiling: %v", err)
	}

	h.now = 2_000
	if err := h.ledger.AddIncentives(provider, cid, []string{"X"}, []*big.Int{big.NewInt(1)}, nil); !errors.Is(err, ErrCampaignEnded) {
		t.Fatalf("expected addition after end to fail, got %v", err)
	}
}

func TestOnCreateValidatesWindow(t *testing.T) {
	h := newHarness(t)
	cases := []struct{ start, end uint64 }{{1_000, 1_000}, {500, 900}, {2_000, 1_500}}
	for _, tc := range cases {
		_, err := h.ledger.CreateCampaign(provider, campaign.CreateRequest{
			Verifier:  verifierAddr,
			StartTime: tc.start,
			EndTime:   tc.end,
			Assets:    []string{"X"},
			Amounts:   []*big.Int{big.NewInt(1)},
		})
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("window %d-%d: expected invalid window, got %v", tc.start, tc.end, err)
		}
	}
	_, err := h.ledger.CreateCampaign(provider, campaign.CreateRequest{
		Verifier:     verifierAddr,
		ActionParams: []byte{0xC3, 0x01},
		StartTime:    1_000,
		EndTime:      2_000,
		Assets:       []string{"X"},
		Amounts:      []*big.Int{big.NewInt(1)},
	})
	if !errors.Is(err, ErrInvalidActionParams) {
		t.Fatalf("expected invalid action params, got %v", err)
	}
}

func TestOwnerParameters(t *testing.T) {
	h := newHarness(t)
	if err := h.settlement.SetLiveness(oracleOwner, time.Hour); err != nil {
		t.Fatalf("set liveness: %v", err)
	}
	if err := h.settlement.SetBondCurrency(oracleOwner, "X"); err != nil {
		t.Fatalf("set currency: %v", err)
	}
	if err := h.settlement.SetLiveness(stranger, time.Hour); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	if err := h.settlement.SetLiveness(oracleOwner, 0); !errors.Is(err, ErrInvalidLiveness) {
		t.Fatalf("expected invalid liveness, got %v", err)
	}
	p, err := h.settlement.Params()
	if err != nil || p.Liveness != 3_600 || p.BondCurrency != "X" {
		t.Fatalf("unexpected params %+v err=%v", p, err)
	}
	if err := h.settlement.AddAsserter(oracleOwner, asserter); err != nil {
		t.Fatalf("add asserter: %v", err)
	}
	if err := h.settlement.RemoveAsserter(oracleOwner, asserter); err != nil {
		t.Fatalf("remove asserter: %v", err)
	}
	if ok, _ := h.settlement.IsAsserter(asserter); ok {
		t.Fatalf("asserter still whitelisted")
	}
}
