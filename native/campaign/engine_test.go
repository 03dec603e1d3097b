package campaign

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	coreerrors "rewardhub/core/errors"
	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/native/bank"
	nativecommon "rewardhub/native/common"
	"rewardhub/storage"
)

var (
	ledgerOwner = newTestAddress(0xAD)
	feeClaimant = newTestAddress(0xFE)
	provider    = newTestAddress(0x01)
	coProvider  = newTestAddress(0x02)
	claimer     = newTestAddress(0x03)
	outsider    = newTestAddress(0x04)
)

func newTestAddress(b byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = b
	}
	return addr
}

// mockVerifier pays whatever the test scripts into owed and records every
// payment in its own state so rollbacks are observable.
type mockVerifier struct {
	addr         [20]byte
	rejectCreate bool
	rejectAdd    bool
	ceiling      map[string]*big.Int
	mu           sync.Mutex
	owed         map[[20]byte]map[string]*big.Int
}

func newMockVerifier() *mockVerifier {
	return &mockVerifier{addr: newTestAddress(0x77), ceiling: map[string]*big.Int{}, owed: map[[20]byte]map[string]*big.Int{}}
}

func (m *mockVerifier) setOwed(ap [20]byte, asset string, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owed[ap] == nil {
		m.owed[ap] = map[string]*big.Int{}
	}
	m.owed[ap][asset] = big.NewInt(amount)
}

func mockPaidKey(id ID, ap [20]byte, asset string) []byte {
	return []byte("mock/paid/" + id.Hex() + "/" + addrHex(ap) + "/" + asset)
}

func (m *mockVerifier) Address() [20]byte { return m.addr }

func (m *mockVerifier) OnCreate(store state.Store, c *Campaign, _ []string, _ []*big.Int, _ [20]byte) error {
	if m.rejectCreate {
		return errors.New("mock: creation refused")
	}
	return store.KVPut([]byte("mock/created/"+c.ID.Hex()), true)
}

func (m *mockVerifier) OnIncentivesAdded(state.Store, *Campaign, []string, []*big.Int, []byte, [20]byte) error {
	if m.rejectAdd {
		return errors.New("mock: addition refused")
	}
	return nil
}

func (m *mockVerifier) OnIncentivesRemoved(state.Store, *Campaign, []string, []*big.Int, [20]byte) error {
	return nil
}

func (m *mockVerifier) ProcessClaim(store state.Store, ctx ClaimContext) ([]ClaimLine, error) {
	m.mu.Lock()
	owed := make(map[string]*big.Int)
	for asset, amt := range m.owed[ctx.AP] {
		owed[asset] = new(big.Int).Set(amt)
	}
	m.mu.Unlock()

	var lines []ClaimLine
	for _, asset := range ctx.Campaign.Assets {
		amt, ok := owed[asset]
		if !ok || ctx.Skipped(asset) {
			continue
		}
		paid := new(big.Int)
		if _, err := store.KVGet(mockPaidKey(ctx.Campaign.ID, ctx.AP, asset), paid); err != nil {
			return nil, err
		}
		delta := new(big.Int).Sub(amt, paid)
		if delta.Sign() < 0 {
			delta.SetInt64(0)
		}
		if err := store.KVPut(mockPaidKey(ctx.Campaign.ID, ctx.AP, asset), amt); err != nil {
			return nil, err
		}
		lines = append(lines, ClaimLine{Asset: asset, Amount: delta})
	}
	return lines, nil
}

func (m *mockVerifier) UnspentCeiling(_ state.Store, _ *Campaign, assets []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(assets))
	for i, asset := range assets {
		if limit, ok := m.ceiling[asset]; ok {
			out[i] = new(big.Int).Set(limit)
			continue
		}
		out[i] = new(big.Int).Lsh(big.NewInt(1), 200)
	}
	return out, nil
}

type fixture struct {
	mgr      *state.Manager
	engine   *Engine
	verifier *mockVerifier
	emitter  *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	mgr.SetMaxRetries(1000)
	engine := NewEngine(mgr)
	engine.SetNowFunc(func() int64 { return 1_000 })
	verifier := newMockVerifier()
	engine.RegisterVerifier(verifier)
	emitter := &events.Recorder{}
	engine.SetEmitter(emitter)
	if err := engine.InitParams(Params{Owner: ledgerOwner, DefaultFeeRate: big.NewInt(1e17), FeeClaimant: feeClaimant}); err != nil {
		t.Fatalf("init params: %v", err)
	}
	_, err := mgr.Update(func(tx *state.Tx) error {
		for _, addr := range [][20]byte{provider, coProvider, outsider} {
			for _, asset := range []string{"X", "Y"} {
				if err := bank.Mint(tx, addr, asset, big.NewInt(1_000_000)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("fund accounts: %v", err)
	}
	return &fixture{mgr: mgr, engine: engine, verifier: verifier, emitter: emitter}
}

func (f *fixture) balance(t *testing.T, addr [20]byte, asset string) int64 {
	t.Helper()
	var out *big.Int
	if err := f.mgr.View(func(tx *state.Tx) error {
		var err error
		out, err = bank.Balance(tx, addr, asset)
		return err
	}); err != nil {
		t.Fatalf("balance: %v", err)
	}
	return out.Int64()
}

func (f *fixture) unspent(t *testing.T, id ID, asset string) int64 {
	t.Helper()
	out, err := f.engine.Unspent(id, asset)
	if err != nil {
		t.Fatalf("unspent: %v", err)
	}
	return out.Int64()
}

func (f *fixture) create(t *testing.T, assets []string, amounts ...int64) ID {
	t.Helper()
	id, err := f.engine.CreateCampaign(provider, CreateRequest{
		Verifier:  f.verifier.addr,
		StartTime: 1_000,
		EndTime:   2_000,
		Assets:    assets,
		Amounts:   bigs(amounts...),
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return id
}

func bigs(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestClaimSplitsFeeFromOwed(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)
	f.verifier.setOwed(claimer, "X", 500)

	res, err := f.engine.Claim(claimer, id, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(res.Lines) != 1 || res.Lines[0].Err != nil {
		t.Fatalf("unexpected lines %+v", res.Lines)
	}
	line := res.Lines[0]
	if line.Net.Int64() != 450 || line.Fee.Int64() != 50 {
		t.Fatalf("expected 450/50 split, got %s/%s", line.Net, line.Fee)
	}
	if got := f.balance(t, claimer, "X"); got != 450 {
		t.Fatalf("expected claimant balance 450, got %d", got)
	}
	fees, err := f.engine.FeeBalance(feeClaimant, "X")
	if err != nil || fees.Int64() != 50 {
		t.Fatalf("expected 50 fees, got %v err=%v", fees, err)
	}
	if got := f.unspent(t, id, "X"); got != 500 {
		t.Fatalf("expected unspent 500, got %d", got)
	}
	if f.emitter.Count(EventTypeClaimPaid) != 1 {
		t.Fatalf("expected claim paid event")
	}
}

func TestCreateCampaignRejectedByVerifierLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.verifier.rejectCreate = true

	_, err := f.engine.CreateCampaign(provider, CreateRequest{
		Verifier: f.verifier.addr,
		Assets:   []string{"X", "Y"},
		Amounts:  bigs(10, 20),
	})
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if got := f.balance(t, provider, "X"); got != 1_000_000 {
		t.Fatalf("deposit leaked: balance %d", got)
	}
	if got := f.balance(t, VaultAddress, "Y"); got != 0 {
		t.Fatalf("vault credited on rejected create: %d", got)
	}
	if f.emitter.Count(EventTypeCampaignCreated) != 0 {
		t.Fatalf("unexpected creation event")
	}
	var nonce uint64
	if _, err := f.mgr.KVGet(nonceKey, &nonce); err != nil || nonce != 0 {
		t.Fatalf("nonce advanced on rejected create: %d err=%v", nonce, err)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"duplicate", CreateRequest{Verifier: f.verifier.addr, Assets: []string{"X", "X"}, Amounts: bigs(1, 1)}, ErrDuplicateAsset},
		{"mismatch", CreateRequest{Verifier: f.verifier.addr, Assets: []string{"X"}, Amounts: bigs(1, 2)}, ErrLengthMismatch},
		{"zero", CreateRequest{Verifier: f.verifier.addr, Assets: []string{"X"}, Amounts: bigs(0)}, ErrInvalidAmount},
		{"empty", CreateRequest{Verifier: f.verifier.addr}, ErrEmptyIncentives},
		{"verifier", CreateRequest{Verifier: newTestAddress(0x99), Assets: []string{"X"}, Amounts: bigs(1)}, ErrUnknownVerifier},
		{"funds", CreateRequest{Verifier: f.verifier.addr, Assets: []string{"X"}, Amounts: bigs(2_000_000)}, bank.ErrInsufficientBalance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.CreateCampaign(provider, tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, coreerrors.ErrValidation) {
				t.Fatalf("expected validation class, got %v", err)
			}
		})
	}
}

func TestCampaignIDsAreUnique(t *testing.T) {
	f := newFixture(t)
	seen := make(map[ID]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := f.engine.CreateCampaign(provider, CreateRequest{Verifier: f.verifier.addr, Assets: []string{"X"}, Amounts: bigs(1)})
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != 10 {
		t.Fatalf("expected 10 distinct ids, got %d", len(seen))
	}
}

func TestFeeRateSnapshotAtCreation(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)

	if err := f.engine.SetDefaultFeeRate(outsider, big.NewInt(0)); !errors.Is(err, ErrNotLedgerOwner) {
		t.Fatalf("expected ledger owner check, got %v", err)
	}
	if err := f.engine.SetDefaultFeeRate(ledgerOwner, big.NewInt(5e17)); err != nil {
		t.Fatalf("set fee rate: %v", err)
	}
	if err := f.engine.SetFeeClaimant(ledgerOwner, outsider); err != nil {
		t.Fatalf("set fee claimant: %v", err)
	}

	f.verifier.setOwed(claimer, "X", 100)
	res, err := f.engine.Claim(claimer, id, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if res.Lines[0].Fee.Int64() != 10 {
		t.Fatalf("expected snapshotted 10%% fee, got %s", res.Lines[0].Fee)
	}
	fees, _ := f.engine.FeeBalance(feeClaimant, "X")
	if fees.Int64() != 10 {
		t.Fatalf("expected snapshotted claimant to accrue 10, got %s", fees)
	}

	later := f.create(t, []string{"X"}, 1_000)
	c, err := f.engine.Campaign(later)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.FeeRate.Cmp(big.NewInt(5e17)) != 0 || c.FeeClaimant != outsider {
		t.Fatalf("new campaign did not pick up new params: %s %x", c.FeeRate, c.FeeClaimant)
	}
}

func TestConcurrentAddsDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)
	if err := f.engine.AddCoProvider(provider, id, coProvider); err != nil {
		t.Fatalf("add co-provider: %v", err)
	}

	var wg sync.WaitGroup
	for _, caller := range [][20]byte{provider, coProvider} {
		wg.Add(1)
		go func(caller [20]byte) {
			defer wg.Done()
			if err := f.engine.AddIncentives(caller, id, []string{"X"}, bigs(100), nil); err != nil {
				t.Errorf("add incentives: %v", err)
			}
		}(caller)
	}
	wg.Wait()

	if got := f.unspent(t, id, "X"); got != 1_200 {
		t.Fatalf("expected gross 1200, got %d", got)
	}
}

func TestAddIncentivesAuthorizationAndNewAsset(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)

	err := f.engine.AddIncentives(outsider, id, []string{"X"}, bigs(1), nil)
	if !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if err := f.engine.AddIncentives(provider, id, []string{"Y"}, bigs(50), nil); err != nil {
		t.Fatalf("add new asset: %v", err)
	}
	incentives, err := f.engine.Incentives(id)
	if err != nil {
		t.Fatalf("incentives: %v", err)
	}
	if len(incentives) != 2 || incentives[1].Asset != "Y" || incentives[1].Gross.Int64() != 50 {
		t.Fatalf("unexpected incentives %+v", incentives)
	}

	f.verifier.rejectAdd = true
	if err := f.engine.AddIncentives(provider, id, []string{"Y"}, bigs(50), nil); err == nil {
		t.Fatalf("expected verifier rejection")
	}
	if got := f.unspent(t, id, "Y"); got != 50 {
		t.Fatalf("rejected addition leaked: %d", got)
	}
}

func TestRemoveAboveVerifierCeilingRejected(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)
	f.verifier.ceiling["X"] = big.NewInt(300)

	err := f.engine.RemoveIncentives(provider, id, []string{"X"}, bigs(301))
	if !errors.Is(err, ErrExceedsCeiling) || !errors.Is(err, coreerrors.ErrEconomicInvariant) {
		t.Fatalf("expected ceiling rejection, got %v", err)
	}
	if got := f.unspent(t, id, "X"); got != 1_000 {
		t.Fatalf("escrow changed: %d", got)
	}
	if got := f.balance(t, VaultAddress, "X"); got != 1_000 {
		t.Fatalf("vault changed: %d", got)
	}

	if err := f.engine.RemoveIncentives(provider, id, []string{"X"}, bigs(300)); err != nil {
		t.Fatalf("remove within ceiling: %v", err)
	}
	if got := f.balance(t, provider, "X"); got != 1_000_000-700 {
		t.Fatalf("expected refund to owner, balance %d", got)
	}
}

func TestRemoveCannotExceedLedgerUnspent(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 100)
	f.verifier.setOwed(claimer, "X", 80)
	if _, err := f.engine.Claim(claimer, id, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	err := f.engine.RemoveIncentives(provider, id, []string{"X"}, bigs(21))
	if !errors.Is(err, ErrExceedsUnspent) {
		t.Fatalf("expected unspent rejection, got %v", err)
	}
}

func TestCoProviderRemovalPolicy(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)
	if err := f.engine.AddCoProvider(provider, id, coProvider); err != nil {
		t.Fatalf("add co-provider: %v", err)
	}
	if err := f.engine.AddIncentives(coProvider, id, []string{"X"}, bigs(100), nil); err != nil {
		t.Fatalf("co-provider add: %v", err)
	}

	err := f.engine.RemoveIncentives(coProvider, id, []string{"X"}, bigs(100))
	if !errors.Is(err, coreerrors.ErrAuthorization) {
		t.Fatalf("expected owner-only removal by default, got %v", err)
	}
	if err := f.engine.SetCoProviderRemoval(coProvider, id, true); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("co-provider must not change policy, got %v", err)
	}
	if err := f.engine.SetCoProviderRemoval(provider, id, true); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	if err := f.engine.RemoveIncentives(coProvider, id, []string{"X"}, bigs(100)); err != nil {
		t.Fatalf("co-provider removal with policy: %v", err)
	}
	if got := f.balance(t, coProvider, "X"); got != 1_000_000-100 {
		t.Fatalf("co-provider must not receive the refund, balance %d", got)
	}
	if got := f.balance(t, provider, "X"); got != 1_000_000-1_000+100 {
		t.Fatalf("owner should receive the refund, balance %d", got)
	}

	if err := f.engine.RemoveCoProvider(provider, id, coProvider); err != nil {
		t.Fatalf("remove co-provider: %v", err)
	}
	if ok, _ := f.engine.IsCoProvider(id, coProvider); ok {
		t.Fatalf("co-provider still whitelisted")
	}
	if err := f.engine.AddIncentives(coProvider, id, []string{"X"}, bigs(1), nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected revoked co-provider to be refused, got %v", err)
	}
}

func TestClaimLineRejectionRollsBackVerifier(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X", "Y"}, 1_000, 100)
	f.verifier.setOwed(claimer, "X", 200)
	f.verifier.setOwed(claimer, "Y", 150)

	res, err := f.engine.Claim(claimer, id, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	var paidX, rejectedY bool
	for _, line := range res.Lines {
		switch line.Asset {
		case "X":
			paidX = line.Err == nil && line.Owed.Int64() == 200
		case "Y":
			rejectedY = errors.Is(line.Err, coreerrors.ErrEconomicInvariant)
		}
	}
	if !paidX || !rejectedY {
		t.Fatalf("unexpected lines %+v", res.Lines)
	}
	if got := f.unspent(t, id, "Y"); got != 100 {
		t.Fatalf("rejected line debited escrow: %d", got)
	}
	var recorded big.Int
	ok, err := f.mgr.KVGet(mockPaidKey(id, claimer, "Y"), &recorded)
	if err != nil {
		t.Fatalf("read verifier state: %v", err)
	}
	if ok {
		t.Fatalf("verifier recorded payment for rejected line: %s", &recorded)
	}
	if f.emitter.Count(EventTypeClaimLineRejected) != 1 {
		t.Fatalf("expected line rejection event")
	}

	// A top-up makes the rejected line payable on the next claim.
	if err := f.engine.AddIncentives(provider, id, []string{"Y"}, bigs(100), nil); err != nil {
		t.Fatalf("top up: %v", err)
	}
	res, err = f.engine.Claim(claimer, id, nil)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if got := res.Paid("Y").Int64(); got != 135 {
		t.Fatalf("expected 135 net for Y, got %d", got)
	}
	if got := res.Paid("X").Int64(); got != 0 {
		t.Fatalf("X must not be paid twice, got %d", got)
	}
}

func TestClaimBatchIsolatesEntries(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, []string{"X"}, 100)
	second := f.create(t, []string{"X"}, 100)
	f.verifier.setOwed(claimer, "X", 50)

	results := f.engine.ClaimBatch(claimer, []ClaimEntry{
		{CampaignID: first},
		{CampaignID: ID{0xDE, 0xAD}},
		{CampaignID: second},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Paid("X").Int64() != 45 {
		t.Fatalf("first entry: %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrCampaignNotFound) {
		t.Fatalf("expected not found for second entry, got %v", results[1].Err)
	}
	if results[2].Err != nil || results[2].Paid("X").Int64() != 45 {
		t.Fatalf("third entry: %+v", results[2])
	}
}

func TestClaimFeesZeroesAccount(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 1_000)
	f.verifier.setOwed(claimer, "X", 500)
	if _, err := f.engine.Claim(claimer, id, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}

	amount, err := f.engine.ClaimFees(feeClaimant, "X", outsider)
	if err != nil || amount.Int64() != 50 {
		t.Fatalf("expected 50 fees, got %v err=%v", amount, err)
	}
	if got := f.balance(t, outsider, "X"); got != 1_000_050 {
		t.Fatalf("fees not delivered: %d", got)
	}
	amount, err = f.engine.ClaimFees(feeClaimant, "X", outsider)
	if err != nil || amount.Sign() != 0 {
		t.Fatalf("expected zero on second withdrawal, got %v err=%v", amount, err)
	}
	var stored big.Int
	if ok, _ := f.mgr.KVGet(feeAccountKey(feeClaimant, "X"), &stored); !ok || stored.Sign() != 0 {
		t.Fatalf("expected zeroed fee entry to remain")
	}
}

func TestPointsDepositsConsumeSpendCap(t *testing.T) {
	f := newFixture(t)
	points := NewStaticPoints()
	points.SetCap(provider, "PTS", big.NewInt(500))
	f.engine.SetPoints(points)

	id := f.create(t, []string{"PTS"}, 400)
	if got := f.balance(t, VaultAddress, "PTS"); got != 0 {
		t.Fatalf("points must not be custodied, vault has %d", got)
	}
	err := f.engine.AddIncentives(provider, id, []string{"PTS"}, bigs(101), nil)
	if !errors.Is(err, ErrPointsCapExceeded) {
		t.Fatalf("expected cap rejection, got %v", err)
	}
	f.verifier.setOwed(claimer, "PTS", 100)
	res, err := f.engine.Claim(claimer, id, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := res.Paid("PTS").Int64(); got != 90 {
		t.Fatalf("expected 90 points net, got %d", got)
	}
	if got := f.balance(t, claimer, "PTS"); got != 90 {
		t.Fatalf("points not minted to claimant: %d", got)
	}
	if err := f.engine.RemoveIncentives(provider, id, []string{"PTS"}, bigs(300)); err != nil {
		t.Fatalf("remove points: %v", err)
	}
	if err := f.engine.AddIncentives(provider, id, []string{"PTS"}, bigs(350), nil); err != nil {
		t.Fatalf("released cap should allow re-deposit: %v", err)
	}
}

func TestPausedModuleRejectsMutations(t *testing.T) {
	f := newFixture(t)
	id := f.create(t, []string{"X"}, 100)
	f.engine.SetPauses(nativecommon.NewPauses(nativecommon.ModuleCampaign))

	if _, err := f.engine.Claim(claimer, id, nil); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	if err := f.engine.AddIncentives(provider, id, []string{"X"}, bigs(1), nil); !errors.Is(err, nativecommon.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
}

func TestSplitFee(t *testing.T) {
	cases := []struct {
		owed, rate, fee, net int64
	}{
		{500, 1e17, 50, 450},
		{7, 1e17, 0, 7},
		{1_000, 0, 0, 1_000},
		{1_000, 1e18, 1_000, 0},
		{0, 1e17, 0, 0},
	}
	for _, tc := range cases {
		fee, net, err := SplitFee(big.NewInt(tc.owed), big.NewInt(tc.rate))
		if err != nil {
			t.Fatalf("split %d@%d: %v", tc.owed, tc.rate, err)
		}
		if fee.Int64() != tc.fee || net.Int64() != tc.net {
			t.Fatalf("split %d@%d = %s/%s, want %d/%d", tc.owed, tc.rate, fee, net, tc.fee, tc.net)
		}
	}
	huge := new(big.Int).Lsh(big.NewInt(1), 300)
	if _, _, err := SplitFee(huge, big.NewInt(1)); !errors.Is(err, ErrFeeOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}
