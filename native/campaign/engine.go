package campaign

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	coreerrors "rewardhub/core/errors"
	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/native/bank"
	nativecommon "rewardhub/native/common"
	"rewardhub/observability"
)

// Engine is the campaign ledger. It custodies escrow, drives the bound
// verifier through every lifecycle hook and enforces the ledger-side ceiling
// on claim payouts. All mutations run inside a single state transaction and
// are serialised per campaign.
type Engine struct {
	state     *state.Manager
	verifiers verifierRegistry
	points    PointsRegistry
	pauses    nativecommon.PauseView
	emitter   events.Emitter
	logger    *slog.Logger
	nowFn     func() int64
	locks     nativecommon.KeyedMutex[ID]
}

// NewEngine creates a campaign ledger backed by the supplied state manager.
func NewEngine(mgr *state.Manager) *Engine {
	return &Engine{
		state:   mgr,
		emitter: events.NoopEmitter{},
		logger:  slog.Default().With(slog.String("module", nativecommon.ModuleCampaign)),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// RegisterVerifier makes v selectable by campaigns under v.Address().
func (e *Engine) RegisterVerifier(v ActionVerifier) { e.verifiers.register(v) }

// SetPoints configures the points registry consulted on deposit.
func (e *Engine) SetPoints(points PointsRegistry) { e.points = points }

// SetPauses configures the pause view consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetLogger overrides the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger.With(slog.String("module", nativecommon.ModuleCampaign))
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// update runs fn transactionally and releases the committed events.
func (e *Engine) update(op string, fn func(tx *state.Tx) error) error {
	start := time.Now()
	evts, err := e.state.Update(fn)
	observability.Ledger().Observe(op, err, time.Since(start))
	if err != nil {
		return err
	}
	for _, evt := range evts {
		e.emitter.Emit(evt)
	}
	return nil
}

// InitParams stores the ledger parameters unless they already exist.
func (e *Engine) InitParams(p Params) error {
	if p.DefaultFeeRate == nil {
		p.DefaultFeeRate = big.NewInt(0)
	}
	if p.DefaultFeeRate.Sign() < 0 || p.DefaultFeeRate.Cmp(FeeRateScale) > 0 {
		return ErrInvalidFeeRate
	}
	return e.update("init_params", func(tx *state.Tx) error {
		ok, err := tx.KVGet(paramsKey, nil)
		if err != nil || ok {
			return err
		}
		return tx.KVPut(paramsKey, &p)
	})
}

// Params returns the current ledger parameters.
func (e *Engine) Params() (*Params, error) {
	var p *Params
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		p, err = loadParams(tx)
		return err
	})
	return p, err
}

func loadParams(store state.Store) (*Params, error) {
	p := new(Params)
	ok, err := store.KVGet(paramsKey, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParamsUninitialised
	}
	p.DefaultFeeRate = cloneBigInt(p.DefaultFeeRate)
	return p, nil
}

// SetDefaultFeeRate updates the rate snapshotted into future campaigns.
// Existing campaigns keep the rate recorded at their creation.
func (e *Engine) SetDefaultFeeRate(caller [20]byte, rate *big.Int) error {
	if rate == nil || rate.Sign() < 0 || rate.Cmp(FeeRateScale) > 0 {
		return ErrInvalidFeeRate
	}
	return e.update("set_fee_rate", func(tx *state.Tx) error {
		p, err := loadParams(tx)
		if err != nil {
			return err
		}
		if p.Owner != caller {
			return ErrNotLedgerOwner
		}
		p.DefaultFeeRate = new(big.Int).Set(rate)
		tx.AddEvent(newParamsEvent(EventTypeDefaultFeeRateUpdated, "feeRate", rate.String()))
		return tx.KVPut(paramsKey, p)
	})
}

// SetFeeClaimant updates the fee claimant snapshotted into future campaigns.
func (e *Engine) SetFeeClaimant(caller, claimant [20]byte) error {
	if claimant == ([20]byte{}) {
		return ErrInvalidRecipient
	}
	return e.update("set_fee_claimant", func(tx *state.Tx) error {
		p, err := loadParams(tx)
		if err != nil {
			return err
		}
		if p.Owner != caller {
			return ErrNotLedgerOwner
		}
		p.FeeClaimant = claimant
		tx.AddEvent(newParamsEvent(EventTypeFeeClaimantUpdated, "feeClaimant", addrHex(claimant)))
		return tx.KVPut(paramsKey, p)
	})
}

func validateIncentives(assets []string, amounts []*big.Int) error {
	if len(assets) != len(amounts) {
		return ErrLengthMismatch
	}
	if len(assets) == 0 {
		return ErrEmptyIncentives
	}
	if len(assets) > MaxAssetsPerCampaign {
		return ErrTooManyAssets
	}
	seen := make(map[string]struct{}, len(assets))
	for i, asset := range assets {
		if _, dup := seen[asset]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateAsset, asset)
		}
		seen[asset] = struct{}{}
		if amounts[i] == nil || amounts[i].Sign() <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, asset)
		}
	}
	return nil
}

func normalizeAssets(assets []string) ([]string, error) {
	out := make([]string, len(assets))
	for i, asset := range assets {
		normalized, err := normalizeAsset(asset)
		if err != nil {
			return nil, err
		}
		out[i] = normalized
	}
	return out, nil
}

func loadCampaign(store state.Store, id ID) (*Campaign, error) {
	c := new(Campaign)
	ok, err := store.KVGet(campaignKey(id), c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCampaignNotFound
	}
	c.FeeRate = cloneBigInt(c.FeeRate)
	return c, nil
}

func (e *Engine) verifierFor(c *Campaign) (ActionVerifier, error) {
	v, ok := e.verifiers.lookup(c.Verifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVerifier, addrHex(c.Verifier))
	}
	return v, nil
}

// CreateCampaign escrows the supplied incentives from caller, binds the
// campaign to req.Verifier and snapshots the current fee parameters.
func (e *Engine) CreateCampaign(caller [20]byte, req CreateRequest) (ID, error) {
	var id ID
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleCampaign); err != nil {
		return id, err
	}
	assets, err := normalizeAssets(req.Assets)
	if err != nil {
		return id, err
	}
	if err := validateIncentives(assets, req.Amounts); err != nil {
		return id, err
	}
	verifier, ok := e.verifiers.lookup(req.Verifier)
	if !ok {
		return id, fmt.Errorf("%w: %s", ErrUnknownVerifier, addrHex(req.Verifier))
	}
	amounts := cloneAmounts(req.Amounts)

	err = e.update("create", func(tx *state.Tx) error {
		params, err := loadParams(tx)
		if err != nil {
			return err
		}
		var nonce uint64
		if _, err := tx.KVGet(nonceKey, &nonce); err != nil {
			return err
		}
		if err := tx.KVPut(nonceKey, nonce+1); err != nil {
			return err
		}
		copy(id[:], ethcrypto.Keccak256(idPreimage(nonce, caller)))
		if exists, err := tx.KVGet(campaignKey(id), nil); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: campaign id collision", coreerrors.ErrStateConflict)
		}

		c := &Campaign{
			ID:           id,
			Owner:        caller,
			Verifier:     req.Verifier,
			ActionParams: append([]byte(nil), req.ActionParams...),
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			FeeRate:      new(big.Int).Set(params.DefaultFeeRate),
			FeeClaimant:  params.FeeClaimant,
			Assets:       append([]string(nil), assets...),
			CreatedAt:    e.now(),
		}
		for i, asset := range assets {
			if err := e.deposit(tx, id, caller, asset, amounts[i]); err != nil {
				return err
			}
		}
		if err := tx.KVPut(campaignKey(id), c); err != nil {
			return err
		}
		if err := verifier.OnCreate(tx, c.Clone(), assets, cloneAmounts(amounts), caller); err != nil {
			return fmt.Errorf("verifier rejected creation: %w", err)
		}
		tx.AddEvent(newCreatedEvent(c, amounts))
		return nil
	})
	if err != nil {
		return ID{}, err
	}
	e.logger.Info("campaign created",
		slog.String("campaign", id.Hex()),
		slog.String("owner", addrHex(caller)),
		slog.Int("assets", len(assets)))
	return id, nil
}

// AddIncentives deposits additional incentives. Only the owner and
// co-providers may add; incentives added by a co-provider belong to the owner
// from then on.
func (e *Engine) AddIncentives(caller [20]byte, id ID, assets []string, amounts []*big.Int, extraParams []byte) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleCampaign); err != nil {
		return err
	}
	assets, err := normalizeAssets(assets)
	if err != nil {
		return err
	}
	if err := validateIncentives(assets, amounts); err != nil {
		return err
	}
	amounts = cloneAmounts(amounts)

	unlock := e.locks.Lock(id)
	defer unlock()
	return e.update("add_incentives", func(tx *state.Tx) error {
		c, err := loadCampaign(tx, id)
		if err != nil {
			return err
		}
		if c.Owner != caller {
			isCo, err := isCoProvider(tx, id, caller)
			if err != nil {
				return err
			}
			if !isCo {
				return ErrUnauthorized
			}
		}
		verifier, err := e.verifierFor(c)
		if err != nil {
			return err
		}
		for i, asset := range assets {
			if !c.HasAsset(asset) {
				if len(c.Assets) >= MaxAssetsPerCampaign {
					return ErrTooManyAssets
				}
				c.Assets = append(c.Assets, asset)
			}
			if err := e.deposit(tx, id, caller, asset, amounts[i]); err != nil {
				return err
			}
		}
		if err := tx.KVPut(campaignKey(id), c); err != nil {
			return err
		}
		if err := verifier.OnIncentivesAdded(tx, c.Clone(), assets, cloneAmounts(amounts), extraParams, caller); err != nil {
			return fmt.Errorf("verifier rejected addition: %w", err)
		}
		tx.AddEvent(newIncentivesEvent(EventTypeIncentivesAdded, id, caller, assets, amounts))
		return nil
	})
}

// RemoveIncentives withdraws unspent incentives back to the campaign owner.
// The owner may always remove; co-providers only when the campaign's removal
// policy allows it. Each amount must fit under both the verifier's reported
// ceiling and the ledger's unspent balance.
func (e *Engine) RemoveIncentives(caller [20]byte, id ID, assets []string, amounts []*big.Int) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleCampaign); err != nil {
		return err
	}
	assets, err := normalizeAssets(assets)
	if err != nil {
		return err
	}
	if err := validateIncentives(assets, amounts); err != nil {
		return err
	}
	amounts = cloneAmounts(amounts)

	unlock := e.locks.Lock(id)
	defer unlock()
	return e.update("remove_incentives", func(tx *state.Tx) error {
		c, err := loadCampaign(tx, id)
		if err != nil {
			return err
		}
		if c.Owner != caller {
			isCo, err := isCoProvider(tx, id, caller)
			if err != nil {
				return err
			}
			if !isCo || !c.CoProviderRemoval {
				return ErrNotOwner
			}
		}
		for _, asset := range assets {
			if !c.HasAsset(asset) {
				return fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
			}
		}
		verifier, err := e.verifierFor(c)
		if err != nil {
			return err
		}
		ceilings, err := verifier.UnspentCeiling(tx, c.Clone(), append([]string(nil), assets...))
		if err != nil {
			return fmt.Errorf("verifier ceiling: %w", err)
		}
		if len(ceilings) != len(assets) {
			return ErrVerifierMisbehaviour
		}
		for i, asset := range assets {
			if ceilings[i] == nil || amounts[i].Cmp(ceilings[i]) > 0 {
				return fmt.Errorf("%w: %s requested %s, ceiling %s", ErrExceedsCeiling, asset, amounts[i], cloneBigInt(ceilings[i]))
			}
		}
		if err := verifier.OnIncentivesRemoved(tx, c.Clone(), assets, cloneAmounts(amounts), caller); err != nil {
			return fmt.Errorf("verifier rejected removal: %w", err)
		}
		for i, asset := range assets {
			if err := e.refund(tx, id, c.Owner, asset, amounts[i]); err != nil {
				return err
			}
		}
		tx.AddEvent(newIncentivesEvent(EventTypeIncentivesRemoved, id, caller, assets, amounts))
		return nil
	})
}

// Claim asks the campaign's verifier what ap is owed and pays every line that
// fits under the ledger's unspent balance. A line that does not fit is
// rejected on its own with ErrEconomicInvariant; the verifier is then re-run
// without that asset so it never records a payment the ledger did not make.
func (e *Engine) Claim(ap [20]byte, id ID, params []byte) (*ClaimResult, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleCampaign); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	var result *ClaimResult
	err := e.update("claim", func(tx *state.Tx) error {
		result = &ClaimResult{CampaignID: id}
		c, err := loadCampaign(tx, id)
		if err != nil {
			return err
		}
		verifier, err := e.verifierFor(c)
		if err != nil {
			return err
		}
		skip := make(map[string]bool)
		var rejected []LineResult
		var notices []events.Event
		// Every retry adds at least one asset to skip, so the loop ends.
		for {
			snap := tx.Snapshot()
			lines, err := verifier.ProcessClaim(tx, ClaimContext{Campaign: c.Clone(), AP: ap, Params: params, Skip: copySkip(skip)})
			if err != nil {
				return err
			}
			if err := checkLines(lines, skip); err != nil {
				return err
			}
			retry := false
			for _, line := range lines {
				available, err := unspent(tx, id, line.Asset)
				if err != nil {
					return err
				}
				if line.Amount.Cmp(available) <= 0 {
					continue
				}
				skip[line.Asset] = true
				retry = true
				rejected = append(rejected, LineResult{
					Asset: line.Asset,
					Owed:  new(big.Int).Set(line.Amount),
					Net:   big.NewInt(0),
					Fee:   big.NewInt(0),
					Err:   fmt.Errorf("%w: %s owed %s, unspent %s", ErrExceedsUnspent, line.Asset, line.Amount, available),
				})
				notices = append(notices, newLineRejectedEvent(id, ap, line.Asset, line.Amount, available))
			}
			if retry {
				tx.RevertToSnapshot(snap)
				continue
			}
			for _, line := range lines {
				settled, err := e.settleLine(tx, c, ap, line)
				if err != nil {
					return err
				}
				result.Lines = append(result.Lines, settled)
				if settled.Owed.Sign() > 0 {
					tx.AddEvent(newClaimPaidEvent(id, ap, settled))
				}
			}
			break
		}
		for _, notice := range notices {
			tx.AddEvent(notice)
		}
		result.Lines = append(result.Lines, rejected...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, line := range result.Lines {
		if line.Err != nil {
			observability.Ledger().LineRejected(line.Asset)
			e.logger.Warn("claim line rejected",
				slog.String("campaign", id.Hex()),
				slog.String("ap", addrHex(ap)),
				slog.String("asset", line.Asset),
				slog.String("owed", line.Owed.String()),
				slog.Any("error", line.Err))
		}
	}
	return result, nil
}

func (e *Engine) settleLine(tx *state.Tx, c *Campaign, ap [20]byte, line ClaimLine) (LineResult, error) {
	owed := new(big.Int).Set(line.Amount)
	fee, net, err := SplitFee(owed, c.FeeRate)
	if err != nil {
		return LineResult{}, err
	}
	if owed.Sign() > 0 {
		if err := debit(tx, c.ID, line.Asset, owed); err != nil {
			return LineResult{}, err
		}
		if err := e.payout(tx, ap, line.Asset, net); err != nil {
			return LineResult{}, err
		}
		if err := creditFee(tx, c.FeeClaimant, line.Asset, fee); err != nil {
			return LineResult{}, err
		}
	}
	return LineResult{Asset: line.Asset, Owed: owed, Net: net, Fee: fee}, nil
}

func checkLines(lines []ClaimLine, skip map[string]bool) error {
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.Amount == nil || line.Amount.Sign() < 0 {
			return fmt.Errorf("%w: negative amount for %s", ErrVerifierMisbehaviour, line.Asset)
		}
		if _, dup := seen[line.Asset]; dup {
			return fmt.Errorf("%w: duplicate line for %s", ErrVerifierMisbehaviour, line.Asset)
		}
		if skip[line.Asset] {
			return fmt.Errorf("%w: line for excluded asset %s", ErrVerifierMisbehaviour, line.Asset)
		}
		seen[line.Asset] = struct{}{}
	}
	return nil
}

func copySkip(skip map[string]bool) map[string]bool {
	out := make(map[string]bool, len(skip))
	for k, v := range skip {
		out[k] = v
	}
	return out
}

// ClaimBatch processes each entry in its own transaction. A failing entry
// never affects its siblings; every entry gets a result.
func (e *Engine) ClaimBatch(ap [20]byte, entries []ClaimEntry) []ClaimResult {
	results := make([]ClaimResult, len(entries))
	for i, entry := range entries {
		res, err := e.Claim(ap, entry.CampaignID, entry.Params)
		if err != nil {
			results[i] = ClaimResult{CampaignID: entry.CampaignID, Err: err}
			continue
		}
		results[i] = *res
	}
	return results
}

// ClaimFees zeroes caller's fee account for asset and sends the prior balance
// to the recipient. A zero balance is not an error.
func (e *Engine) ClaimFees(caller [20]byte, asset string, to [20]byte) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleCampaign); err != nil {
		return nil, err
	}
	asset, err := normalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	if to == ([20]byte{}) {
		return nil, ErrInvalidRecipient
	}
	var amount *big.Int
	err = e.update("claim_fees", func(tx *state.Tx) error {
		var err error
		amount, err = drainFee(tx, caller, asset)
		if err != nil || amount.Sign() == 0 {
			return err
		}
		if err := e.payout(tx, to, asset, amount); err != nil {
			return err
		}
		tx.AddEvent(newFeesClaimedEvent(caller, to, asset, amount))
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.Ledger().FeesClaimed(asset, amount)
	return amount, nil
}

func isCoProvider(store state.Store, id ID, addr [20]byte) (bool, error) {
	var allowed bool
	ok, err := store.KVGet(coProviderKey(id, addr), &allowed)
	if err != nil {
		return false, err
	}
	return ok && allowed, nil
}

// AddCoProvider whitelists principal to add incentives on the owner's behalf.
func (e *Engine) AddCoProvider(caller [20]byte, id ID, principal [20]byte) error {
	return e.ownerUpdate("add_coprovider", caller, id, func(tx *state.Tx, c *Campaign) error {
		if principal == c.Owner || principal == ([20]byte{}) {
			return ErrInvalidRecipient
		}
		tx.AddEvent(newCoProviderEvent(EventTypeCoProviderAdded, id, principal))
		return tx.KVPut(coProviderKey(id, principal), true)
	})
}

// RemoveCoProvider revokes a co-provider. Funds it already added stay with
// the campaign owner.
func (e *Engine) RemoveCoProvider(caller [20]byte, id ID, principal [20]byte) error {
	return e.ownerUpdate("remove_coprovider", caller, id, func(tx *state.Tx, c *Campaign) error {
		ok, err := isCoProvider(tx, id, principal)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s is not a co-provider", coreerrors.ErrValidation, addrHex(principal))
		}
		tx.AddEvent(newCoProviderEvent(EventTypeCoProviderRemoved, id, principal))
		return tx.KVDelete(coProviderKey(id, principal))
	})
}

// SetCoProviderRemoval toggles whether co-providers may remove incentives.
func (e *Engine) SetCoProviderRemoval(caller [20]byte, id ID, allowed bool) error {
	return e.ownerUpdate("set_removal_policy", caller, id, func(tx *state.Tx, c *Campaign) error {
		c.CoProviderRemoval = allowed
		tx.AddEvent(newRemovalPolicyEvent(id, allowed))
		return tx.KVPut(campaignKey(id), c)
	})
}

func (e *Engine) ownerUpdate(op string, caller [20]byte, id ID, fn func(tx *state.Tx, c *Campaign) error) error {
	if err := nativecommon.Guard(e.pauses, nativecommon.ModuleCampaign); err != nil {
		return err
	}
	unlock := e.locks.Lock(id)
	defer unlock()
	return e.update(op, func(tx *state.Tx) error {
		c, err := loadCampaign(tx, id)
		if err != nil {
			return err
		}
		if c.Owner != caller {
			return ErrNotOwner
		}
		return fn(tx, c)
	})
}

// Campaign returns the stored campaign record.
func (e *Engine) Campaign(id ID) (*Campaign, error) {
	var c *Campaign
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		c, err = loadCampaign(tx, id)
		return err
	})
	return c, err
}

// LoadCampaign reads a campaign through an existing transactional store. Verifier
// implementations use it to read the ledger's record of a campaign.
func LoadCampaign(store state.Store, id ID) (*Campaign, error) {
	return loadCampaign(store, id)
}

// Unspent returns Gross minus Debited for (id, asset).
func (e *Engine) Unspent(id ID, asset string) (*big.Int, error) {
	var out *big.Int
	err := e.state.View(func(tx *state.Tx) error {
		if _, err := loadCampaign(tx, id); err != nil {
			return err
		}
		var err error
		out, err = unspent(tx, id, asset)
		return err
	})
	return out, err
}

// Incentives lists every asset entry of the campaign in campaign order.
func (e *Engine) Incentives(id ID) ([]Incentive, error) {
	var out []Incentive
	err := e.state.View(func(tx *state.Tx) error {
		c, err := loadCampaign(tx, id)
		if err != nil {
			return err
		}
		for _, asset := range c.Assets {
			bal, _, err := loadAsset(tx, id, asset)
			if err != nil {
				return err
			}
			out = append(out, Incentive{Asset: asset, Gross: bal.Gross, Debited: bal.Debited, Unspent: bal.Unspent()})
		}
		return nil
	})
	return out, err
}

// FeeBalance returns the accrued fees of claimant in asset.
func (e *Engine) FeeBalance(claimant [20]byte, asset string) (*big.Int, error) {
	var out *big.Int
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		out, err = feeBalance(tx, claimant, asset)
		return err
	})
	return out, err
}

// IsCoProvider reports whether principal is whitelisted on the campaign.
func (e *Engine) IsCoProvider(id ID, principal [20]byte) (bool, error) {
	var out bool
	err := e.state.View(func(tx *state.Tx) error {
		var err error
		out, err = isCoProvider(tx, id, principal)
		return err
	})
	return out, err
}

func normalizeAsset(asset string) (string, error) {
	return bank.NormalizeAsset(asset)
}

func cloneAmounts(amounts []*big.Int) []*big.Int {
	out := make([]*big.Int, len(amounts))
	for i, amt := range amounts {
		out[i] = cloneBigInt(amt)
	}
	return out
}
