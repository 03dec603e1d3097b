package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/native/bank"
	"rewardhub/native/campaign"
	nativecommon "rewardhub/native/common"
	"rewardhub/observability"
)

// Settlement is the optimistic-oracle verifier. It authors Merkle root
// assertions against the external host, tracks their resolution and pays
// claims against the latest root resolved as truthful.
type Settlement struct {
	state   *state.Manager
	address [20]byte
	host    Host
	pauses  nativecommon.PauseView
	emitter events.Emitter
	logger  *slog.Logger
	nowFn   func() int64
	locks   nativecommon.KeyedMutex[campaign.ID]
}

const reconcileTimeout = 30 * time.Second

var (
	_ campaign.ActionVerifier = (*Settlement)(nil)
	_ Callbacks               = (*Settlement)(nil)
)

// NewSettlement creates the verifier registered under address and bound to
// host.
func NewSettlement(mgr *state.Manager, address [20]byte, host Host) *Settlement {
	return &Settlement{
		state:   mgr,
		address: address,
		host:    host,
		emitter: events.NoopEmitter{},
		logger:  slog.Default().With(slog.String("module", nativecommon.ModuleOracle)),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// Address implements campaign.ActionVerifier.
func (s *Settlement) Address() [20]byte { return s.address }

// SetEmitter configures the event emitter used for settlement events. Passing
// nil resets the emitter to a no-op implementation.
func (s *Settlement) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetPauses configures the pause view consulted before assertions.
func (s *Settlement) SetPauses(p nativecommon.PauseView) { s.pauses = p }

// SetLogger overrides the structured logger.
func (s *Settlement) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger.With(slog.String("module", nativecommon.ModuleOracle))
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (s *Settlement) SetNowFunc(now func() int64) {
	if now == nil {
		s.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	s.nowFn = now
}

func (s *Settlement) now() uint64 {
	ts := s.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (s *Settlement) update(fn func(tx *state.Tx) error) error {
	evts, err := s.state.Update(fn)
	if err != nil {
		return err
	}
	for _, evt := range evts {
		s.emitter.Emit(evt)
	}
	return nil
}

// InitParams stores the settlement parameters unless they already exist.
func (s *Settlement) InitParams(p Params) error {
	if p.Liveness == 0 {
		return ErrInvalidLiveness
	}
	asset, err := bank.NormalizeAsset(p.BondCurrency)
	if err != nil {
		return err
	}
	p.BondCurrency = asset
	return s.update(func(tx *state.Tx) error {
		ok, err := tx.KVGet(paramsKey, nil)
		if err != nil || ok {
			return err
		}
		return tx.KVPut(paramsKey, &p)
	})
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
	return p, nil
}

// Params returns the current settlement parameters.
func (s *Settlement) Params() (*Params, error) {
	var p *Params
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		p, err = loadParams(tx)
		return err
	})
	return p, err
}

func (s *Settlement) ownerUpdate(caller [20]byte, fn func(tx *state.Tx, p *Params) error) error {
	return s.update(func(tx *state.Tx) error {
		p, err := loadParams(tx)
		if err != nil {
			return err
		}
		if p.Owner != caller {
			return ErrNotOwner
		}
		return fn(tx, p)
	})
}

// AddAsserter whitelists addr to assert roots for any oracle campaign.
func (s *Settlement) AddAsserter(caller, addr [20]byte) error {
	return s.ownerUpdate(caller, func(tx *state.Tx, _ *Params) error {
		tx.AddEvent(newAsserterEvent(addr, true))
		return tx.KVPut(asserterKey(addr), true)
	})
}

// RemoveAsserter revokes a whitelisted asserter.
func (s *Settlement) RemoveAsserter(caller, addr [20]byte) error {
	return s.ownerUpdate(caller, func(tx *state.Tx, _ *Params) error {
		tx.AddEvent(newAsserterEvent(addr, false))
		return tx.KVDelete(asserterKey(addr))
	})
}

// SetBondCurrency changes the asset bonds are posted in.
func (s *Settlement) SetBondCurrency(caller [20]byte, currency string) error {
	asset, err := bank.NormalizeAsset(currency)
	if err != nil {
		return err
	}
	return s.ownerUpdate(caller, func(tx *state.Tx, p *Params) error {
		p.BondCurrency = asset
		tx.AddEvent(newParamsEvent(p))
		return tx.KVPut(paramsKey, p)
	})
}

// SetLiveness changes the dispute window requested for new assertions.
func (s *Settlement) SetLiveness(caller [20]byte, liveness time.Duration) error {
	seconds := uint64(liveness / time.Second)
	if seconds == 0 {
		return ErrInvalidLiveness
	}
	return s.ownerUpdate(caller, func(tx *state.Tx, p *Params) error {
		p.Liveness = seconds
		tx.AddEvent(newParamsEvent(p))
		return tx.KVPut(paramsKey, p)
	})
}

func isAsserter(store state.Store, addr [20]byte) (bool, error) {
	var allowed bool
	ok, err := store.KVGet(asserterKey(addr), &allowed)
	if err != nil {
		return false, err
	}
	return ok && allowed, nil
}

// IsAsserter reports whether addr is whitelisted.
func (s *Settlement) IsAsserter(addr [20]byte) (bool, error) {
	var out bool
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		out, err = isAsserter(tx, addr)
		return err
	})
	return out, err
}

func loadPending(store state.Store, cid campaign.ID) (*Pending, bool, error) {
	p := new(Pending)
	ok, err := store.KVGet(pendingKey(cid), p)
	if err != nil || !ok {
		return nil, false, err
	}
	return p, true, nil
}

func loadAssertion(store state.Store, id AssertionID) (*Assertion, error) {
	a := new(Assertion)
	ok, err := store.KVGet(assertionKey(id), a)
	if err != nil {
		return nil, err
	}
	if ok {
		return a, nil
	}
	removed, err := store.KVGet(tombstoneKey(id), nil)
	if err != nil {
		return nil, err
	}
	if removed {
		return nil, ErrAssertionRemoved
	}
	return nil, ErrAssertionNotFound
}

// claimPayload is the human-readable statement adjudicators evaluate.
func claimPayload(c *campaign.Campaign, root [32]byte, verifier, asserter [20]byte, ts uint64) []byte {
	return []byte(fmt.Sprintf(
		"Merkle root %s is the correct cumulative entitlement snapshot for campaign %s "+
			"(verifier %s, actionParams 0x%x, asserter %s, timestamp %d)",
		ethcommon.Hash(root).Hex(), c.ID.Hex(), addrHex(verifier), c.ActionParams, addrHex(asserter), ts))
}

// AssertRoot posts a bond and asks the host to open an assertion that root is
// the campaign's entitlement snapshot. The bond is reserved first, the host is
// called outside any transaction, and the reservation is either finalised
// under the host-issued id or rolled back if the host fails. A host failure is
// surfaced as ErrExternalDependency and never retried. A submission the host
// sent but could not confirm keeps its reservation and returns
// ErrAssertionUnconfirmed until Reconcile settles it.
func (s *Settlement) AssertRoot(ctx context.Context, caller [20]byte, cid campaign.ID, root [32]byte, bond *big.Int) (AssertionID, error) {
	var id AssertionID
	if err := nativecommon.Guard(s.pauses, nativecommon.ModuleOracle); err != nil {
		return id, err
	}
	if root == ([32]byte{}) {
		return id, ErrInvalidRoot
	}
	if bond != nil && bond.Sign() < 0 {
		return id, fmt.Errorf("%w: negative bond", ErrInsufficientBond)
	}
	unlock := s.locks.Lock(cid)
	defer unlock()

	var (
		c      *campaign.Campaign
		params *Params
	)
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		if c, err = campaign.LoadCampaign(tx, cid); err != nil {
			return err
		}
		if c.Verifier != s.address {
			return ErrVerifierMismatch
		}
		if params, err = loadParams(tx); err != nil {
			return err
		}
		if err := authorizeAsserter(tx, c, caller); err != nil {
			return err
		}
		if _, live, err := loadPending(tx, cid); err != nil {
			return err
		} else if live {
			return ErrAssertionPending
		}
		return nil
	})
	if err != nil {
		observability.Oracle().Assertion("rejected")
		return id, err
	}

	amount := big.NewInt(0)
	if bond != nil {
		amount.Set(bond)
	}
	if amount.Sign() == 0 {
		minimum, err := s.host.MinimumBond(ctx, params.BondCurrency)
		if err != nil {
			observability.Oracle().Assertion("host_error")
			return id, fmt.Errorf("%w: minimum bond: %v", ErrHostUnavailable, err)
		}
		amount = cloneBigInt(minimum)
	}

	ts := s.now()
	escrow := s.host.Identity()
	reservation := &Pending{
		Asserter:   caller,
		Bond:       amount,
		Currency:   params.BondCurrency,
		ReservedAt: ts,
		MerkleRoot: root,
	}
	err = s.update(func(tx *state.Tx) error {
		if _, live, err := loadPending(tx, cid); err != nil {
			return err
		} else if live {
			return ErrAssertionPending
		}
		// The whitelist may have changed while the host was asked for the
		// minimum bond.
		if err := authorizeAsserter(tx, c, caller); err != nil {
			return err
		}
		if amount.Sign() > 0 {
			if err := bank.Transfer(tx, caller, escrow, params.BondCurrency, amount); err != nil {
				if errors.Is(err, bank.ErrInsufficientBalance) {
					return fmt.Errorf("%w: %v", ErrInsufficientBond, err)
				}
				return err
			}
		}
		return tx.KVPut(pendingKey(cid), reservation)
	})
	if err != nil {
		observability.Oracle().Assertion("rejected")
		return id, err
	}

	id, err = s.host.SubmitAssertion(ctx, AssertionRequest{
		Claim:    claimPayload(c, root, s.address, caller, ts),
		Asserter: caller,
		Callback: s.address,
		Currency: params.BondCurrency,
		Bond:     new(big.Int).Set(amount),
		Liveness: params.Liveness,
	})
	if err != nil {
		var unconfirmed *UnconfirmedError
		if errors.As(err, &unconfirmed) {
			if markErr := s.markUnconfirmed(cid, unconfirmed.TxHash); markErr != nil {
				s.logger.Error("failed to record unconfirmed submission",
					slog.String("campaign", cid.Hex()),
					slog.String("tx", ethcommon.Hash(unconfirmed.TxHash).Hex()),
					slog.Any("error", markErr))
			}
			observability.Oracle().Assertion("unconfirmed")
			s.logger.Warn("assertion submission unconfirmed",
				slog.String("campaign", cid.Hex()),
				slog.String("tx", ethcommon.Hash(unconfirmed.TxHash).Hex()),
				slog.Any("error", unconfirmed.Err))
			return AssertionID{}, fmt.Errorf("%w: %v", ErrAssertionUnconfirmed, err)
		}
		if rbErr := s.releaseReservation(cid, caller, escrow, reservation); rbErr != nil {
			s.logger.Error("failed to release bond reservation", slog.String("campaign", cid.Hex()), slog.Any("error", rbErr))
		}
		observability.Oracle().Assertion("host_error")
		return AssertionID{}, fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	}

	if err := s.recordAssertion(cid, id, reservation); err != nil {
		s.logger.Error("failed to record host assertion",
			slog.String("campaign", cid.Hex()),
			slog.String("assertion", ethcommon.Hash(id).Hex()),
			slog.Any("error", err))
		if rbErr := s.releaseReservation(cid, caller, escrow, reservation); rbErr != nil {
			s.logger.Error("failed to release bond reservation", slog.String("campaign", cid.Hex()), slog.Any("error", rbErr))
		}
		observability.Oracle().Assertion("record_error")
		return AssertionID{}, err
	}
	observability.Oracle().Assertion("made")
	s.logger.Info("assertion made",
		slog.String("campaign", cid.Hex()),
		slog.String("assertion", ethcommon.Hash(id).Hex()),
		slog.String("asserter", addrHex(caller)),
		slog.String("bond", amount.String()))
	return id, nil
}

func authorizeAsserter(store state.Store, c *campaign.Campaign, caller [20]byte) error {
	if c.Owner == caller {
		return nil
	}
	allowed, err := isAsserter(store, caller)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrUnauthorizedAsserter
	}
	return nil
}

// recordAssertion turns the campaign's reservation into a live assertion under
// the host-issued id.
func (s *Settlement) recordAssertion(cid campaign.ID, id AssertionID, reservation *Pending) error {
	assertion := &Assertion{
		ID:         id,
		CampaignID: cid,
		MerkleRoot: reservation.MerkleRoot,
		Asserter:   reservation.Asserter,
		Bond:       cloneBigInt(reservation.Bond),
		Currency:   reservation.Currency,
		AssertedAt: reservation.ReservedAt,
	}
	return s.update(func(tx *state.Tx) error {
		if exists, err := tx.KVGet(assertionKey(id), nil); err != nil {
			return err
		} else if exists {
			return ErrDuplicateAssertionID
		}
		if removed, err := tx.KVGet(tombstoneKey(id), nil); err != nil {
			return err
		} else if removed {
			return ErrDuplicateAssertionID
		}
		if err := tx.KVPut(assertionKey(id), assertion); err != nil {
			return err
		}
		if err := dropUnconfirmed(tx, cid); err != nil {
			return err
		}
		finalized := *reservation
		finalized.AssertionID = id
		finalized.Submitted = true
		finalized.TxHash = [32]byte{}
		tx.AddEvent(newAssertionMadeEvent(assertion))
		return tx.KVPut(pendingKey(cid), &finalized)
	})
}

func (s *Settlement) releaseReservation(cid campaign.ID, asserter, escrow [20]byte, reservation *Pending) error {
	return s.update(func(tx *state.Tx) error {
		current, ok, err := loadPending(tx, cid)
		if err != nil || !ok || current.Submitted {
			return err
		}
		if reservation.Bond.Sign() > 0 {
			if err := bank.Transfer(tx, escrow, asserter, reservation.Currency, reservation.Bond); err != nil {
				return err
			}
		}
		if err := dropUnconfirmed(tx, cid); err != nil {
			return err
		}
		return tx.KVDelete(pendingKey(cid))
	})
}

func (s *Settlement) markUnconfirmed(cid campaign.ID, txHash [32]byte) error {
	return s.update(func(tx *state.Tx) error {
		current, ok, err := loadPending(tx, cid)
		if err != nil || !ok || current.Submitted {
			return err
		}
		current.TxHash = txHash
		if err := tx.KVPut(pendingKey(cid), current); err != nil {
			return err
		}
		ids, err := loadUnconfirmed(tx)
		if err != nil {
			return err
		}
		for _, existing := range ids {
			if existing == cid {
				return nil
			}
		}
		return tx.KVPut(unconfirmedKey, append(ids, cid))
	})
}

func loadUnconfirmed(store state.Store) ([]campaign.ID, error) {
	var ids []campaign.ID
	if _, err := store.KVGet(unconfirmedKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func dropUnconfirmed(tx *state.Tx, cid campaign.ID) error {
	ids, err := loadUnconfirmed(tx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != cid {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	if len(kept) == 0 {
		return tx.KVDelete(unconfirmedKey)
	}
	return tx.KVPut(unconfirmedKey, kept)
}

// UnconfirmedCampaigns lists campaigns whose submission awaits Reconcile.
func (s *Settlement) UnconfirmedCampaigns() ([]campaign.ID, error) {
	var out []campaign.ID
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		out, err = loadUnconfirmed(tx)
		return err
	})
	return out, err
}

// Reconcile asks the host for the outcome of the campaign's unconfirmed
// submission. A mined submission is recorded under its assertion id, a
// reverted one releases the bond, and one still outstanding returns
// ErrAssertionUnconfirmed and stays reserved.
func (s *Settlement) Reconcile(ctx context.Context, cid campaign.ID) (AssertionID, error) {
	resolver, ok := s.host.(SubmissionResolver)
	if !ok {
		return AssertionID{}, fmt.Errorf("%w: host cannot look up submissions", ErrHostUnavailable)
	}
	unlock := s.locks.Lock(cid)
	defer unlock()

	p, ok, err := s.Pending(cid)
	if err != nil {
		return AssertionID{}, err
	}
	if !ok || !p.Unconfirmed() {
		if err := s.update(func(tx *state.Tx) error { return dropUnconfirmed(tx, cid) }); err != nil {
			return AssertionID{}, err
		}
		return AssertionID{}, ErrNothingToReconcile
	}
	escrow := s.host.Identity()
	id, found, err := resolver.LookupSubmission(ctx, p.TxHash)
	switch {
	case errors.Is(err, ErrSubmissionReverted):
		if rbErr := s.releaseReservation(cid, p.Asserter, escrow, p); rbErr != nil {
			return AssertionID{}, rbErr
		}
		observability.Oracle().Assertion("host_error")
		s.logger.Warn("unconfirmed submission reverted; bond released",
			slog.String("campaign", cid.Hex()),
			slog.String("tx", ethcommon.Hash(p.TxHash).Hex()))
		return AssertionID{}, fmt.Errorf("%w: %v", ErrHostUnavailable, err)
	case err != nil:
		return AssertionID{}, fmt.Errorf("%w: lookup submission: %v", ErrHostUnavailable, err)
	case !found:
		return AssertionID{}, ErrAssertionUnconfirmed
	}
	if err := s.recordAssertion(cid, id, p); err != nil {
		s.logger.Error("failed to record reconciled assertion",
			slog.String("campaign", cid.Hex()),
			slog.String("assertion", ethcommon.Hash(id).Hex()),
			slog.Any("error", err))
		if rbErr := s.releaseReservation(cid, p.Asserter, escrow, p); rbErr != nil {
			s.logger.Error("failed to release bond reservation", slog.String("campaign", cid.Hex()), slog.Any("error", rbErr))
		}
		observability.Oracle().Assertion("record_error")
		return AssertionID{}, err
	}
	observability.Oracle().Assertion("made")
	s.logger.Info("assertion reconciled",
		slog.String("campaign", cid.Hex()),
		slog.String("assertion", ethcommon.Hash(id).Hex()),
		slog.String("asserter", addrHex(p.Asserter)))
	return id, nil
}

// ReconcileAll runs Reconcile for every unconfirmed campaign and reports how
// many were recorded. Submissions still outstanding are not errors.
func (s *Settlement) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.UnconfirmedCampaigns()
	if err != nil {
		return 0, err
	}
	var (
		recorded int
		errs     []error
	)
	for _, cid := range ids {
		_, err := s.Reconcile(ctx, cid)
		switch {
		case err == nil:
			recorded++
		case errors.Is(err, ErrAssertionUnconfirmed), errors.Is(err, ErrNothingToReconcile):
		default:
			errs = append(errs, fmt.Errorf("campaign %s: %w", cid.Hex(), err))
		}
	}
	return recorded, errors.Join(errs...)
}

// OnResolved applies the host's terminal verdict. A truthful assertion becomes
// the campaign's claimable root and its bond is returned; a false one is
// deleted, tombstoned and its bond stays with the host. Repeated delivery for
// the same id fails with ErrStateConflict.
func (s *Settlement) OnResolved(caller [20]byte, id AssertionID, truthful bool) error {
	if caller != s.host.Identity() {
		return ErrUnauthorizedCallback
	}
	cid, err := s.campaignOf(id)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(cid)
	defer unlock()

	err = s.update(func(tx *state.Tx) error {
		a, err := loadAssertion(tx, id)
		if err != nil {
			return err
		}
		if a.Resolved {
			return ErrAlreadyResolved
		}
		if p, ok, err := loadPending(tx, a.CampaignID); err != nil {
			return err
		} else if ok && p.AssertionID == id {
			if err := tx.KVDelete(pendingKey(a.CampaignID)); err != nil {
				return err
			}
		}
		ts := s.now()
		if !truthful {
			if err := tx.KVDelete(assertionKey(id)); err != nil {
				return err
			}
			tx.AddEvent(newAssertionRemovedEvent(a))
			return tx.KVPut(tombstoneKey(id), ts)
		}
		a.Resolved = true
		a.ResolvedAt = ts
		if err := tx.KVPut(assertionKey(id), a); err != nil {
			return err
		}
		if a.Bond != nil && a.Bond.Sign() > 0 {
			if err := bank.Transfer(tx, s.host.Identity(), a.Asserter, a.Currency, a.Bond); err != nil {
				return fmt.Errorf("return bond: %w", err)
			}
		}
		root := &Root{Root: a.MerkleRoot, AssertionID: id, ResolvedAt: ts}
		previous := new(Root)
		if ok, err := tx.KVGet(rootKey(a.CampaignID), previous); err != nil {
			return err
		} else if ok {
			root.Epoch = previous.Epoch + 1
		} else {
			root.Epoch = 1
		}
		tx.AddEvent(newAssertionResolvedEvent(a))
		tx.AddEvent(newRootFinalizedEvent(a, root))
		return tx.KVPut(rootKey(a.CampaignID), root)
	})
	if err != nil {
		return err
	}
	observability.Oracle().Resolution(truthful)
	s.logger.Info("assertion resolved",
		slog.String("campaign", cid.Hex()),
		slog.String("assertion", ethcommon.Hash(id).Hex()),
		slog.Bool("truthful", truthful))
	return nil
}

// OnDisputed records that a dispute opened. It performs no state transition;
// only OnResolved does.
func (s *Settlement) OnDisputed(caller [20]byte, id AssertionID) error {
	if caller != s.host.Identity() {
		return ErrUnauthorizedCallback
	}
	if _, err := s.campaignOf(id); err != nil {
		return err
	}
	err := s.update(func(tx *state.Tx) error {
		a, err := loadAssertion(tx, id)
		if err != nil {
			return err
		}
		if a.Resolved {
			return ErrAlreadyResolved
		}
		if a.DisputedAt != 0 {
			return nil
		}
		a.DisputedAt = s.now()
		tx.AddEvent(newAssertionDisputedEvent(a))
		return tx.KVPut(assertionKey(id), a)
	})
	if err != nil {
		return err
	}
	observability.Oracle().Dispute()
	s.logger.Warn("assertion disputed", slog.String("assertion", ethcommon.Hash(id).Hex()))
	return nil
}

// RunReconciler calls ReconcileAll every interval until ctx is done. It
// returns at once when the host cannot look up submissions.
func (s *Settlement) RunReconciler(ctx context.Context, interval time.Duration) {
	if _, ok := s.host.(SubmissionResolver); !ok {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recorded, err := s.ReconcileAll(ctx)
			if err != nil {
				s.logger.Warn("reconcile unconfirmed submissions", slog.Any("error", err))
			}
			if recorded > 0 {
				s.logger.Info("reconciled unconfirmed submissions", slog.Int("recorded", recorded))
			}
		}
	}
}

// campaignOf resolves the campaign of a recorded assertion. An unknown id
// first reconciles outstanding submissions, since the host may report on an
// assertion whose receipt was never read. While submissions stay outstanding
// an unknown id is ErrAssertionUnconfirmed rather than not found, so the
// verdict is retried instead of dropped.
func (s *Settlement) campaignOf(id AssertionID) (campaign.ID, error) {
	cid, err := s.lookupCampaign(id)
	if !errors.Is(err, ErrAssertionNotFound) {
		return cid, err
	}
	outstanding, listErr := s.UnconfirmedCampaigns()
	if listErr != nil || len(outstanding) == 0 {
		return cid, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), reconcileTimeout)
	defer cancel()
	if _, rcErr := s.ReconcileAll(ctx); rcErr != nil {
		s.logger.Warn("reconcile before callback failed", slog.Any("error", rcErr))
	}
	cid, err = s.lookupCampaign(id)
	if !errors.Is(err, ErrAssertionNotFound) {
		return cid, err
	}
	if outstanding, listErr = s.UnconfirmedCampaigns(); listErr == nil && len(outstanding) > 0 {
		return cid, fmt.Errorf("%w: %s with %d submissions outstanding", ErrAssertionUnconfirmed, ethcommon.Hash(id).Hex(), len(outstanding))
	}
	return cid, err
}

func (s *Settlement) lookupCampaign(id AssertionID) (campaign.ID, error) {
	var cid campaign.ID
	err := s.state.View(func(tx *state.Tx) error {
		a, err := loadAssertion(tx, id)
		if err != nil {
			return err
		}
		cid = a.CampaignID
		return nil
	})
	return cid, err
}

// Assertion returns the stored assertion.
func (s *Settlement) Assertion(id AssertionID) (*Assertion, error) {
	var out *Assertion
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		out, err = loadAssertion(tx, id)
		return err
	})
	return out, err
}

// Root returns the campaign's resolved root, if any.
func (s *Settlement) Root(cid campaign.ID) (*Root, bool, error) {
	var (
		out *Root
		ok  bool
	)
	err := s.state.View(func(tx *state.Tx) error {
		out = new(Root)
		var err error
		ok, err = tx.KVGet(rootKey(cid), out)
		return err
	})
	if !ok {
		out = nil
	}
	return out, ok, err
}

// Pending returns the campaign's live assertion, if any.
func (s *Settlement) Pending(cid campaign.ID) (*Pending, bool, error) {
	var (
		out *Pending
		ok  bool
	)
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		out, ok, err = loadPending(tx, cid)
		return err
	})
	return out, ok, err
}

// AlreadyPaid returns the cumulative amounts paid to ap, aligned with the
// campaign's asset order.
func (s *Settlement) AlreadyPaid(cid campaign.ID, ap [20]byte) ([]*big.Int, error) {
	var out []*big.Int
	err := s.state.View(func(tx *state.Tx) error {
		var err error
		out, err = loadPaid(tx, cid, ap)
		return err
	})
	return out, err
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
