package oracle

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrHostOffline       = errors.New("localhost: host offline")
	ErrUnknownAssertion  = errors.New("localhost: unknown assertion")
	ErrAlreadySettled    = errors.New("localhost: assertion already settled")
	ErrAlreadyDisputed   = errors.New("localhost: assertion already disputed")
	ErrLivenessRunning   = errors.New("localhost: liveness window still open")
	ErrAwaitingVerdict   = errors.New("localhost: disputed assertion awaits adjudication")
	ErrCallbacksNotBound = errors.New("localhost: callbacks not configured")
)

type localAssertion struct {
	req        AssertionRequest
	expiration uint64
	disputed   bool
	verdict    *bool
	settled    bool
}

// LocalHost is an in-process optimistic oracle. Assertions become settleable
// once their liveness elapses; a disputed assertion settles with the verdict
// recorded through Adjudicate.
type LocalHost struct {
	mu          sync.Mutex
	identity    [20]byte
	minimumBond *big.Int
	callbacks   Callbacks
	nowFn       func() int64
	offline     bool
	nonce       uint64
	assertions  map[AssertionID]*localAssertion
	logger      *slog.Logger
}

// NewLocalHost creates a host answering callbacks as identity.
func NewLocalHost(identity [20]byte, minimumBond *big.Int) *LocalHost {
	return &LocalHost{
		identity:    identity,
		minimumBond: cloneBigInt(minimumBond),
		nowFn:       func() int64 { return time.Now().Unix() },
		assertions:  make(map[AssertionID]*localAssertion),
		logger:      slog.Default().With(slog.String("component", "oracle-localhost")),
	}
}

// SetCallbacks binds the inbound port notified on dispute and settlement.
func (h *LocalHost) SetCallbacks(cb Callbacks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = cb
}

// SetNowFunc overrides the clock used for liveness.
func (h *LocalHost) SetNowFunc(now func() int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	h.nowFn = now
}

// SetOffline makes every outbound call fail, simulating an outage.
func (h *LocalHost) SetOffline(offline bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offline = offline
}

func (h *LocalHost) Identity() [20]byte { return h.identity }

func (h *LocalHost) MinimumBond(_ context.Context, _ string) (*big.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.offline {
		return nil, ErrHostOffline
	}
	return cloneBigInt(h.minimumBond), nil
}

func (h *LocalHost) SubmitAssertion(ctx context.Context, req AssertionRequest) (AssertionID, error) {
	if err := ctx.Err(); err != nil {
		return AssertionID{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.offline {
		return AssertionID{}, ErrHostOffline
	}
	h.nonce++
	buf := binary.BigEndian.AppendUint64([]byte("rewardhub/localhost"), h.nonce)
	var id AssertionID
	copy(id[:], ethcrypto.Keccak256(buf, req.Claim))
	h.assertions[id] = &localAssertion{req: req, expiration: uint64(h.nowFn()) + req.Liveness}
	return id, nil
}

// Dispute opens a dispute and notifies the callbacks.
func (h *LocalHost) Dispute(id AssertionID) error {
	h.mu.Lock()
	a, ok := h.assertions[id]
	switch {
	case !ok:
		h.mu.Unlock()
		return ErrUnknownAssertion
	case a.settled:
		h.mu.Unlock()
		return ErrAlreadySettled
	case a.disputed:
		h.mu.Unlock()
		return ErrAlreadyDisputed
	}
	a.disputed = true
	cb := h.callbacks
	h.mu.Unlock()
	if cb == nil {
		return ErrCallbacksNotBound
	}
	return cb.OnDisputed(h.identity, id)
}

// Adjudicate records the verdict for a disputed assertion.
func (h *LocalHost) Adjudicate(id AssertionID, truthful bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.assertions[id]
	if !ok {
		return ErrUnknownAssertion
	}
	if a.settled {
		return ErrAlreadySettled
	}
	a.verdict = &truthful
	return nil
}

// Settle finalises an assertion and delivers OnResolved. Undisputed
// assertions settle truthful after liveness; disputed ones need a verdict.
func (h *LocalHost) Settle(id AssertionID) error {
	h.mu.Lock()
	a, ok := h.assertions[id]
	if !ok {
		h.mu.Unlock()
		return ErrUnknownAssertion
	}
	if a.settled {
		h.mu.Unlock()
		return ErrAlreadySettled
	}
	truthful := true
	if a.disputed {
		if a.verdict == nil {
			h.mu.Unlock()
			return ErrAwaitingVerdict
		}
		truthful = *a.verdict
	} else if uint64(h.nowFn()) < a.expiration {
		h.mu.Unlock()
		return ErrLivenessRunning
	}
	cb := h.callbacks
	if cb == nil {
		h.mu.Unlock()
		return ErrCallbacksNotBound
	}
	a.settled = true
	h.mu.Unlock()

	if err := cb.OnResolved(h.identity, id, truthful); err != nil {
		h.mu.Lock()
		a.settled = false
		h.mu.Unlock()
		return err
	}
	return nil
}

// SettleReady settles every assertion that can settle now and returns how
// many were delivered.
func (h *LocalHost) SettleReady() int {
	h.mu.Lock()
	now := uint64(h.nowFn())
	var ready []AssertionID
	for id, a := range h.assertions {
		if a.settled {
			continue
		}
		if (a.disputed && a.verdict != nil) || (!a.disputed && now >= a.expiration) {
			ready = append(ready, id)
		}
	}
	h.mu.Unlock()

	settled := 0
	for _, id := range ready {
		if err := h.Settle(id); err != nil {
			h.logger.Warn("settle failed", slog.String("assertion", ethcommon.Hash(id).Hex()), slog.Any("error", err))
			continue
		}
		settled++
	}
	return settled
}

// Run settles ready assertions every interval until ctx is cancelled.
func (h *LocalHost) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SettleReady()
		}
	}
}
