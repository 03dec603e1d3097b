package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	// ErrSubmissionUnconfirmed marks a submission that left the host adapter
	// but whose outcome is unknown. The bond must not be released.
	ErrSubmissionUnconfirmed = errors.New("oracle host: submission sent but unconfirmed")
	// ErrSubmissionReverted marks a submission known to have failed.
	ErrSubmissionReverted = errors.New("oracle host: submission reverted")
)

// UnconfirmedError is returned by SubmitAssertion once a submission has been
// sent but its result could not be read.
type UnconfirmedError struct {
	TxHash [32]byte
	Err    error
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("oracle host: submission %s unconfirmed: %v", ethcommon.Hash(e.TxHash).Hex(), e.Err)
}

func (e *UnconfirmedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubmissionUnconfirmed}
	}
	return []error{ErrSubmissionUnconfirmed, e.Err}
}

// AssertionRequest is everything the host needs to open an assertion.
type AssertionRequest struct {
	Claim    []byte
	Asserter [20]byte
	Callback [20]byte
	Currency string
	Bond     *big.Int
	Liveness uint64
}

// Host is the outbound boundary to the external optimistic oracle. Identity is
// the principal allowed to deliver resolution callbacks; it also holds posted
// bonds inside the ledger.
type Host interface {
	Identity() [20]byte
	SubmitAssertion(ctx context.Context, req AssertionRequest) (AssertionID, error)
	MinimumBond(ctx context.Context, currency string) (*big.Int, error)
}

// SubmissionResolver is implemented by hosts that can look up the outcome of
// a submission previously reported as unconfirmed. found is false while the
// submission is still outstanding; a failed submission returns
// ErrSubmissionReverted.
type SubmissionResolver interface {
	LookupSubmission(ctx context.Context, txHash [32]byte) (id AssertionID, found bool, err error)
}

// Callbacks is the inbound port the host drives once an assertion settles or
// is disputed.
type Callbacks interface {
	OnResolved(caller [20]byte, id AssertionID, truthful bool) error
	OnDisputed(caller [20]byte, id AssertionID) error
}
