// Package errors defines the error classes shared by the ledger, the oracle
// settlement module and the gateway. Module-level sentinels wrap exactly one
// class so callers can classify failures with errors.Is.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	// ErrValidation covers malformed input: mismatched arrays, duplicate
	// assets, unknown campaign or asset ids.
	ErrValidation = stderrors.New("validation error")
	// ErrAuthorization is returned when the caller lacks the role required
	// for the operation.
	ErrAuthorization = stderrors.New("authorization error")
	// ErrEconomicInvariant marks a verifier-reported amount that exceeds the
	// ledger-tracked unspent balance.
	ErrEconomicInvariant = stderrors.New("economic invariant violation")
	// ErrStateConflict signals a transition that is illegal from the current
	// state, e.g. resolving an assertion twice.
	ErrStateConflict = stderrors.New("state conflict")
	// ErrExternalDependency is surfaced when an outbound collaborator such as
	// the oracle host cannot be reached.
	ErrExternalDependency = stderrors.New("external dependency failure")
)

// Wrap builds a module sentinel that belongs to class. The message is used
// verbatim and errors.Is matches both the sentinel and the class.
func Wrap(class error, msg string) error {
	return &classified{class: class, msg: msg}
}

// Validationf formats a one-off validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classify returns the class of err, or nil when err belongs to none.
func Classify(err error) error {
	for _, class := range []error{ErrValidation, ErrAuthorization, ErrEconomicInvariant, ErrStateConflict, ErrExternalDependency} {
		if stderrors.Is(err, class) {
			return class
		}
	}
	return nil
}

type classified struct {
	class error
	msg   string
}

func (c *classified) Error() string { return c.msg }

func (c *classified) Unwrap() error { return c.class }
