package oracle

import coreerrors "rewardhub/core/errors"

var (
	ErrInvalidRoot          = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: merkle root required")
	ErrInvalidActionParams  = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: invalid action params")
	ErrInvalidWindow        = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: campaign window invalid")
	ErrCampaignEnded        = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: campaign window has ended")
	ErrInvalidClaimParams   = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: invalid claim params")
	ErrNoResolvedRoot       = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: no resolved root for campaign")
	ErrStaleEpoch           = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: proof epoch does not match resolved root")
	ErrInvalidProof         = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: merkle proof invalid")
	ErrCumulativeRegression = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: cumulative amount below already paid")
	ErrAssertionNotFound    = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: assertion not found")
	ErrInsufficientBond     = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: asserter cannot cover bond")
	ErrInvalidLiveness      = coreerrors.Wrap(coreerrors.ErrValidation, "oracle: liveness must be positive")
	ErrUnauthorizedAsserter = coreerrors.Wrap(coreerrors.ErrAuthorization, "oracle: caller is neither campaign owner nor whitelisted asserter")
	ErrUnauthorizedCallback = coreerrors.Wrap(coreerrors.ErrAuthorization, "oracle: callback caller is not the oracle host")
	ErrNotOwner             = coreerrors.Wrap(coreerrors.ErrAuthorization, "oracle: caller is not the settlement owner")
	ErrVerifierMismatch     = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: campaign is bound to another verifier")
	ErrAssertionPending     = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: campaign already has a live assertion")
	ErrAlreadyResolved      = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: assertion already resolved")
	ErrAssertionRemoved     = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: assertion was resolved false and removed")
	ErrDuplicateAssertionID = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: host reused an assertion id")
	ErrParamsUninitialised  = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: settlement parameters not initialised")
	ErrExceedsCeiling       = coreerrors.Wrap(coreerrors.ErrEconomicInvariant, "oracle: amount exceeds not-yet-emitted remainder")
	ErrNothingToReconcile   = coreerrors.Wrap(coreerrors.ErrStateConflict, "oracle: campaign has no unconfirmed submission")
	ErrHostUnavailable      = coreerrors.Wrap(coreerrors.ErrExternalDependency, "oracle: host unavailable")
	ErrAssertionUnconfirmed = coreerrors.Wrap(coreerrors.ErrExternalDependency, "oracle: assertion sent but not yet confirmed")
)
