package campaign

import coreerrors "rewardhub/core/errors"

var (
	ErrCampaignNotFound     = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: campaign not found")
	ErrUnknownAsset         = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: asset not part of campaign")
	ErrDuplicateAsset       = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: duplicate asset")
	ErrLengthMismatch       = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: assets and amounts length mismatch")
	ErrEmptyIncentives      = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: no incentives supplied")
	ErrTooManyAssets        = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: too many assets")
	ErrInvalidAmount        = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: amount must be positive")
	ErrUnknownVerifier      = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: verifier not registered")
	ErrInvalidFeeRate       = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: fee rate exceeds 100%")
	ErrInvalidRecipient     = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: recipient required")
	ErrPointsCapExceeded    = coreerrors.Wrap(coreerrors.ErrValidation, "campaign: points spend cap exceeded")
	ErrUnauthorized         = coreerrors.Wrap(coreerrors.ErrAuthorization, "campaign: unauthorized")
	ErrNotOwner             = coreerrors.Wrap(coreerrors.ErrAuthorization, "campaign: caller is not the campaign owner")
	ErrNotLedgerOwner       = coreerrors.Wrap(coreerrors.ErrAuthorization, "campaign: caller is not the ledger owner")
	ErrExceedsUnspent       = coreerrors.Wrap(coreerrors.ErrEconomicInvariant, "campaign: amount exceeds unspent balance")
	ErrExceedsCeiling       = coreerrors.Wrap(coreerrors.ErrEconomicInvariant, "campaign: amount exceeds verifier unspent ceiling")
	ErrFeeOverflow          = coreerrors.Wrap(coreerrors.ErrEconomicInvariant, "campaign: fee computation overflow")
	ErrVerifierMisbehaviour = coreerrors.Wrap(coreerrors.ErrStateConflict, "campaign: verifier returned malformed result")
	ErrParamsUninitialised  = coreerrors.Wrap(coreerrors.ErrStateConflict, "campaign: ledger parameters not initialised")
)
