package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	coreerrors "rewardhub/core/errors"
	"rewardhub/native/oracle"
)

// Callback types posted by the oracle relay.
const (
	CallbackResolved = "resolved"
	CallbackDisputed = "disputed"
)

// handleCallback applies a relayed oracle verdict. Only requests signed by a
// registered relay reach the settlement module, and they are attributed to the
// configured host identity.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.callbacks == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "oracle callbacks not configured"})
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	principal, err := s.callbacks.Verify(r, body)
	if err != nil {
		s.logger.Warn("callback rejected", slog.Any("error", err))
		writeJSON(w, statusFor(coreerrors.ErrAuthorization), errorResponse{Error: err.Error(), Class: coreerrors.ErrAuthorization.Error()})
		return
	}
	var req callbackRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	id, err := parseHash("assertionId", req.AssertionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	switch req.Type {
	case CallbackResolved:
		err = s.settlement.OnResolved(s.cfg.HostIdentity, oracle.AssertionID(id), req.Truthful)
	case CallbackDisputed:
		err = s.settlement.OnDisputed(s.cfg.HostIdentity, oracle.AssertionID(id))
	default:
		err = coreerrors.Validationf("unknown callback type %q", req.Type)
	}
	if err != nil {
		if !errors.Is(err, oracle.ErrAlreadyResolved) {
			s.logger.Warn("callback failed",
				slog.String("relay", principal.RelayID),
				slog.String("type", req.Type),
				slog.String("assertion", req.AssertionID),
				slog.Any("error", err))
		}
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("callback applied",
		slog.String("relay", principal.RelayID),
		slog.String("type", req.Type),
		slog.String("assertion", req.AssertionID))
	w.WriteHeader(http.StatusNoContent)
}
