package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	coreerrors "rewardhub/core/errors"
	"rewardhub/native/campaign"
	nativecommon "rewardhub/native/common"
	"rewardhub/native/oracle"
)

type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class,omitempty"`
}

// statusFor maps a ledger error to an HTTP status by its class.
func statusFor(err error) int {
	switch {
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, campaign.ErrCampaignNotFound), errors.Is(err, oracle.ErrAssertionNotFound):
		return http.StatusNotFound
	}
	switch coreerrors.Classify(err) {
	case coreerrors.ErrValidation:
		return http.StatusBadRequest
	case coreerrors.ErrAuthorization:
		return http.StatusForbidden
	case coreerrors.ErrEconomicInvariant:
		return http.StatusUnprocessableEntity
	case coreerrors.ErrStateConflict:
		return http.StatusConflict
	case coreerrors.ErrExternalDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func classOf(err error) string {
	if class := coreerrors.Classify(err); class != nil {
		return class.Error()
	}
	return ""
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Class: classOf(err)})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Class: coreerrors.ErrValidation.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
