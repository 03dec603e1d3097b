package gateway

import (
	"context"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rewardhub/gateway/middleware"
	"rewardhub/native/campaign"
	"rewardhub/native/oracle"
)

func caller(r *http.Request) [20]byte {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	return principal
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	verifier, err := parseAddress("verifier", req.Verifier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	params, err := parseHexBytes("actionParams", req.ActionParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(params) == 0 && req.Description != "" && verifier == s.settlement.Address() {
		if params, err = oracle.EncodeActionParams(oracle.ActionParams{Description: req.Description}); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	assets, amounts, err := parseIncentives(req.Incentives)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.ledger.CreateCampaign(caller(r), campaign.CreateRequest{
		Verifier:     verifier,
		ActionParams: params,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Assets:       assets,
		Amounts:      amounts,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"campaignId": id.Hex()})
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := parseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.ledger.Campaign(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	incentives, err := s.ledger.Incentives(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := newCampaignView(c, incentives)
	if c.Verifier == s.settlement.Address() {
		root, ok, err := s.settlement.Root(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if ok {
			view.Root = &rootView{Root: hashHex(root.Root), Epoch: root.Epoch, AssertionID: hashHex(root.AssertionID), ResolvedAt: root.ResolvedAt}
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAddIncentives(w http.ResponseWriter, r *http.Request) {
	id, err := parseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req incentivesRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	assets, amounts, err := parseIncentives(req.Incentives)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	extra, err := parseHexBytes("extraParams", req.ExtraParams)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.AddIncentives(caller(r), id, assets, amounts, extra); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveIncentives(w http.ResponseWriter, r *http.Request) {
	id, err := parseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req incentivesRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	assets, amounts, err := parseIncentives(req.Incentives)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.RemoveIncentives(caller(r), id, assets, amounts); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddCoProvider(w http.ResponseWriter, r *http.Request) {
	id, err := parseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req coProviderRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	principal, err := parseAddress("principal", req.Principal)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.AddCoProvider(caller(r), id, principal); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveCoProvider(w http.ResponseWriter, r *http.Request) {
	id, err := parseCampaignID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	principal, err := parseAddress("addr", chi.URLParam(r, "addr"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.ledger.RemoveCoProvider(caller(r), id, principal); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClaims settles one claim, or a batch where each entry succeeds or
// fails on its own. A single failing claim is reported with its error status.
func (s *Server) handleClaims(w http.ResponseWriter, r *http.Request) {
	var req claimsRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if len(req.Claims) == 0 {
		s.writeError(w, r, errEmptyClaims)
		return
	}
	entries := make([]campaign.ClaimEntry, len(req.Claims))
	for i, entry := range req.Claims {
		id, err := parseCampaignID(entry.CampaignID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		params, err := entry.claimParams()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		entries[i] = campaign.ClaimEntry{CampaignID: id, Params: params}
	}
	ap := caller(r)
	if len(entries) == 1 {
		res, err := s.ledger.Claim(ap, entries[0].CampaignID, entries[0].Params)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"results": []claimResultView{newClaimResultView(*res)}})
		return
	}
	results := s.ledger.ClaimBatch(ap, entries)
	views := make([]claimResultView, len(results))
	for i, res := range results {
		views[i] = newClaimResultView(res)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": views})
}

func (s *Server) handleClaimFees(w http.ResponseWriter, r *http.Request) {
	var req claimFeesRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	to, err := parseAddress("to", req.To)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount, err := s.ledger.ClaimFees(caller(r), req.Asset, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": req.Asset, "amount": amountString(amount)})
}

func (s *Server) handleFeeBalance(w http.ResponseWriter, r *http.Request) {
	claimant, err := parseAddress("claimant", chi.URLParam(r, "claimant"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset := chi.URLParam(r, "asset")
	balance, err := s.ledger.FeeBalance(claimant, asset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset, "balance": amountString(balance)})
}

func (s *Server) handleAssertRoot(w http.ResponseWriter, r *http.Request) {
	var req assertRootRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	cid, err := parseCampaignID(req.CampaignID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	root, err := parseHash("root", req.Root)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bond := new(big.Int)
	if req.Bond != "" {
		if bond, err = parseAmount("bond", req.Bond); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.AssertTimeout)
	defer cancel()
	id, err := s.settlement.AssertRoot(ctx, caller(r), cid, root, bond)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"assertionId": hashHex(id)})
}

func (s *Server) handleGetAssertion(w http.ResponseWriter, r *http.Request) {
	id, err := parseHash("id", chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.settlement.Assertion(oracle.AssertionID(id))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAssertionView(a))
}
