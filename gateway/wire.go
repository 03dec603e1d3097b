package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	coreerrors "rewardhub/core/errors"
	"rewardhub/crypto"
	"rewardhub/native/campaign"
	"rewardhub/native/oracle"
)

const maxRequestBody = 1 << 20

type incentiveJSON struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type createCampaignRequest struct {
	Verifier     string          `json:"verifier"`
	ActionParams string          `json:"actionParams,omitempty"`
	Description  string          `json:"description,omitempty"`
	StartTime    uint64          `json:"startTime"`
	EndTime      uint64          `json:"endTime"`
	Incentives   []incentiveJSON `json:"incentives"`
}

type incentivesRequest struct {
	Incentives  []incentiveJSON `json:"incentives"`
	ExtraParams string          `json:"extraParams,omitempty"`
}

type coProviderRequest struct {
	Principal string `json:"principal"`
}

type oracleClaimJSON struct {
	Epoch             uint64   `json:"epoch"`
	CumulativeAmounts []string `json:"cumulativeAmounts"`
	Proof             []string `json:"proof"`
}

type claimEntryJSON struct {
	CampaignID string           `json:"campaignId"`
	Params     string           `json:"params,omitempty"`
	Oracle     *oracleClaimJSON `json:"oracle,omitempty"`
}

type claimsRequest struct {
	Claims []claimEntryJSON `json:"claims"`
}

type claimFeesRequest struct {
	Asset string `json:"asset"`
	To    string `json:"to"`
}

type assertRootRequest struct {
	CampaignID string `json:"campaignId"`
	Root       string `json:"root"`
	Bond       string `json:"bond,omitempty"`
}

type callbackRequest struct {
	Type        string `json:"type"`
	AssertionID string `json:"assertionId"`
	Truthful    bool   `json:"truthful"`
}

type incentiveView struct {
	Asset   string `json:"asset"`
	Gross   string `json:"gross"`
	Debited string `json:"debited"`
	Unspent string `json:"unspent"`
}

type rootView struct {
	Root        string `json:"root"`
	Epoch       uint64 `json:"epoch"`
	AssertionID string `json:"assertionId"`
	ResolvedAt  uint64 `json:"resolvedAt"`
}

type campaignView struct {
	ID                string          `json:"id"`
	Owner             string          `json:"owner"`
	Verifier          string          `json:"verifier"`
	ActionParams      string          `json:"actionParams,omitempty"`
	StartTime         uint64          `json:"startTime"`
	EndTime           uint64          `json:"endTime"`
	FeeRate           string          `json:"feeRate"`
	FeeClaimant       string          `json:"feeClaimant"`
	CoProviderRemoval bool            `json:"coProviderRemoval"`
	CreatedAt         uint64          `json:"createdAt"`
	Incentives        []incentiveView `json:"incentives"`
	Root              *rootView       `json:"root,omitempty"`
}

type lineView struct {
	Asset string `json:"asset"`
	Owed  string `json:"owed"`
	Net   string `json:"net"`
	Fee   string `json:"fee"`
	Error string `json:"error,omitempty"`
}

type claimResultView struct {
	CampaignID string     `json:"campaignId"`
	Lines      []lineView `json:"lines,omitempty"`
	Error      string     `json:"error,omitempty"`
}

type assertionView struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaignId"`
	MerkleRoot string `json:"merkleRoot"`
	Asserter   string `json:"asserter"`
	Bond       string `json:"bond"`
	Currency   string `json:"currency"`
	AssertedAt uint64 `json:"assertedAt"`
	Resolved   bool   `json:"resolved"`
	ResolvedAt uint64 `json:"resolvedAt,omitempty"`
	DisputedAt uint64 `json:"disputedAt,omitempty"`
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRequestBody {
		return nil, fmt.Errorf("request body exceeds %d bytes", maxRequestBody)
	}
	return data, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func parseAddress(field, raw string) ([20]byte, error) {
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, coreerrors.Validationf("%s: %v", field, err)
	}
	return addr, nil
}

func parseCampaignID(raw string) (campaign.ID, error) {
	id, ok := campaign.ParseID(raw)
	if !ok {
		return id, coreerrors.Validationf("invalid campaign id %q", raw)
	}
	return id, nil
}

func parseHash(field, raw string) ([32]byte, error) {
	var out [32]byte
	decoded, err := hexutil.Decode(raw)
	if err != nil || len(decoded) != len(out) {
		return out, coreerrors.Validationf("%s: expected 32-byte 0x hex", field)
	}
	copy(out[:], decoded)
	return out, nil
}

func parseHexBytes(field, raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	decoded, err := hexutil.Decode(raw)
	if err != nil {
		return nil, coreerrors.Validationf("%s: %v", field, err)
	}
	return decoded, nil
}

func parseAmount(field, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, coreerrors.Validationf("%s: invalid integer %q", field, raw)
	}
	return v, nil
}

func parseIncentives(list []incentiveJSON) ([]string, []*big.Int, error) {
	if len(list) == 0 {
		return nil, nil, campaign.ErrEmptyIncentives
	}
	assets := make([]string, len(list))
	amounts := make([]*big.Int, len(list))
	for i, entry := range list {
		amount, err := parseAmount(fmt.Sprintf("incentives[%d].amount", i), entry.Amount)
		if err != nil {
			return nil, nil, err
		}
		assets[i] = entry.Asset
		amounts[i] = amount
	}
	return assets, amounts, nil
}

// claimParams resolves the verifier params of a claim entry. Oracle claims
// may be supplied structurally instead of as pre-encoded hex.
func (e claimEntryJSON) claimParams() ([]byte, error) {
	if e.Oracle == nil {
		return parseHexBytes("params", e.Params)
	}
	if e.Params != "" {
		return nil, coreerrors.Validationf("params and oracle are mutually exclusive")
	}
	p := oracle.ClaimParams{Epoch: e.Oracle.Epoch}
	for i, raw := range e.Oracle.CumulativeAmounts {
		amount, err := parseAmount(fmt.Sprintf("oracle.cumulativeAmounts[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		p.CumulativeAmounts = append(p.CumulativeAmounts, amount)
	}
	for i, raw := range e.Oracle.Proof {
		node, err := parseHash(fmt.Sprintf("oracle.proof[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		p.Proof = append(p.Proof, node)
	}
	return oracle.EncodeClaimParams(p)
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func hashHex(h [32]byte) string { return ethcommon.Hash(h).Hex() }

func principalString(addr [20]byte) string { return crypto.Address(addr).String() }

func newCampaignView(c *campaign.Campaign, incentives []campaign.Incentive) campaignView {
	view := campaignView{
		ID:                c.ID.Hex(),
		Owner:             principalString(c.Owner),
		Verifier:          principalString(c.Verifier),
		StartTime:         c.StartTime,
		EndTime:           c.EndTime,
		FeeRate:           amountString(c.FeeRate),
		FeeClaimant:       principalString(c.FeeClaimant),
		CoProviderRemoval: c.CoProviderRemoval,
		CreatedAt:         c.CreatedAt,
	}
	if len(c.ActionParams) > 0 {
		view.ActionParams = hexutil.Encode(c.ActionParams)
	}
	for _, inc := range incentives {
		view.Incentives = append(view.Incentives, incentiveView{
			Asset:   inc.Asset,
			Gross:   amountString(inc.Gross),
			Debited: amountString(inc.Debited),
			Unspent: amountString(inc.Unspent),
		})
	}
	return view
}

func newClaimResultView(res campaign.ClaimResult) claimResultView {
	view := claimResultView{CampaignID: res.CampaignID.Hex()}
	if res.Err != nil {
		view.Error = res.Err.Error()
	}
	for _, line := range res.Lines {
		lv := lineView{Asset: line.Asset, Owed: amountString(line.Owed), Net: amountString(line.Net), Fee: amountString(line.Fee)}
		if line.Err != nil {
			lv.Error = line.Err.Error()
		}
		view.Lines = append(view.Lines, lv)
	}
	return view
}

func newAssertionView(a *oracle.Assertion) assertionView {
	return assertionView{
		ID:         hashHex(a.ID),
		CampaignID: a.CampaignID.Hex(),
		MerkleRoot: hashHex(a.MerkleRoot),
		Asserter:   principalString(a.Asserter),
		Bond:       amountString(a.Bond),
		Currency:   a.Currency,
		AssertedAt: a.AssertedAt,
		Resolved:   a.Resolved,
		ResolvedAt: a.ResolvedAt,
		DisputedAt: a.DisputedAt,
	}
}

var errEmptyClaims = coreerrors.Wrap(coreerrors.ErrValidation, "claims: at least one entry required")
