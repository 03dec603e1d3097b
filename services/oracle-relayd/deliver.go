package oraclerelayd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rewardhub/gateway/auth"
)

const callbackPath = "/v1/oracle/callbacks"

// Callback is the payload accepted by the hub's callback endpoint.
type Callback struct {
	Type        string `json:"type"`
	AssertionID string `json:"assertionId"`
	Truthful    bool   `json:"truthful,omitempty"`
}

// Key identifies the callback in the delivered set.
func (c Callback) Key() string {
	return c.Type + "/" + strings.ToLower(c.AssertionID)
}

// ErrRejected marks a callback the hub refused for a reason retrying cannot
// fix.
var ErrRejected = errors.New("callback rejected by hub")

// Deliverer signs and posts callbacks to the hub.
type Deliverer struct {
	endpoint string
	relayID  string
	secret   []byte
	client   *http.Client
	nowFn    func() time.Time
}

func NewDeliverer(hub HubConfig, secret string) *Deliverer {
	return &Deliverer{
		endpoint: strings.TrimRight(hub.URL, "/") + callbackPath,
		relayID:  hub.RelayID,
		secret:   []byte(secret),
		client:   &http.Client{Timeout: hub.Timeout.Duration, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		nowFn:    time.Now,
	}
}

// Deliver posts cb. A 409 means the hub already applied an equivalent verdict
// and counts as delivered. Authentication failures (401, 403) are transient:
// a misconfigured relay secret or host identity must not drop verdicts.
func (d *Deliverer) Deliver(ctx context.Context, cb Callback) error {
	body, err := json.Marshal(cb)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	auth.SignRequest(req, d.relayID, d.secret, uuid.NewString(), d.nowFn(), body)
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post callback: %w", err)
	}
	defer resp.Body.Close()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	default:
		return fmt.Errorf("hub returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
}
