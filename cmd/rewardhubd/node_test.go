package main

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rewardhub/config"
	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/crypto"
	"rewardhub/native/bank"
	"rewardhub/storage/journal"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Storage = config.Storage{Backend: "leveldb", Path: filepath.Join(dir, "state")}
	cfg.Journal.Path = filepath.Join(dir, "events.db")
	cfg.Gateway.JWTSecret = "jwt"
	cfg.Gateway.CallbackSecret = "relay"
	cfg.Gateway.NonceStorePath = filepath.Join(dir, "nonces")
	cfg.Ledger.Owner = crypto.DeriveAddress("ledger-owner").String()
	cfg.Ledger.FeeClaimant = crypto.DeriveAddress("fee-claimant").String()
	cfg.Oracle.Owner = crypto.DeriveAddress("oracle-owner").String()
	cfg.Oracle.VerifierAddress = crypto.DeriveAddress("oracle-settlement").String()
	cfg.Oracle.HostIdentity = crypto.DeriveAddress("oracle-localhost").String()
	cfg.Oracle.Asserters = []string{crypto.DeriveAddress("asserter").String()}
	cfg.Points = []config.PointsCap{{Provider: crypto.DeriveAddress("provider").String(), Asset: "PTS", Cap: "500"}}
	cfg.Genesis = []config.Allocation{{Address: crypto.DeriveAddress("provider").String(), Asset: "USDC", Amount: "1000"}}
	require.NoError(t, cfg.Validate())
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNodeServesGateway(t *testing.T) {
	n, err := newNode(context.Background(), testConfig(t), discardLogger())
	require.NoError(t, err)
	defer n.Close()

	require.NotNil(t, n.localHost)
	require.NotNil(t, n.journal)
	ok, err := n.settlement.IsAsserter(crypto.DeriveAddress("asserter"))
	require.NoError(t, err)
	require.True(t, ok)

	res := httptest.NewRecorder()
	n.server.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	n.server.Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/events", nil))
	require.Equal(t, http.StatusOK, res.Code)
}

func TestGenesisAppliedOnce(t *testing.T) {
	cfg := testConfig(t)
	provider := crypto.DeriveAddress("provider")

	balance := func(n *node) *big.Int {
		var out *big.Int
		require.NoError(t, n.mgr.View(func(tx *state.Tx) error {
			var err error
			out, err = bank.Balance(tx, provider, "USDC")
			return err
		}))
		return out
	}

	first, err := newNode(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.Equal(t, "1000", balance(first).String())
	require.NoError(t, first.Close())

	second, err := newNode(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	defer second.Close()
	require.Equal(t, "1000", balance(second).String())

	supply, err := second.journal.List(context.Background(), journal.Query{Type: events.TypeAssetSupply})
	require.NoError(t, err)
	require.Len(t, supply, 1)
	require.Equal(t, provider.String(), supply[0].Attributes["holder"])
}

func TestNodeRejectsUnknownHost(t *testing.T) {
	cfg := testConfig(t)
	cfg.Oracle.Host = "carrier-pigeon"
	_, err := newNode(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}
