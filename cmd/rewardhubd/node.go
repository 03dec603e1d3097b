package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rewardhub/config"
	"rewardhub/core/events"
	"rewardhub/core/state"
	"rewardhub/gateway"
	"rewardhub/gateway/auth"
	"rewardhub/gateway/middleware"
	"rewardhub/native/bank"
	"rewardhub/native/campaign"
	nativecommon "rewardhub/native/common"
	"rewardhub/native/oracle"
	"rewardhub/storage"
	"rewardhub/storage/journal"
)

// node owns every long-lived component of rewardhubd.
type node struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         storage.Database
	mgr        *state.Manager
	ledger     *campaign.Engine
	settlement *oracle.Settlement
	localHost  *oracle.LocalHost
	hub        *events.Hub
	journal    *journal.Journal
	nonces     *auth.LevelDBNonceStore
	server     *gateway.Server
}

func newNode(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*node, error) {
	n := &node{cfg: cfg, logger: logger, hub: events.NewHub()}
	built := false
	defer func() {
		if !built {
			_ = n.Close()
		}
	}()

	var err error
	n.db, err = storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	n.mgr = state.NewManager(n.db)

	emitters := events.Multi{n.hub}
	if path := strings.TrimSpace(cfg.Journal.Path); path != "" {
		n.journal, err = journal.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		n.journal.SetLogger(logger)
		emitters = append(emitters, n.journal)
	}

	if err := n.applyGenesis(emitters); err != nil {
		return nil, err
	}

	pauses := nativecommon.NewPauses()
	pauses.Set(nativecommon.ModuleCampaign, cfg.Pauses.Campaign)
	pauses.Set(nativecommon.ModuleOracle, cfg.Pauses.Oracle)

	n.ledger = campaign.NewEngine(n.mgr)
	n.ledger.SetEmitter(emitters)
	n.ledger.SetLogger(logger)
	n.ledger.SetPauses(pauses)
	points, err := buildPoints(cfg.Points)
	if err != nil {
		return nil, err
	}
	n.ledger.SetPoints(points)
	if err := n.initLedger(); err != nil {
		return nil, err
	}

	host, err := n.buildHost(ctx)
	if err != nil {
		return nil, err
	}
	verifierAddr, err := config.ParsePrincipal(cfg.Oracle.VerifierAddress)
	if err != nil {
		return nil, err
	}
	n.settlement = oracle.NewSettlement(n.mgr, verifierAddr, host)
	n.settlement.SetEmitter(emitters)
	n.settlement.SetLogger(logger)
	n.settlement.SetPauses(pauses)
	if n.localHost != nil {
		n.localHost.SetCallbacks(n.settlement)
	}
	n.ledger.RegisterVerifier(n.settlement)
	if err := n.initSettlement(); err != nil {
		return nil, err
	}

	verifier, err := n.callbackVerifier(ctx)
	if err != nil {
		return nil, err
	}
	limit := middleware.RateLimit{RatePerSecond: cfg.Gateway.RateLimitPerSecond, Burst: cfg.Gateway.RateLimitBurst}
	limits := map[string]middleware.RateLimit{}
	for _, route := range []string{"campaigns.create", "campaigns.incentives", "campaigns.coproviders", "claims", "fees.claim", "oracle.assert", "oracle.callback"} {
		limits[route] = limit
	}
	n.server = gateway.NewServer(gateway.Config{
		Auth:         middleware.AuthConfig{HMACSecret: cfg.JWTSecret(), Issuer: cfg.Gateway.JWTIssuer},
		RateLimits:   limits,
		CORS:         middleware.CORSConfig{AllowedOrigins: cfg.Gateway.CORSOrigins},
		LogRequests:  true,
		HostIdentity: host.Identity(),
	}, n.ledger, n.settlement, n.hub, n.journal, verifier, logger)
	built = true
	return n, nil
}

func (n *node) applyGenesis(emitter events.Emitter) error {
	allocations := make([]bank.Allocation, 0, len(n.cfg.Genesis))
	for i, entry := range n.cfg.Genesis {
		addr, err := config.ParsePrincipal(entry.Address)
		if err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
		amount, err := config.ParseAmount(entry.Amount)
		if err != nil {
			return fmt.Errorf("genesis[%d]: %w", i, err)
		}
		allocations = append(allocations, bank.Allocation{Address: addr, Asset: entry.Asset, Amount: amount})
	}
	var applied bool
	evts, err := n.mgr.Update(func(tx *state.Tx) error {
		var err error
		applied, err = bank.ApplyGenesis(tx, allocations)
		return err
	})
	if err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	for _, evt := range evts {
		emitter.Emit(evt)
	}
	if applied {
		n.logger.Info("genesis applied", slog.Int("allocations", len(allocations)))
	}
	return nil
}

func buildPoints(caps []config.PointsCap) (*campaign.StaticPoints, error) {
	points := campaign.NewStaticPoints()
	for i, entry := range caps {
		provider, err := config.ParsePrincipal(entry.Provider)
		if err != nil {
			return nil, fmt.Errorf("points[%d]: %w", i, err)
		}
		limit, err := config.ParseAmount(entry.Cap)
		if err != nil {
			return nil, fmt.Errorf("points[%d]: %w", i, err)
		}
		points.Register(entry.Asset)
		points.SetCap(provider, entry.Asset, limit)
	}
	return points, nil
}

func (n *node) initLedger() error {
	owner, err := config.ParsePrincipal(n.cfg.Ledger.Owner)
	if err != nil {
		return err
	}
	claimant, err := config.ParsePrincipal(n.cfg.Ledger.FeeClaimant)
	if err != nil {
		return err
	}
	rate, err := config.ParseAmount(n.cfg.Ledger.DefaultFeeRate)
	if err != nil {
		return err
	}
	if err := n.ledger.InitParams(campaign.Params{Owner: owner, DefaultFeeRate: rate, FeeClaimant: claimant}); err != nil {
		return fmt.Errorf("init ledger params: %w", err)
	}
	return nil
}

func (n *node) initSettlement() error {
	owner, err := config.ParsePrincipal(n.cfg.Oracle.Owner)
	if err != nil {
		return err
	}
	err = n.settlement.InitParams(oracle.Params{
		Owner:        owner,
		BondCurrency: n.cfg.Oracle.BondCurrency,
		Liveness:     n.cfg.Oracle.LivenessSec,
	})
	if err != nil {
		return fmt.Errorf("init oracle params: %w", err)
	}
	for _, raw := range n.cfg.Oracle.Asserters {
		addr, err := config.ParsePrincipal(raw)
		if err != nil {
			return err
		}
		ok, err := n.settlement.IsAsserter(addr)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := n.settlement.AddAsserter(owner, addr); err != nil {
			return fmt.Errorf("whitelist asserter %s: %w", raw, err)
		}
	}
	return nil
}

func (n *node) buildHost(ctx context.Context) (oracle.Host, error) {
	switch n.cfg.Oracle.Host {
	case "local":
		identity, err := config.ParsePrincipal(n.cfg.Oracle.HostIdentity)
		if err != nil {
			return nil, err
		}
		minimum, err := config.ParseAmount(n.cfg.Oracle.Local.MinimumBond)
		if err != nil {
			return nil, err
		}
		n.localHost = oracle.NewLocalHost(identity, minimum)
		return n.localHost, nil
	case "evm":
		evm := n.cfg.Oracle.EVM
		dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		host, err := oracle.DialEVMHost(dialCtx, oracle.EVMHostConfig{
			RPCURL:            evm.RPCURL,
			OracleAddress:     evm.OracleAddress,
			PrivateKeyHex:     n.cfg.OraclePrivateKey(),
			CallbackRecipient: evm.CallbackRecipient,
			Currencies:        evm.Currencies,
			ReceiptTimeout:    config.Seconds(evm.ReceiptTimeoutSec),
		})
		if err != nil {
			return nil, err
		}
		return host, nil
	default:
		return nil, fmt.Errorf("unsupported oracle host %q", n.cfg.Oracle.Host)
	}
}

// callbackVerifier returns nil when no relay secret is configured; the
// callback route then answers 503.
func (n *node) callbackVerifier(ctx context.Context) (*auth.Verifier, error) {
	secret := n.cfg.CallbackSecret()
	if secret == "" {
		if n.cfg.Oracle.Host == "evm" {
			n.logger.Warn("no callback secret configured; relayed oracle verdicts will be refused")
		}
		return nil, nil
	}
	opts := auth.Options{}
	if path := strings.TrimSpace(n.cfg.Gateway.NonceStorePath); path != "" {
		store, err := auth.OpenLevelDBNonceStore(path)
		if err != nil {
			return nil, err
		}
		n.nonces = store
		opts.Store = store
	}
	verifier := auth.NewVerifier(map[string]string{n.cfg.Gateway.CallbackRelayID: secret}, opts)
	if err := verifier.Warm(ctx, time.Now().Add(-10*time.Minute)); err != nil {
		return nil, err
	}
	return verifier, nil
}

// Close releases storage handles. It is safe on a partially built node.
func (n *node) Close() error {
	var errs []error
	if n.nonces != nil {
		errs = append(errs, n.nonces.Close())
	}
	if n.journal != nil {
		errs = append(errs, n.journal.Close())
	}
	if n.db != nil {
		n.db.Close()
	}
	return errors.Join(errs...)
}
