// Package gateway exposes the campaign ledger and the oracle settlement module
// over HTTP.
package gateway

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rewardhub/core/events"
	"rewardhub/gateway/auth"
	"rewardhub/gateway/middleware"
	"rewardhub/native/campaign"
	"rewardhub/native/oracle"
	"rewardhub/storage/journal"
)

// Scopes granted to bearer tokens.
const (
	ScopeCampaigns = "campaigns"
	ScopeClaims    = "claims"
	ScopeFees      = "fees"
	ScopeOracle    = "oracle"
)

// Ledger is the subset of campaign.Engine served over HTTP.
type Ledger interface {
	CreateCampaign(caller [20]byte, req campaign.CreateRequest) (campaign.ID, error)
	Campaign(id campaign.ID) (*campaign.Campaign, error)
	Incentives(id campaign.ID) ([]campaign.Incentive, error)
	AddIncentives(caller [20]byte, id campaign.ID, assets []string, amounts []*big.Int, extraParams []byte) error
	RemoveIncentives(caller [20]byte, id campaign.ID, assets []string, amounts []*big.Int) error
	AddCoProvider(caller [20]byte, id campaign.ID, principal [20]byte) error
	RemoveCoProvider(caller [20]byte, id campaign.ID, principal [20]byte) error
	Claim(ap [20]byte, id campaign.ID, params []byte) (*campaign.ClaimResult, error)
	ClaimBatch(ap [20]byte, entries []campaign.ClaimEntry) []campaign.ClaimResult
	ClaimFees(caller [20]byte, asset string, to [20]byte) (*big.Int, error)
	FeeBalance(claimant [20]byte, asset string) (*big.Int, error)
}

// Settlement is the subset of oracle.Settlement served over HTTP.
type Settlement interface {
	Address() [20]byte
	AssertRoot(ctx context.Context, caller [20]byte, cid campaign.ID, root [32]byte, bond *big.Int) (oracle.AssertionID, error)
	Assertion(id oracle.AssertionID) (*oracle.Assertion, error)
	Root(cid campaign.ID) (*oracle.Root, bool, error)
	OnResolved(caller [20]byte, id oracle.AssertionID, truthful bool) error
	OnDisputed(caller [20]byte, id oracle.AssertionID) error
}

// Config wires the gateway.
type Config struct {
	Auth        middleware.AuthConfig
	RateLimits  map[string]middleware.RateLimit
	CORS        middleware.CORSConfig
	LogRequests bool
	// HostIdentity is the principal relayed callbacks are attributed to.
	HostIdentity  [20]byte
	AssertTimeout time.Duration
}

// Server serves the HTTP API.
type Server struct {
	cfg        Config
	ledger     Ledger
	settlement Settlement
	hub        *events.Hub
	journal    *journal.Journal
	callbacks  *auth.Verifier
	logger     *slog.Logger

	authn   *middleware.Authenticator
	limiter *middleware.RateLimiter
	obs     *middleware.Observability
}

// NewServer builds a server. hub, journal and callbacks are optional; the
// routes they back answer 503 when absent.
func NewServer(cfg Config, ledger Ledger, settlement Settlement, hub *events.Hub, j *journal.Journal, callbacks *auth.Verifier, logger *slog.Logger) *Server {
	if ledger == nil {
		panic("ledger required")
	}
	if settlement == nil {
		panic("settlement required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AssertTimeout <= 0 {
		cfg.AssertTimeout = 2 * time.Minute
	}
	logger = logger.With(slog.String("component", "gateway"))
	return &Server{
		cfg:        cfg,
		ledger:     ledger,
		settlement: settlement,
		hub:        hub,
		journal:    j,
		callbacks:  callbacks,
		logger:     logger,
		authn:      middleware.NewAuthenticator(cfg.Auth, logger),
		limiter:    middleware.NewRateLimiter(cfg.RateLimits, logger),
		obs:        middleware.NewObservability(logger, cfg.LogRequests),
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.Router(), "rewardhub-gateway")
}

// Router builds the chi route table.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CORS(s.cfg.CORS))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.With(s.protected("campaigns.create", ScopeCampaigns)...).Post("/", s.handleCreateCampaign)
			r.With(s.public("campaigns.get")...).Get("/{id}", s.handleGetCampaign)
			r.With(s.protected("campaigns.incentives", ScopeCampaigns)...).Post("/{id}/incentives", s.handleAddIncentives)
			r.With(s.protected("campaigns.incentives", ScopeCampaigns)...).Post("/{id}/incentives/remove", s.handleRemoveIncentives)
			r.With(s.protected("campaigns.coproviders", ScopeCampaigns)...).Post("/{id}/coproviders", s.handleAddCoProvider)
			r.With(s.protected("campaigns.coproviders", ScopeCampaigns)...).Delete("/{id}/coproviders/{addr}", s.handleRemoveCoProvider)
		})
		r.With(s.protected("claims", ScopeClaims)...).Post("/claims", s.handleClaims)
		r.With(s.protected("fees.claim", ScopeFees)...).Post("/fees/claim", s.handleClaimFees)
		r.With(s.public("fees.balance")...).Get("/fees/{claimant}/{asset}", s.handleFeeBalance)

		r.With(s.protected("oracle.assert", ScopeOracle)...).Post("/oracle/assertions", s.handleAssertRoot)
		r.With(s.public("oracle.assertion")...).Get("/oracle/assertions/{id}", s.handleGetAssertion)
		r.With(s.obs.Middleware("oracle.callback"), s.limiter.Middleware("oracle.callback")).Post("/oracle/callbacks", s.handleCallback)

		r.With(s.public("events.list")...).Get("/events", s.handleListEvents)
		r.With(s.obs.Middleware("events.stream")).Get("/events/ws", s.handleEventStream)
	})
	return r
}

func (s *Server) public(route string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{s.obs.Middleware(route), s.limiter.Middleware(route)}
}

func (s *Server) protected(route string, scopes ...string) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{s.obs.Middleware(route), s.authn.Middleware(scopes...), s.limiter.Middleware(route)}
}
