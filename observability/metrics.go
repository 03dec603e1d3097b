package observability

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coreerrors "rewardhub/core/errors"
)

const namespace = "rewardhub"

type gatewayMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	gatewayMetricsOnce sync.Once
	gatewayRegistry    *gatewayMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics

	oracleMetricsOnce sync.Once
	oracleRegistry    *OracleMetrics
)

// Gateway returns the lazily-initialised registry used to record HTTP API
// activity.
func Gateway() *gatewayMetrics {
	gatewayMetricsOnce.Do(func() {
		gatewayRegistry = &gatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route, method and outcome.",
			}, []string{"route", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route, method and status code.",
			}, []string{"route", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"route", "reason"}),
		}
		prometheus.MustRegister(
			gatewayRegistry.requests,
			gatewayRegistry.errors,
			gatewayRegistry.latency,
			gatewayRegistry.throttles,
		)
	})
	return gatewayRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *gatewayMetrics) Observe(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(route, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(route, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied route and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *gatewayMetrics) RecordThrottle(route, reason string) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(route, reason).Inc()
}

// LedgerMetrics captures campaign ledger activity.
type LedgerMetrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rejected    *prometheus.CounterVec
	feesClaimed *prometheus.CounterVec
}

// Ledger returns the singleton metrics registry for the campaign ledger.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Count of ledger operations segmented by operation and error class.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for ledger operations including commit retries.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "claim_lines_rejected_total",
				Help:      "Claim lines rejected because they exceeded the unspent balance.",
			}, []string{"asset"}),
			feesClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "fees_claimed",
				Help:      "Protocol fees withdrawn by fee claimants, in base units.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.rejected,
			ledgerRegistry.feesClaimed,
		)
	})
	return ledgerRegistry
}

// Observe records the execution of a ledger operation. Failures are labelled
// with their error class rather than the message to keep cardinality bounded.
func (m *LedgerMetrics) Observe(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	m.operations.WithLabelValues(op, outcomeLabel(err)).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// LineRejected counts a claim line rejected by the ledger.
func (m *LedgerMetrics) LineRejected(asset string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(labelAsset(asset)).Inc()
}

// FeesClaimed adds a fee withdrawal to the running total.
func (m *LedgerMetrics) FeesClaimed(asset string, amount *big.Int) {
	if m == nil {
		return
	}
	m.feesClaimed.WithLabelValues(labelAsset(asset)).Add(bigToFloat(amount))
}

// OracleMetrics bundles collectors for the optimistic-oracle settlement.
type OracleMetrics struct {
	assertions  *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	disputes    prometheus.Counter
}

// Oracle returns the metrics registry for the oracle settlement.
func Oracle() *OracleMetrics {
	oracleMetricsOnce.Do(func() {
		oracleRegistry = &OracleMetrics{
			assertions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "assertions_total",
				Help:      "Root assertions segmented by outcome (made, rejected, host_error, record_error).",
			}, []string{"outcome"}),
			resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "resolutions_total",
				Help:      "Assertion resolutions delivered by the host segmented by verdict.",
			}, []string{"verdict"}),
			disputes: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "oracle",
				Name:      "disputes_total",
				Help:      "Assertions disputed on the host.",
			}),
		}
		prometheus.MustRegister(oracleRegistry.assertions, oracleRegistry.resolutions, oracleRegistry.disputes)
	})
	return oracleRegistry
}

// Assertion counts an AssertRoot attempt by outcome.
func (m *OracleMetrics) Assertion(outcome string) {
	if m == nil {
		return
	}
	if outcome = strings.TrimSpace(outcome); outcome == "" {
		outcome = "unknown"
	}
	m.assertions.WithLabelValues(outcome).Inc()
}

// Resolution counts a terminal verdict.
func (m *OracleMetrics) Resolution(truthful bool) {
	if m == nil {
		return
	}
	verdict := "false"
	if truthful {
		verdict = "truthful"
	}
	m.resolutions.WithLabelValues(verdict).Inc()
}

// Dispute counts a dispute notification.
func (m *OracleMetrics) Dispute() {
	if m == nil {
		return
	}
	m.disputes.Inc()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	switch class := coreerrors.Classify(err); {
	case errors.Is(class, coreerrors.ErrValidation):
		return "validation"
	case errors.Is(class, coreerrors.ErrAuthorization):
		return "authorization"
	case errors.Is(class, coreerrors.ErrEconomicInvariant):
		return "economic_invariant"
	case errors.Is(class, coreerrors.ErrStateConflict):
		return "state_conflict"
	case errors.Is(class, coreerrors.ErrExternalDependency):
		return "external_dependency"
	default:
		return "error"
	}
}

func labelAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
