package middleware

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rewardhub/observability"
	telemetry "rewardhub/observability/otel"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

type Observability struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	logRequests bool
}

func NewObservability(logger *slog.Logger, logRequests bool) *Observability {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observability{logger: logger, tracer: telemetry.Tracer("gateway"), logRequests: logRequests}
}

// Middleware opens a span per request and records latency under route.
func (o *Observability) Middleware(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, requestID)
			ctx, span := o.tracer.Start(r.Context(), route, trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("request.id", requestID),
			))
			defer span.End()

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r.WithContext(ctx))

			span.SetAttributes(attribute.Int("http.status_code", recorder.status))
			if recorder.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(recorder.status))
			}
			elapsed := time.Since(start)
			observability.Gateway().Observe(route, r.Method, recorder.status, elapsed)
			if o.logRequests {
				o.logger.Info("request served",
					slog.String("route", route),
					slog.String("method", r.Method),
					slog.Int("status", recorder.status),
					slog.String("request_id", requestID),
					slog.Duration("duration", elapsed))
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is required by the websocket upgrader.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}
