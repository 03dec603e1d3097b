package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"rewardhub/crypto"
)

// AuthConfig configures bearer-token principals.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	ScopeClaim string
	ClockSkew  time.Duration
}

type contextKey string

const (
	contextKeyPrincipal contextKey = "gateway.principal"
	contextKeyScopes    contextKey = "gateway.scopes"
)

// Authenticator resolves the calling principal from an HMAC-signed JWT. The
// "sub" claim carries the principal address.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
}

func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ScopeClaim == "" {
		cfg.ScopeClaim = "scope"
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{cfg: cfg, logger: logger, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Middleware rejects requests without a valid token carrying every scope in
// requiredScopes.
func (a *Authenticator) Middleware(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractBearer(r.Header.Get("Authorization"))
			if tokenString == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := a.parseToken(tokenString)
			if err != nil {
				a.logger.Warn("token validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			subject, _ := claims.GetSubject()
			principal, err := crypto.ParseAddress(subject)
			if err != nil || principal.IsZero() {
				http.Error(w, "invalid token subject", http.StatusUnauthorized)
				return
			}
			scopes := extractScopes(claims, a.cfg.ScopeClaim)
			if !hasScopes(scopes, requiredScopes) {
				http.Error(w, "insufficient scope", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), contextKeyPrincipal, [20]byte(principal))
			ctx = context.WithValue(ctx, contextKeyScopes, scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the authenticated caller.
func PrincipalFromContext(ctx context.Context) ([20]byte, bool) {
	principal, ok := ctx.Value(contextKeyPrincipal).([20]byte)
	return principal, ok
}

// WithPrincipal attaches principal to ctx.
func WithPrincipal(ctx context.Context, principal [20]byte) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, principal)
}

// ScopesFromContext returns the scopes granted to the caller.
func ScopesFromContext(ctx context.Context) []string {
	scopes, _ := ctx.Value(contextKeyScopes).([]string)
	return scopes
}

func (a *Authenticator) parseToken(tokenString string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("auth secret not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func extractScopes(claims jwt.MapClaims, scopeClaim string) []string {
	switch v := claims[scopeClaim].(type) {
	case string:
		return strings.Fields(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func hasScopes(scopes []string, required []string) bool {
	set := make(map[string]struct{}, len(scopes))
	for _, scope := range scopes {
		set[scope] = struct{}{}
	}
	for _, req := range required {
		if _, ok := set[req]; !ok {
			return false
		}
	}
	return true
}

func extractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
