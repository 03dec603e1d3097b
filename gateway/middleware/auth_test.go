package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"rewardhub/crypto"
)

const testSecret = "jwt-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func serveWithToken(a *Authenticator, token string, scopes ...string) (*httptest.ResponseRecorder, [20]byte) {
	var seen [20]byte
	handler := a.Middleware(scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, seen
}

func TestAuthenticatorResolvesPrincipal(t *testing.T) {
	principal := crypto.DeriveAddress("provider")
	a := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "rewardhub"}, nil)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   principal.String(),
		"iss":   "rewardhub",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "campaigns:write claims:write",
	})

	res, seen := serveWithToken(a, token, "campaigns:write")
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, [20]byte(principal), seen)
}

func TestAuthenticatorRejections(t *testing.T) {
	principal := crypto.DeriveAddress("provider").Hex()
	a := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "rewardhub"}, nil)
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		token  string
		scopes []string
		status int
	}{
		{name: "missing", token: "", status: http.StatusUnauthorized},
		{name: "wrong secret", token: signToken(t, "other", jwt.MapClaims{"sub": principal, "iss": "rewardhub", "exp": exp}), status: http.StatusUnauthorized},
		{name: "wrong issuer", token: signToken(t, testSecret, jwt.MapClaims{"sub": principal, "iss": "someone", "exp": exp}), status: http.StatusUnauthorized},
		{name: "expired", token: signToken(t, testSecret, jwt.MapClaims{"sub": principal, "iss": "rewardhub", "exp": time.Now().Add(-time.Hour).Unix()}), status: http.StatusUnauthorized},
		{name: "no expiry", token: signToken(t, testSecret, jwt.MapClaims{"sub": principal, "iss": "rewardhub"}), status: http.StatusUnauthorized},
		{name: "bad subject", token: signToken(t, testSecret, jwt.MapClaims{"sub": "alice", "iss": "rewardhub", "exp": exp}), status: http.StatusUnauthorized},
		{name: "missing scope", token: signToken(t, testSecret, jwt.MapClaims{"sub": principal, "iss": "rewardhub", "exp": exp, "scope": "claims:write"}), scopes: []string{"campaigns:write"}, status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := serveWithToken(a, tc.token, tc.scopes...)
			require.Equal(t, tc.status, res.Code)
		})
	}
}

func TestCORSReflectsAllowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/campaigns", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://app.example", res.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/campaigns", nil)
	req.Header.Set("Origin", "https://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}
