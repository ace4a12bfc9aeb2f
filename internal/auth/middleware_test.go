package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sierra-distribution/sierra/internal/shared"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) Claims {
	return Claims{
		Email: sub + "@sierra.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "sierra-test",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	v := NewVerifier(testSecret, "sierra-test")
	p, err := v.Verify(signToken(t, testSecret, validClaims("user-1")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "user-1@sierra.test", p.Email)
}

func TestVerifierRejects(t *testing.T) {
	v := NewVerifier(testSecret, "sierra-test")

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongIssuer := validClaims("user-1")
	wrongIssuer.Issuer = "someone-else"

	noSubject := validClaims("")

	noExpiry := validClaims("user-1")
	noExpiry.ExpiresAt = nil

	cases := map[string]string{
		"wrong secret": signToken(t, "other", validClaims("user-1")),
		"expired":      signToken(t, testSecret, expired),
		"wrong issuer": signToken(t, testSecret, wrongIssuer),
		"no subject":   signToken(t, testSecret, noSubject),
		"no expiry":    signToken(t, testSecret, noExpiry),
		"garbage":      "not-a-jwt",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(raw)
			require.ErrorIs(t, err, shared.ErrUnauthorized)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret, "")
	var seen shared.Principal
	h := Middleware(v, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, validClaims("user-9")))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-9", seen.UserID)
}
