// Package auth verifies bearer tokens issued by the external identity provider.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sierra-distribution/sierra/internal/shared"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = fmt.Errorf("invalid token: %w", shared.ErrUnauthorized)

// Claims are the token fields the service relies on.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewVerifier constructs a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

// Verify parses and validates raw, returning the principal it names.
func (v *Verifier) Verify(raw string) (shared.Principal, error) {
	if v == nil || len(v.secret) == 0 {
		return shared.Principal{}, errors.New("auth: verifier not configured")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return shared.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return shared.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return shared.Principal{UserID: claims.Subject, Email: claims.Email}, nil
}
