package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingHeader indicates the Authorization header was absent
	ErrMissingHeader = errors.New("missing authorization header")

	// ErrMalformedHeader indicates the Authorization header was not "Bearer <token>"
	ErrMalformedHeader = errors.New("invalid authorization header format")

	// ErrInvalidToken is returned for every verification failure: bad
	// signature, expired, malformed payload. A single generic error avoids
	// telling an attacker which check failed.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrNoSecret indicates the signing secret was not configured. This is a
	// server misconfiguration, not a client failure, and maps to a 5xx.
	ErrNoSecret = errors.New("token signing secret not configured")
)

// Verifier validates bearer tokens against the configured signing secret.
// It only verifies; token issuance lives in the auth service.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier. The secret must come from trusted
// process configuration; an empty secret is a fatal configuration error.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: secret}, nil
}

// VerifyHeader validates an "Authorization: Bearer <token>" header value and
// returns the decoded claims. Signature and expiration are checked; any
// failure collapses to ErrInvalidToken.
func (v *Verifier) VerifyHeader(header string) (*Claims, error) {
	if header == "" {
		return nil, ErrMissingHeader
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrMalformedHeader
	}

	return v.Verify(parts[1])
}

// Verify validates a raw token string and returns the decoded claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
