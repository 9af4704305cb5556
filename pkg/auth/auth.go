// Package auth signs and verifies the HS256 bearer tokens accepted by the
// /rag/* routes when a secret is configured.
// Leaf package with no domain dependencies. Used by internal/api/middleware
// and by the CLI when it calls a protected server.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultExpiry is the lifetime of tokens minted by Sign.
const DefaultExpiry = 24 * time.Hour

// ErrNoSecret is returned by NewSigner for an empty secret.
var ErrNoSecret = errors.New("auth: empty signing secret")

// Claims are the token claims. Subject names the caller (a user or a tool).
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and checks tokens with one shared secret.
type Signer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewSigner returns a Signer. expiry <= 0 means DefaultExpiry.
func NewSigner(secret string, expiry time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Signer{secret: []byte(secret), expiry: expiry, now: time.Now}, nil
}

// Sign mints a token for subject.
func (s *Signer) Sign(subject, scope string) (string, error) {
	now := s.now()
	claims := &Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// Parse validates tokenString and returns its claims. Expired, malformed or
// non-HMAC tokens are rejected.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method is HMAC-SHA256 (prevent algorithm substitution attacks)
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT claims or signature")
	}
	return claims, nil
}
