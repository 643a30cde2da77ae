// Package jwt signs and verifies HMAC JSON Web Tokens carrying a
// caller-defined claims type.
//
//	type RoomClaims struct {
//	    jwt.RegisteredClaims
//	    Room string `json:"room"`
//	}
//
//	s, err := jwt.NewSigner(cfg, func() *RoomClaims { return new(RoomClaims) })
//	token, err := s.Sign(&RoomClaims{Room: "lobby"})
//	claims, err := s.Verify(token)
package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// RegisteredClaims re-exports the standard claim set for embedding.
type RegisteredClaims = gojwt.RegisteredClaims

// Signer is safe for concurrent use.
type Signer[T gojwt.Claims] struct {
	method gojwt.SigningMethod
	key    []byte
	issuer string
	fresh  func() T
	now    func() time.Time
}

// NewSigner validates cfg. fresh returns the empty claims Verify decodes into.
func NewSigner[T gojwt.Claims](cfg Config, fresh func() T) (*Signer[T], error) {
	m, err := cfg.method()
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	return &Signer[T]{method: m, key: []byte(cfg.Secret), issuer: cfg.Issuer, fresh: fresh, now: time.Now}, nil
}

// WithClock returns a copy reading time from now.
func (s *Signer[T]) WithClock(now func() time.Time) *Signer[T] {
	cp := *s
	cp.now = now
	return &cp
}

// Now is the signer's clock, for stamping claims before Sign.
func (s *Signer[T]) Now() time.Time { return s.now() }

// Issuer is the configured "iss" value.
func (s *Signer[T]) Issuer() string { return s.issuer }

func (s *Signer[T]) Sign(claims T) (string, error) {
	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, time claims and issuer.
func (s *Signer[T]) Verify(token string) (T, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.method.Alg()}),
		gojwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}
	claims := s.fresh()
	if _, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) { return s.key, nil }, opts...); err != nil {
		var zero T
		return zero, fmt.Errorf("jwt: verify: %w", err)
	}
	return claims, nil
}
