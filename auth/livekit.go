package auth

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/voixagent/voixagent/auth/jwt"
	"github.com/voixagent/voixagent/errors"
)

// VideoGrant is the room permission block of a LiveKit token.
type VideoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

// AccessClaims is the payload LiveKit expects.
type AccessClaims struct {
	gojwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
}

// Token is the response handed to a client.
type Token struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// TokenService issues room tokens.
type TokenService struct {
	cfg    LiveKitConfig
	signer *jwt.Signer[*AccessClaims]
}

// NewTokenService creates a TokenService. It fails with a configuration
// error when any LiveKit credential is missing.
func NewTokenService(cfg LiveKitConfig) (*TokenService, error) {
	cfg.ApplyDefaults()
	if !cfg.Configured() {
		return nil, errors.Configuration("LIVEKIT env not set: url, api_key and api_secret are required")
	}
	signer, err := jwt.NewSigner(jwt.Config{Secret: cfg.APISecret, Method: "HS256", Issuer: cfg.APIKey},
		func() *AccessClaims { return new(AccessClaims) })
	if err != nil {
		return nil, errors.Configuration(err.Error())
	}
	return &TokenService{cfg: cfg, signer: signer}, nil
}

// WithClock returns a copy that stamps tokens using now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	return &TokenService{cfg: s.cfg, signer: s.signer.WithClock(now)}
}

// Issue creates a token letting identity join room with publish and
// subscribe rights but without room creation.
func (s *TokenService) Issue(room, identity string) (Token, error) {
	now := s.signer.Now()
	claims := &AccessClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    s.signer.Issuer(),
			Subject:   identity,
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.cfg.TTL())),
		},
		Name:             identity,
		Video: &VideoGrant{
			Room:         room,
			RoomJoin:     true,
			CanPublish:   true,
			CanSubscribe: true,
		},
	}
	signed, err := s.signer.Sign(claims)
	if err != nil {
		return Token{}, errors.Internal(err)
	}
	return Token{Token: signed, URL: s.cfg.URL}, nil
}

// Verify parses a token issued by this service.
func (s *TokenService) Verify(token string) (*AccessClaims, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, errors.Unauthorized("invalid access token").WithCause(err)
	}
	return claims, nil
}
