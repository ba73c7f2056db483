package hooks

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/adamwoolhether/restbuilder/builder"
)

var (
	// ErrEmptyKey is returned by JWT for an empty signing key.
	ErrEmptyKey = errors.New("signing key must not be empty")
	// ErrInvalidToken is returned by OAuth2 hooks when the source hands
	// out an empty or expired token.
	ErrInvalidToken = errors.New("oauth2 token is invalid or expired")

	errNilSource = errors.New("token source must not be nil")
)

// OAuth2 sets the Authorization header from ts. Wrap ts with
// oauth2.ReuseTokenSource to cache tokens until they expire.
func OAuth2(ts oauth2.TokenSource) builder.Hook {
	return func(req builder.Request) (builder.Request, error) {
		if ts == nil {
			return builder.Request{}, errNilSource
		}

		tok, err := ts.Token()
		if err != nil {
			return builder.Request{}, fmt.Errorf("fetching oauth2 token: %w", err)
		}
		if !tok.Valid() {
			return builder.Request{}, ErrInvalidToken
		}

		return req.WithHeader("Authorization", tok.Type()+" "+tok.AccessToken), nil
	}
}

// JWTConfig describes the claims minted by JWT.
type JWTConfig struct {
	Issuer   string
	Subject  string
	Audience []string
	// TTL defaults to five minutes.
	TTL time.Duration
	// Header defaults to Authorization, sent as "Bearer <token>".
	Header string
	// Now is used for testing.
	Now func() time.Time
}

// JWT signs a fresh HS256 token per request with key.
func JWT(key []byte, cfg JWTConfig) (builder.Hook, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Header == "" {
		cfg.Header = "Authorization"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	hook := func(req builder.Request) (builder.Request, error) {
		now := cfg.Now()
		claims := jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   cfg.Subject,
			Audience:  jwt.ClaimStrings(cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		}

		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		if err != nil {
			return builder.Request{}, fmt.Errorf("signing jwt: %w", err)
		}

		return req.WithHeader(cfg.Header, "Bearer "+signed), nil
	}

	return hook, nil
}
