package auth

import (
	"context"
	"errors"
	"strings"
)

// ErrNoCredentials is returned when a request carries neither a bearer
// token nor an API key.
var ErrNoCredentials = errors.New("no credentials")

// Principal names an authenticated caller.
type Principal struct {
	Subject string
	Method  string // "jwt" or "api_key"
}

// Authenticator accepts either credential kind. A nil token manager or an
// empty key store disables that kind; with both disabled every request is
// let through.
type Authenticator struct {
	tokens *TokenManager
	keys   *KeyStore
}

// NewAuthenticator combines the two credential checks. Either may be nil.
func NewAuthenticator(tokens *TokenManager, keys *KeyStore) *Authenticator {
	return &Authenticator{tokens: tokens, keys: keys}
}

// Enabled reports whether any credential kind is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && (a.tokens != nil || (a.keys != nil && a.keys.Len() > 0))
}

// Authenticate checks an Authorization header value and an API key header
// value. The bearer token wins when both are present.
func (a *Authenticator) Authenticate(ctx context.Context, authorization, apiKey string) (*Principal, error) {
	if !a.Enabled() {
		return &Principal{Subject: "anonymous"}, nil
	}

	if token, ok := strings.CutPrefix(authorization, "Bearer "); ok && a.tokens != nil {
		claims, err := a.tokens.ValidateToken(ctx, strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		return &Principal{Subject: claims.Subject, Method: "jwt"}, nil
	}

	if apiKey != "" && a.keys != nil {
		if err := a.keys.Verify(apiKey); err != nil {
			return nil, err
		}
		return &Principal{Subject: apiKey[:min(len(apiKey), len(KeyPrefix)+6)], Method: "api_key"}, nil
	}
	return nil, ErrNoCredentials
}
