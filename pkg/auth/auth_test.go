package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-must-be-at-least-32-characters-long"

func TestNewTokenManager_ShortSecret(t *testing.T) {
	if _, err := NewTokenManager("short", time.Hour); !errors.Is(err, ErrShortSecret) {
		t.Errorf("error = %v, want ErrShortSecret", err)
	}
	m, err := NewTokenManager(testSecret, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", m.TTL(), DefaultTokenTTL)
	}
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	token, err := m.GenerateToken("solver-7")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := m.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "solver-7" {
		t.Errorf("Subject = %q", claims.Subject)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt); d != time.Hour {
		t.Errorf("lifetime = %v, want 1h", d)
	}

	if _, err := m.GenerateToken(""); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("empty subject: %v", err)
	}
}

func TestTokenManager_Rejects(t *testing.T) {
	m, _ := NewTokenManager(testSecret, time.Hour)
	other, _ := NewTokenManager(strings.Repeat("x", 40), time.Hour)
	foreign, _ := other.GenerateToken("mallory")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "mallory", "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	noSubToken, _ := noSub.SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrInvalidToken},
		{"garbage", "not.a.token", ErrInvalidToken},
		{"wrong secret", foreign, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
		{"no subject", noSubToken, ErrInvalidClaims},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(context.Background(), tt.token); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTokenManager_Expired(t *testing.T) {
	m, _ := NewTokenManager(testSecret, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.GenerateToken("late")
	if err != nil {
		t.Fatal(err)
	}
	m.now = time.Now
	if _, err := m.ValidateToken(context.Background(), token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("error = %v, want ErrExpiredToken", err)
	}
}

func TestKeyStore(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		t.Fatalf("key %q lacks prefix", key)
	}
	hash, err := HashKeyWithCost(key, bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewKeyStore([]string{hash})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Verify(key); err != nil {
		t.Errorf("Verify(valid) = %v", err)
	}
	// Second call is served from the verified set.
	if err := store.Verify(key); err != nil {
		t.Errorf("Verify(cached) = %v", err)
	}

	other, _ := GenerateKey()
	if err := store.Verify(other); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Verify(unknown) = %v", err)
	}
	if err := store.Verify("no-prefix"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Verify(no prefix) = %v", err)
	}
	if _, err := HashKey("no-prefix"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("HashKey(no prefix) = %v", err)
	}
}

func TestNewKeyStore_BadHash(t *testing.T) {
	if _, err := NewKeyStore([]string{"plaintext"}); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("error = %v, want ErrInvalidHash", err)
	}
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()

	open := NewAuthenticator(nil, nil)
	if open.Enabled() {
		t.Error("authenticator without credentials should be disabled")
	}
	if p, err := open.Authenticate(ctx, "", ""); err != nil || p.Subject != "anonymous" {
		t.Errorf("disabled Authenticate = %v, %v", p, err)
	}

	tokens, _ := NewTokenManager(testSecret, time.Hour)
	key, _ := GenerateKey()
	hash, _ := HashKeyWithCost(key, bcrypt.MinCost)
	keys, _ := NewKeyStore([]string{hash})
	a := NewAuthenticator(tokens, keys)
	token, _ := tokens.GenerateToken("ci")

	p, err := a.Authenticate(ctx, "Bearer "+token, "")
	if err != nil || p.Subject != "ci" || p.Method != "jwt" {
		t.Errorf("bearer = %+v, %v", p, err)
	}
	p, err = a.Authenticate(ctx, "", key)
	if err != nil || p.Method != "api_key" || !strings.HasPrefix(p.Subject, KeyPrefix) {
		t.Errorf("api key = %+v, %v", p, err)
	}
	if _, err := a.Authenticate(ctx, "", ""); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("none = %v", err)
	}
	if _, err := a.Authenticate(ctx, "Bearer nope", key); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("bad bearer should fail even with a good key, got %v", err)
	}
}
