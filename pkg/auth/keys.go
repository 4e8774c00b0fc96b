package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidKey  = errors.New("invalid API key")
	ErrInvalidHash = errors.New("invalid API key hash")
)

const (
	// KeyPrefix starts every generated API key.
	KeyPrefix = "gp_"
	// KeyRandomLength is the number of random bytes in a key.
	KeyRandomLength = 32
	// BcryptCost is the cost factor for stored key hashes.
	BcryptCost = 12
)

// GenerateKey returns a new random API key.
func GenerateKey() (string, error) {
	b := make([]byte, KeyRandomLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return KeyPrefix + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashKey returns the bcrypt hash stored in configuration for key.
func HashKey(key string) (string, error) {
	return HashKeyWithCost(key, BcryptCost)
}

// HashKeyWithCost is HashKey with an explicit bcrypt cost.
func HashKeyWithCost(key string, cost int) (string, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", ErrInvalidKey
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}
	return string(hash), nil
}

// KeyStore verifies API keys against a fixed set of bcrypt hashes.
//
// A key that verified once is remembered by its SHA-256 digest, so only the
// first request with a given key pays the bcrypt cost.
type KeyStore struct {
	hashes [][]byte

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewKeyStore builds a store from bcrypt hashes.
func NewKeyStore(hashes []string) (*KeyStore, error) {
	s := &KeyStore{verified: make(map[[sha256.Size]byte]struct{})}
	for i, h := range hashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("%w at index %d: %v", ErrInvalidHash, i, err)
		}
		s.hashes = append(s.hashes, []byte(h))
	}
	return s, nil
}

// Len returns the number of configured keys.
func (s *KeyStore) Len() int {
	return len(s.hashes)
}

// Verify reports whether key matches one of the stored hashes.
func (s *KeyStore) Verify(key string) error {
	if !strings.HasPrefix(key, KeyPrefix) {
		return ErrInvalidKey
	}
	digest := sha256.Sum256([]byte(key))

	s.mu.RLock()
	_, ok := s.verified[digest]
	s.mu.RUnlock()
	if ok {
		return nil
	}

	for _, h := range s.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			s.mu.Lock()
			s.verified[digest] = struct{}{}
			s.mu.Unlock()
			return nil
		}
	}
	return ErrInvalidKey
}
