package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeAdmin grants access to catalog, coupon and order administration.
const ScopeAdmin = "admin"

var (
	// ErrUnauthorized is returned when credentials are missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when valid credentials lack a required scope.
	ErrForbidden = errors.New("forbidden")
	// ErrKeyNotFound is returned by Repository.FindByHash when no key matches.
	ErrKeyNotFound = errors.New("api key not found")
)

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key carries scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides storage of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Create(ctx context.Context, info *APIKeyInfo) error
}

// Hasher computes peppered HMAC-SHA256 digests of raw API keys.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a Hasher with the given pepper.
func NewHasher(pepper []byte) Hasher {
	return Hasher{pepper: pepper}
}

// Sum returns the raw digest of key.
func (h Hasher) Sum(key string) []byte {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(key))
	return mac.Sum(nil)
}

// Hex returns the hex-encoded digest of key, as stored.
func (h Hasher) Hex(key string) string {
	return hex.EncodeToString(h.Sum(key))
}

// GenerateKey returns a new random raw API key.
func GenerateKey() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return "sk_" + hex.EncodeToString(b[:]), nil
}

// APIKeyAuthenticator validates raw API keys against the repository.
type APIKeyAuthenticator struct {
	keys   Repository
	hasher Hasher
}

// NewAPIKeyAuthenticator creates an authenticator over keys.
func NewAPIKeyAuthenticator(keys Repository, pepper []byte) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: keys, hasher: NewHasher(pepper)}
}

// Authenticate hashes key, looks it up and compares the stored digest in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, key string) (*APIKeyInfo, error) {
	if key == "" {
		return nil, ErrUnauthorized
	}
	hash := a.hasher.Sum(key)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}
	return info, nil
}
