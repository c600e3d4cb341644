package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no active key matches a hash.
	ErrNotFound = errors.New("api key not found")
	// ErrUnauthorized is returned for keys that fail verification.
	ErrUnauthorized = errors.New("unauthorized")
)

// Role is the permission level of an API key.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// APIKey is a stored credential. Only the HMAC of the raw key is kept.
type APIKey struct {
	ID        string
	KeyHash   string
	Name      string
	Role      Role
	Scopes    []string
	Active    bool
	CreatedAt time.Time
}

// Repository provides storage of API keys by their HMAC hash.
type Repository interface {
	// FindByHash returns the active key with the given hash or ErrNotFound.
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
	Create(ctx context.Context, k *APIKey) error
}

// HashKey returns the hex HMAC-SHA256 of key under pepper.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateKey returns a new random raw API key.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	return hex.EncodeToString(buf), nil
}

// Authenticator verifies raw API keys against a Repository.
type Authenticator struct {
	keys   Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator using the given pepper.
func NewAuthenticator(keys Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Authenticate resolves a raw API key to its Principal.
func (a *Authenticator) Authenticate(ctx context.Context, key string) (*Principal, error) {
	mac := hmac.New(sha256.New, a.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := a.keys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, errors.Wrap(err, "find api key")
	}

	// The repository matched on the hash; compare again in constant time in
	// case it returned a different row.
	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return nil, ErrUnauthorized
	}

	return &Principal{
		ID:     info.ID,
		Name:   info.Name,
		Role:   info.Role,
		Scopes: info.Scopes,
	}, nil
}
