package model

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Key is an API key owned by a user. Secret is the SHA-256 hex digest of the
// bearer value; the raw value is shown once at creation and never stored.
//
// Permissions on a key only ever shrink. A user edit that removes a
// permission removes it from every key, but a key never gains a permission
// through a user edit, only through an explicit key update bounded by the
// owner's own permissions.
type Key struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Prefix        string        `json:"prefix" db:"prefix"`
	Secret        []byte        `json:"-" db:"secret"`
	UserID        string        `json:"user_id" db:"user_id"`
	Administrator bool          `json:"administrator" db:"administrator"`
	Groups        []string      `json:"groups" db:"groups"`
	Permissions   PermissionSet `json:"permissions" db:"permissions"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

var keyNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _-]{0,62}$`)

// CreateKeyRequest is the payload for minting a new API key. Permissions is
// the set requested by the owner; grants outside the owner's effective
// permissions are silently dropped.
type CreateKeyRequest struct {
	Name        string        `json:"name"`
	Permissions PermissionSet `json:"permissions"`
}

func (r CreateKeyRequest) Validate() error {
	if !keyNamePattern.MatchString(r.Name) {
		return fmt.Errorf("invalid key name %q", r.Name)
	}
	for p := range r.Permissions {
		if !p.Valid() {
			return fmt.Errorf("unknown permission %q", p)
		}
	}
	return nil
}

// UpdateKeyRequest adjusts a key's permission set. A nil Permissions field
// leaves the set unchanged.
type UpdateKeyRequest struct {
	Permissions PermissionSet `json:"permissions"`
}

func (r UpdateKeyRequest) Validate() error {
	for p := range r.Permissions {
		if !p.Valid() {
			return fmt.Errorf("unknown permission %q", p)
		}
	}
	return nil
}

// GenerateKeySecret returns a new raw bearer value and its stored digest.
func GenerateKeySecret() (raw string, digest []byte, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generating key secret: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashKeySecret(raw), nil
}

// HashKeySecret digests a raw bearer value for storage and lookup.
func HashKeySecret(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

// KeyPrefix derives the deduplicating prefix for a key name, e.g.
// "My CI Key" becomes "my_ci_key".
func KeyPrefix(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '_'
		}
		return -1
	}, lowered)
}
