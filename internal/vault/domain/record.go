// Package domain defines the credential vault domain models: records,
// service assignments, and the access scoping rules applied to them.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
)

// Visibility classifies who may see a credential record.
type Visibility string

const (
	// VisibilityPrivate records belong to a single owner. Not even a
	// superadmin may modify or reveal another user's private record.
	VisibilityPrivate Visibility = "private"

	// VisibilityShared records are visible to every admin-or-above caller and
	// to users holding a service assignment for them.
	VisibilityShared Visibility = "shared"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityShared
}

// Record represents a credential: a shared site login or a personal vault
// entry. The username is plaintext metadata; only the password is a secret.
type Record struct {
	ID uuid.UUID
	// OwnerID is nil for shared records and set for private ones.
	OwnerID *uuid.UUID
	// CreatedBy records the creating user. For private records it always
	// equals OwnerID.
	CreatedBy  uuid.UUID
	Visibility Visibility
	Name       string
	URL        string
	Username   string
	// Secret is the encrypted password with its per-record IV. A zero value
	// means no secret is stored.
	Secret cryptoDomain.CipherText
	Notes  string
	// PlainSecret holds the decrypted password in memory only, populated
	// exclusively by reveal; must be zeroed after use.
	PlainSecret []byte `json:"-"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasSecret reports whether the record stores an encrypted secret.
func (r *Record) HasSecret() bool {
	return !r.Secret.IsZero()
}
