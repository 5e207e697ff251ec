// Package domain defines identity domain models: users, roles, and sessions.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user within the panel.
type Role string

const (
	// RoleUser can manage a personal vault and use records assigned to them.
	RoleUser Role = "user"

	// RoleAdmin can additionally manage shared records and assignments.
	RoleAdmin Role = "admin"

	// RoleSuperadmin can see every record. Private-record modification is
	// still owner-only, even for superadmins.
	RoleSuperadmin Role = "superadmin"
)

// rank orders roles for >= comparisons.
var rank = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether r grants at least the access level of other.
func (r Role) AtLeast(other Role) bool {
	return rank[r] >= rank[other]
}

// User represents a panel user.
type User struct {
	ID uuid.UUID
	// Email is the login identifier and must be unique.
	Email string
	Name  string
	// PasswordHash is the Argon2id hash of the login password.
	PasswordHash string
	Role         Role
	// Department is an organizational label; assignments created by plain
	// admins record it for audit purposes.
	Department string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
