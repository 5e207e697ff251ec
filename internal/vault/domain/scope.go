package domain

import (
	"github.com/google/uuid"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

// Scope is the visibility filter derived from a caller's role and identity.
// It is applied at the query layer (inside SQL WHERE clauses), never by
// filtering results client-side, so record ids cannot be enumerated.
type Scope struct {
	// UserID is the caller.
	UserID uuid.UUID
	// All short-circuits the filter: every record is visible (superadmin).
	All bool
	// SharedAll includes every shared record (admin and above).
	SharedAll bool
	// SharedAssigned includes shared records granted via assignments (users).
	SharedAssigned bool
}

// ScopeFor computes the visibility filter for a caller:
//   - user: own private records plus shared records assigned to them
//   - admin: own private records plus every shared record
//   - superadmin: all records
func ScopeFor(role identityDomain.Role, userID uuid.UUID) Scope {
	scope := Scope{UserID: userID}
	switch {
	case role == identityDomain.RoleSuperadmin:
		scope.All = true
	case role.AtLeast(identityDomain.RoleAdmin):
		scope.SharedAll = true
	default:
		scope.SharedAssigned = true
	}
	return scope
}

// ModifyScope is the ownership predicate embedded directly into UPDATE and
// DELETE statements. Mutations never use read-then-check-then-write: the
// predicate rides in the WHERE clause so ownership cannot change between the
// check and the write.
type ModifyScope struct {
	// UserID is the caller.
	UserID uuid.UUID
	// Admin is true for admin-or-above callers, unlocking shared records.
	Admin bool
}

// ModifyScopeFor computes the mutation predicate for a caller.
func ModifyScopeFor(role identityDomain.Role, userID uuid.UUID) ModifyScope {
	return ModifyScope{
		UserID: userID,
		Admin:  role.AtLeast(identityDomain.RoleAdmin),
	}
}

// CanModify reports whether the caller may update or delete the record.
// Shared records require admin or above. Private records are owner-only
// regardless of role: a superadmin cannot edit another user's private entry.
func CanModify(role identityDomain.Role, userID uuid.UUID, record *Record) bool {
	if record.Visibility == VisibilityShared {
		return role.AtLeast(identityDomain.RoleAdmin)
	}
	return record.OwnerID != nil && *record.OwnerID == userID
}

// CanReveal reports whether the caller may decrypt the record's secret.
// Private records are owner-only. Shared records require admin-or-above or a
// service assignment (assigned is resolved by the caller against the
// assignment store).
func CanReveal(role identityDomain.Role, userID uuid.UUID, record *Record, assigned bool) bool {
	if record.Visibility == VisibilityShared {
		return role.AtLeast(identityDomain.RoleAdmin) || assigned
	}
	return record.OwnerID != nil && *record.OwnerID == userID
}
