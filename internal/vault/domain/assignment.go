package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment grants a user access to a shared record (a "service").
// The (UserID, RecordID) pair is unique. Removing a user from a department
// does not remove their assignments; that takes an explicit admin action.
type Assignment struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	RecordID uuid.UUID
	// CreatedBy records the admin who granted the assignment.
	CreatedBy uuid.UUID
	CreatedAt time.Time
}
