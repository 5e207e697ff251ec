// Package domain defines the audit log domain model. Audit entries form an
// HMAC chain: each entry signs its own fields plus the previous entry's
// signature, so truncation or tampering in the middle of the log is
// detectable.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies the audited operation.
type Action string

// Audited actions.
const (
	ActionLogin            Action = "auth.login"
	ActionLoginFailed      Action = "auth.login_failed"
	ActionLogout           Action = "auth.logout"
	ActionRecordCreate     Action = "record.create"
	ActionRecordUpdate     Action = "record.update"
	ActionRecordDelete     Action = "record.delete"
	ActionRecordReveal     Action = "record.reveal"
	ActionAssignmentCreate Action = "assignment.create"
	ActionAssignmentDelete Action = "assignment.delete"
	ActionSSOLaunch        Action = "sso.launch"
	ActionSSORedeem        Action = "sso.redeem"
	ActionSSODenied        Action = "sso.denied"
	ActionKeyRotation      Action = "key.rotation"
)

// AuditLog records a security-relevant operation. Captures the acting user,
// the affected target, request correlation, and the chain signature.
type AuditLog struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	ActorID   uuid.UUID
	Action    Action
	// TargetID identifies the affected entity: a record id, an assignment id,
	// or an SSO site name. Empty for actions without a target.
	TargetID string
	Metadata map[string]any
	// PrevSignature is the signature of the preceding entry, empty for the
	// first entry in the chain.
	PrevSignature []byte
	Signature     []byte
	CreatedAt     time.Time
}
