// Package service implements the audit chain signer.
package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// ChainSigner computes and verifies HMAC-SHA256 chain signatures over audit
// entries. Safe for concurrent use.
type ChainSigner struct {
	key []byte
}

// Sign computes the signature for an entry given the previous entry's
// signature. The entry's PrevSignature and Signature fields are filled in.
func (c *ChainSigner) Sign(entry *auditDomain.AuditLog, prevSignature []byte) error {
	payload, err := c.payload(entry, prevSignature)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	entry.PrevSignature = prevSignature
	entry.Signature = mac.Sum(nil)
	return nil
}

// Verify checks an entry's signature against its contents and the previous
// entry's signature.
func (c *ChainSigner) Verify(entry *auditDomain.AuditLog, prevSignature []byte) error {
	if !hmac.Equal(entry.PrevSignature, prevSignature) {
		return auditDomain.ErrChainBroken
	}

	payload, err := c.payload(entry, prevSignature)
	if err != nil {
		return err
	}

	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	if !hmac.Equal(mac.Sum(nil), entry.Signature) {
		return auditDomain.ErrChainBroken
	}
	return nil
}

// payload renders the entry's signed fields deterministically. UUIDs and the
// timestamp are fixed width; variable-length fields are length-prefixed so
// bytes cannot shift between adjacent fields and canonicalize the same.
// Metadata is JSON-encoded (map keys are sorted by encoding/json).
func (c *ChainSigner) payload(entry *auditDomain.AuditLog, prevSignature []byte) ([]byte, error) {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal audit metadata")
		}
	}

	buf := make([]byte, 0, 512)
	buf = appendLengthPrefixed(buf, prevSignature)
	buf = append(buf, entry.ID[:]...)
	buf = append(buf, entry.RequestID[:]...)
	buf = append(buf, entry.ActorID[:]...)
	buf = appendLengthPrefixed(buf, []byte(entry.Action))
	buf = appendLengthPrefixed(buf, []byte(entry.TargetID))
	buf = appendLengthPrefixed(buf, metadataJSON)

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(entry.CreatedAt.UTC().UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

// appendLengthPrefixed writes a 4-byte big-endian length followed by the data.
func appendLengthPrefixed(buf, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	return append(buf, data...)
}

// NewChainSigner creates a new ChainSigner with the provided HMAC key.
func NewChainSigner(key []byte) *ChainSigner {
	return &ChainSigner{key: key}
}
