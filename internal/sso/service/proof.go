// Package service provides the SSO broker's cryptographic proof derivation
// and the outbound client for the external system.
package service

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// proofIterations balances derivation cost against the broker's 120 second
// token lifetime.
const proofIterations = 4096

// proofLength is the derived proof size in bytes.
const proofLength = 32

// DeriveProof derives the opaque credential proof that crosses the trust
// boundary to the external system. The raw secret never leaves the broker:
// the proof binds the secret to one token value and is worthless once the
// token is consumed.
func DeriveProof(brokerSecret string, secret []byte, token string) string {
	material := make([]byte, 0, len(secret)+len(token))
	material = append(material, secret...)
	material = append(material, token...)
	proof := pbkdf2.Key(material, []byte(brokerSecret), proofIterations, proofLength, sha256.New)
	return hex.EncodeToString(proof)
}
