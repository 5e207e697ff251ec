package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
)

// RunGenerateVaultKey generates a new random 32-byte key and prints it
// base64-encoded. The output is suitable for the VAULT_KEY and
// AUDIT_SIGNING_KEY environment variables.
func RunGenerateVaultKey() error {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fmt.Println(base64.StdEncoding.EncodeToString(key))
	return nil
}
