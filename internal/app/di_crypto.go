package app

import (
	"context"
	"fmt"

	cryptoService "github.com/allisson/vaultadmin/internal/crypto/service"
)

// KeyProvider returns the vault key provider.
func (c *Container) KeyProvider() cryptoService.KeyProvider {
	c.keyProviderInit.Do(func() {
		c.keyProvider = cryptoService.NewKeyProvider(c.config)
	})
	return c.keyProvider
}

// Cipher returns the symmetric cipher used for credential secrets at rest.
// The vault key is resolved and validated on first access; a misconfigured
// key fails every caller consistently.
func (c *Container) Cipher() (cryptoService.Cipher, error) {
	var err error
	c.cipherInit.Do(func() {
		c.cipher, err = c.initCipher()
		if err != nil {
			c.initErrors["cipher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cipher"]; exists {
		return nil, storedErr
	}
	return c.cipher, nil
}

// initCipher resolves the vault key and builds the cipher.
func (c *Container) initCipher() (cryptoService.Cipher, error) {
	key, err := c.KeyProvider().Key(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault key: %w", err)
	}

	cipher, err := cryptoService.NewAESCBC(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return cipher, nil
}
