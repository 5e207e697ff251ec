package service

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// AESCBCCipher implements the Cipher interface using AES-256-CBC with
// PKCS#7 padding.
//
// A fresh random 16-byte IV is generated for every encryption call and
// returned alongside the ciphertext for storage with the record. Reusing an
// IV under CBC leaks plaintext relationships across records encrypted with
// the same key, so a fixed IV is never accepted.
//
// The cipher instance is stateless and safe for concurrent use from multiple
// goroutines.
type AESCBCCipher struct {
	block cipher.Block
}

// NewAESCBC creates a new AES-256-CBC cipher instance.
// The key must be exactly 32 bytes (256 bits).
func NewAESCBC(key []byte) (*AESCBCCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create AES cipher")
	}

	return &AESCBCCipher{block: block}, nil
}

// Encrypt encrypts plaintext and returns the raw ciphertext with the random
// IV used. Output is not base64-encoded; encoding is a transport concern.
func (a *AESCBCCipher) Encrypt(plaintext []byte) (cryptoDomain.CipherText, error) {
	iv := make([]byte, cryptoDomain.IVSize)
	if _, err := rand.Read(iv); err != nil {
		return cryptoDomain.CipherText{}, apperrors.Wrap(cryptoDomain.ErrEncryptionFailed, err.Error())
	}

	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(a.block, iv).CryptBlocks(ciphertext, padded)

	return cryptoDomain.CipherText{Data: ciphertext, IV: iv}, nil
}

// Decrypt decrypts a ciphertext/IV pair. Corrupt input (wrong length, bad
// padding) returns ErrDecryptionFailed rather than panicking, so callers can
// log-and-mask instead of surfacing raw crypto errors.
func (a *AESCBCCipher) Decrypt(ct cryptoDomain.CipherText) ([]byte, error) {
	if len(ct.IV) != cryptoDomain.IVSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if len(ct.Data) == 0 || len(ct.Data)%aes.BlockSize != 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	padded := make([]byte, len(ct.Data))
	cipher.NewCBCDecrypter(a.block, ct.IV).CryptBlocks(padded, ct.Data)

	plaintext, err := unpadPKCS7(padded, aes.BlockSize)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// padPKCS7 appends PKCS#7 padding up to the block size.
func padPKCS7(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

// unpadPKCS7 removes and validates PKCS#7 padding.
func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, cryptoDomain.ErrDecryptionFailed
		}
	}
	return data[:len(data)-padLen], nil
}
