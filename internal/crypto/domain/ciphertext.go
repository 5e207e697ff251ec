package domain

// KeySize is the required vault key length in bytes (AES-256).
const KeySize = 32

// IVSize is the AES-CBC initialization vector length in bytes.
const IVSize = 16

// CipherText pairs an encrypted blob with the random IV used to produce it.
// The IV is generated fresh for every encryption call and stored alongside
// the ciphertext; it is never reused across records.
type CipherText struct {
	// Data is the raw (non-encoded) encrypted bytes.
	Data []byte
	// IV is the 16-byte initialization vector.
	IV []byte
}

// IsZero reports whether no ciphertext is present (no secret stored).
func (c CipherText) IsZero() bool {
	return len(c.Data) == 0 && len(c.IV) == 0
}
