package testutil

import (
	"stash-go/internal/encryption"
)

// NewTestEncryptor creates a deterministic encryptor for testing.
// Its Unlock rejects the passphrase "wrong".
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
