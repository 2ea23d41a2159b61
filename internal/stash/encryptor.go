package stash

import "io"

// Encryptor encrypts payloads before they reach the vault.
// Encryption needs the public key only. Decryption needs a passphrase to
// unlock the private key, producing a DecryptionContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation during `stash config init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a DecryptionContext.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether new payloads should be encrypted.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the
// lifetime of the process. It is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
