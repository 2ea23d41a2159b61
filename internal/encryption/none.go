package encryption

import (
	"fmt"
	"io"

	"stash-go/internal/stash"
)

// NoneEncryptor stores payloads as plaintext. IsConfigured is false, so the
// store client never marks items encrypted.
type NoneEncryptor struct{}

var _ stash.Encryptor = NoneEncryptor{}

func (NoneEncryptor) Setup(string) error { return nil }

func (NoneEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

// Unlock returns a passthrough context. Items stored before encryption was
// turned off are still read without a key.
func (NoneEncryptor) Unlock(string) (stash.DecryptionContext, error) {
	return passthrough{}, nil
}

func (NoneEncryptor) IsConfigured() bool { return false }

type passthrough struct{}

func (passthrough) Decrypt(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
