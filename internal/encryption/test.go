package encryption

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"stash-go/internal/stash"
)

// testHeader is prepended to data by TestEncryptor to make encrypted output
// clearly different from plaintext while remaining deterministic and reversible.
var testHeader = []byte("STENC\x00\x00\x00")

// TestEncryptor is a deterministic encryptor for tests and demos. It
// prepends a fixed 8-byte header and strips it again on decryption.
// Unlock rejects the passphrase "wrong" so that unlock failures can be tested.
type TestEncryptor struct {
	mu          sync.Mutex
	setupCalled bool
	unlocks     int
}

var _ stash.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setupCalled = true
	return nil
}

// Unlocks returns how many times Unlock succeeded.
func (e *TestEncryptor) Unlocks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unlocks
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (stash.DecryptionContext, error) {
	if passphrase == "wrong" {
		return nil, fmt.Errorf("incorrect passphrase")
	}
	e.mu.Lock()
	e.unlocks++
	e.mu.Unlock()
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the test header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ stash.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
