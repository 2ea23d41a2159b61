package app

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// PassphraseEnv overrides the interactive passphrase prompt.
const PassphraseEnv = "STASH_PASSPHRASE"

// ReadPassphrase returns $STASH_PASSPHRASE if set, otherwise prompts on the
// controlling terminal without echo. The terminal is opened directly so that
// the prompt does not compete with the shell for stdin.
func ReadPassphrase(prompt string) (string, error) {
	if p := os.Getenv(PassphraseEnv); p != "" {
		return p, nil
	}

	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return "", fmt.Errorf("no terminal for passphrase prompt (set %s): %w", PassphraseEnv, err)
	}
	defer tty.Close()

	fmt.Fprint(tty, prompt)
	b, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(tty)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}
