package secret

import (
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Secret holds a credential for the duration of one run. It is never written
// to the configuration file; call Zero once the network calls are done.
type Secret struct {
	value []byte
}

func New(value []byte) *Secret {
	return &Secret{value: value}
}

// Reveal returns the current value. Empty after Zero.
func (s *Secret) Reveal() string {
	return string(s.value)
}

// Zero overwrites the credential in place.
func (s *Secret) Zero() {
	if len(s.value) == 0 {
		return
	}
	zero := make([]byte, len(s.value))
	subtle.ConstantTimeCopy(1, s.value, zero)
	s.value = s.value[:0]
}

// String keeps the credential out of logs and %v formatting.
func (s *Secret) String() string {
	return "***"
}

// Resolve returns the credential from envKey when set, otherwise prompts on
// the terminal without echo.
func Resolve(envKey, prompt string) (*Secret, error) {
	if value := os.Getenv(envKey); value != "" {
		return New([]byte(value)), nil
	}

	pterm.Printf("%s: ", prompt)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	pterm.Println()
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(value) == 0 {
		return nil, fmt.Errorf("empty password (set %s or type it at the prompt)", envKey)
	}
	return New(value), nil
}
