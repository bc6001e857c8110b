package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/illarion/lockpass/internal/crypto"
	"golang.org/x/term"
)

// EnvPassphrase names the variable consulted before any prompt
const EnvPassphrase = "LOCKPASS_PASSWORD"

var (
	ErrMismatch    = errors.New("passphrases do not match")
	ErrNotTerminal = errors.New("stdin is not a terminal; set " + EnvPassphrase)
)

// Prompter reads lines and passphrases. Passphrases are read without echo
// when In is a terminal.
type Prompter struct {
	In  *os.File
	Out io.Writer

	reader *bufio.Reader
}

// New returns a Prompter bound to stdin and stderr
func New() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

func (p *Prompter) lines() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	return p.reader
}

// IsTerminal reports whether input comes from a terminal
func (p *Prompter) IsTerminal() bool {
	return term.IsTerminal(int(p.In.Fd()))
}

// ReadLine prints label and returns one line of input with surrounding
// whitespace removed. io.EOF is returned only when nothing was read.
func (p *Prompter) ReadLine(label string) (string, error) {
	fmt.Fprint(p.Out, label)
	line, err := p.lines().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadPassphrase reads a passphrase from the terminal without echoing
func (p *Prompter) ReadPassphrase(label string) ([]byte, error) {
	if !p.IsTerminal() {
		return nil, ErrNotTerminal
	}

	fmt.Fprint(p.Out, label)
	passphrase, err := term.ReadPassword(int(p.In.Fd()))
	fmt.Fprintln(p.Out) // New line after passphrase

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}

// ReadPassphraseConfirm reads a passphrase twice and ensures they match
func (p *Prompter) ReadPassphraseConfirm(label string) ([]byte, error) {
	first, err := p.ReadPassphrase(label)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(first)

	second, err := p.ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(second)

	if !crypto.ConstantTimeCompare(first, second) {
		return nil, ErrMismatch
	}

	result := make([]byte, len(first))
	copy(result, first)
	return result, nil
}

// PassphraseFromEnv returns a copy of LOCKPASS_PASSWORD, or nil when unset
func PassphraseFromEnv() []byte {
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		return nil
	}
	return []byte(passphrase)
}
