package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illarion/lockpass/internal/config"
	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/illarion/lockpass/internal/prompt"
	"github.com/illarion/lockpass/internal/security"
	"github.com/illarion/lockpass/internal/vault"
	"golang.org/x/time/rate"
)

// MaxPassphraseAttempts bounds how often a wrong prompted passphrase is re-asked
const MaxPassphraseAttempts = 3

var (
	ErrInvalidID    = errors.New("invalid record id")
	ErrMissingArgs  = errors.New("missing argument")
	ErrTooManyTries = errors.New("too many failed passphrase attempts")
)

// PasswordSource tells where a passphrase came from
type PasswordSource int

const (
	SourceEnv PasswordSource = iota
	SourceKeyring
	SourcePrompt
)

// App carries the resolved settings shared by every command
type App struct {
	VaultPath string
	Options   vault.Options
	Prompt    *prompt.Prompter
	Out       io.Writer
	Err       io.Writer

	// Keyring enables the OS keyring as a passphrase source
	Keyring bool

	limiter *rate.Limiter
}

// NewApp builds an App from the loaded configuration
func NewApp(cfg *config.Config, logger *log.Logger) *App {
	return &App{
		VaultPath: cfg.VaultPath,
		Options: vault.Options{
			LockTimeout: cfg.LockTimeout,
			KDF:         cfg.KDF,
			Cipher:      cfg.Cipher,
			Logger:      logger,
		},
		Prompt:  prompt.New(),
		Out:     os.Stdout,
		Err:     os.Stderr,
		Keyring: true,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.Out, format, args...)
}

func (a *App) warnf(format string, args ...any) {
	fmt.Fprintf(a.Err, "warning: "+format+"\n", args...)
}

// existingVault validates the vault path and returns its absolute form.
// A missing file is reported as vault.ErrNotInitialized.
func (a *App) existingVault() (string, error) {
	pv, err := security.New(a.VaultPath)
	if err != nil {
		return "", err
	}
	defer pv.Close()

	info, err := pv.CheckExisting()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", vault.ErrNotInitialized
		}
		return "", err
	}
	if security.LoosePermissions(info) {
		a.warnf("%s is accessible by other users (mode %v)", pv.Path(), info.Mode().Perm())
	}
	return pv.Path(), nil
}

// vaultID reads the vault id without a passphrase
func (a *App) vaultID(path string) string {
	stats, err := vault.Inspect(path, a.Options)
	if err != nil {
		return ""
	}
	return stats.Header.VaultID
}

// readPassphrase returns a passphrase from the prompt
func (a *App) readPassphrase(ctx context.Context, label string) ([]byte, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return a.Prompt.ReadPassphrase(label)
}

// OpenSession unlocks the vault, trying LOCKPASS_PASSWORD, then the OS
// keyring, then the terminal. A stale keyring entry falls through to the
// prompt. Prompted passphrases are re-asked up to MaxPassphraseAttempts.
func (a *App) OpenSession(ctx context.Context, readOnly bool) (*vault.Session, PasswordSource, error) {
	path, err := a.existingVault()
	if err != nil {
		return nil, 0, err
	}

	opts := a.Options
	opts.ReadOnly = readOnly

	if passphrase := prompt.PassphraseFromEnv(); passphrase != nil {
		defer crypto.ClearBytes(passphrase)
		s, err := vault.Open(path, passphrase, opts)
		return s, SourceEnv, err
	}

	if a.Keyring {
		if id := a.vaultID(path); id != "" {
			if passphrase, err := keyring.GetPassphrase(id); err == nil {
				s, err := vault.Open(path, passphrase, opts)
				crypto.ClearBytes(passphrase)
				if err == nil {
					return s, SourceKeyring, nil
				}
				if !errors.Is(err, vault.ErrAuthenticationFailed) {
					return nil, SourceKeyring, err
				}
				a.warnf("passphrase in keyring is stale, run 'lockpass keyring save' to update it")
			}
		}
	}

	for attempt := 1; attempt <= MaxPassphraseAttempts; attempt++ {
		passphrase, err := a.readPassphrase(ctx, "Enter passphrase: ")
		if err != nil {
			return nil, SourcePrompt, err
		}
		s, err := vault.Open(path, passphrase, opts)
		if err == nil {
			a.OfferToSavePassword(s, passphrase)
			crypto.ClearBytes(passphrase)
			return s, SourcePrompt, nil
		}
		crypto.ClearBytes(passphrase)
		if !errors.Is(err, vault.ErrAuthenticationFailed) {
			return nil, SourcePrompt, err
		}
		if attempt < MaxPassphraseAttempts {
			fmt.Fprintln(a.Err, "Wrong passphrase, try again.")
		}
	}
	return nil, SourcePrompt, fmt.Errorf("%w: %w", ErrTooManyTries, vault.ErrAuthenticationFailed)
}

// newPassphrase reads a passphrase for a new key, from LOCKPASS_PASSWORD or
// a confirmed prompt
func (a *App) newPassphrase(label string) ([]byte, error) {
	if passphrase := prompt.PassphraseFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	return a.Prompt.ReadPassphraseConfirm(label)
}

// readSecret reads a credential secret, without echo when possible
func (a *App) readSecret(label string) (string, error) {
	if !a.Prompt.IsTerminal() {
		return a.Prompt.ReadLine(label)
	}
	secret, err := a.Prompt.ReadPassphrase(label)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(secret)
	return string(secret), nil
}

// OfferToSavePassword asks once whether a prompted passphrase should go to
// the OS keyring
func (a *App) OfferToSavePassword(s *vault.Session, passphrase []byte) {
	if !a.Keyring || !a.Prompt.IsTerminal() {
		return
	}
	id, err := s.VaultID()
	if err != nil || keyring.HasPassphrase(id) {
		return
	}
	answer, err := a.Prompt.ReadLine("Save passphrase to OS keyring? [y/N]: ")
	if err != nil || !strings.EqualFold(strings.TrimSpace(answer), "y") {
		return
	}
	if err := keyring.SavePassphrase(id, passphrase); err != nil {
		a.warnf("failed to save to keyring: %s", err)
		return
	}
	a.printf("Passphrase saved to keyring\n")
}

// ParseID parses a record id argument
func ParseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, arg)
	}
	return id, nil
}

// reportFailures prints unreadable records to stderr
func (a *App) reportFailures(failures []*vault.RecordError) {
	for _, f := range failures {
		fmt.Fprintf(a.Err, "error: record %d is unreadable (%s failed integrity check)\n", f.ID, f.Field)
	}
}

// HandleError prints a message for err and exits with status 1
func HandleError(err error) {
	switch {
	case errors.Is(err, vault.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: no vault found\n")
		fmt.Fprintf(os.Stderr, "Run 'lockpass init' first\n")
	case errors.Is(err, vault.ErrAlreadyExists), errors.Is(err, security.ErrPathExists):
		fmt.Fprintf(os.Stderr, "Error: a vault already exists at this path\n")
		fmt.Fprintf(os.Stderr, "Use 'lockpass status' to see current state\n")
	case errors.Is(err, ErrTooManyTries):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase (%d attempts)\n", MaxPassphraseAttempts)
	case errors.Is(err, vault.ErrAuthenticationFailed):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, vault.ErrVaultBusy):
		fmt.Fprintf(os.Stderr, "Error: vault is in use by another lockpass process\n")
	case errors.Is(err, vault.ErrSessionNotOpen):
		fmt.Fprintf(os.Stderr, "Error: vault session is closed\n")
	case errors.Is(err, vault.ErrIntegrityFailure):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "The vault file has been modified or is damaged\n")
	case errors.Is(err, prompt.ErrNotTerminal):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(os.Stderr, "Interrupted\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}
