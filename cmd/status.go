package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/illarion/lockpass/internal/git"
	"github.com/illarion/lockpass/internal/keyring"
	"github.com/illarion/lockpass/internal/vault"
)

// Status shows vault details without asking for a passphrase
func Status(ctx context.Context, a *App) error {
	path, err := a.existingVault()
	if err != nil {
		if errors.Is(err, vault.ErrNotInitialized) {
			a.printf("No vault found at %s\n", a.VaultPath)
			a.printf("Run 'lockpass init' to create one\n")
			return nil
		}
		return err
	}

	stats, err := vault.Inspect(path, a.Options)
	if err != nil {
		return err
	}
	h := stats.Header

	a.printf("Vault:     %s\n", stats.Path)
	a.printf("ID:        %s\n", h.VaultID)
	a.printf("Size:      %s\n", formatSize(stats.Size))
	a.printf("Records:   %d (next id %d)\n", stats.Records, stats.Sequence+1)
	a.printf("Created:   %s\n", h.Created.Format(time.RFC3339))
	a.printf("Modified:  %s\n", h.Modified.Format(time.RFC3339))
	a.printf("Cipher:    %s\n", h.Cipher)
	a.printf("KDF:       %s (time=%d, memory=%d KiB, threads=%d)\n",
		h.KDF.Algorithm, h.KDF.Time, h.KDF.Memory, h.KDF.Threads)

	if a.Keyring {
		if keyring.HasPassphrase(h.VaultID) {
			a.printf("Keyring:   passphrase stored\n")
		} else {
			a.printf("Keyring:   not stored\n")
		}
	}

	a.printf("%s", git.FormatStatus(git.CheckVault(path), path))
	return nil
}
