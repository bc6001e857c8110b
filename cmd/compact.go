package cmd

import (
	"context"
	"os"

	"github.com/illarion/lockpass/internal/vault"
)

// Compact compacts the vault to reclaim unused space
func Compact(ctx context.Context, a *App) error {
	path, err := a.existingVault()
	if err != nil {
		return err
	}

	// Get file size before
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	sizeBefore := info.Size()

	if err := vault.CompactPath(path, a.Options); err != nil {
		return err
	}

	// Get file size after
	info, err = os.Stat(path)
	if err != nil {
		return err
	}
	sizeAfter := info.Size()

	a.printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
	return nil
}
