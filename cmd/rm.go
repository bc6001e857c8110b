package cmd

import (
	"context"
	"fmt"

	"github.com/illarion/lockpass/internal/vault"
)

// Remove deletes credentials by id, then compacts the vault. Ids that do
// not exist are reported and make the command fail after the others are
// removed.
func Remove(ctx context.Context, a *App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: rm requires at least one record id", ErrMissingArgs)
	}

	ids := make([]uint64, 0, len(args))
	for _, arg := range args {
		id, err := ParseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	s, _, err := a.OpenSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	var missing []uint64
	for _, id := range ids {
		found, err := s.Delete(id)
		if err != nil {
			return err
		}
		if !found {
			missing = append(missing, id)
			continue
		}
		a.printf("Removed credential %d\n", id)
	}

	// Compact database to reclaim space
	if err := s.Compact(); err != nil {
		a.warnf("compaction failed: %s", err)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", vault.ErrNotFound, missing)
	}
	return nil
}
