package cmd

import (
	"context"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/git"
	"github.com/illarion/lockpass/internal/security"
	"github.com/illarion/lockpass/internal/vault"
)

// Init creates a new vault at the configured path
func Init(ctx context.Context, a *App) error {
	s, err := a.create()
	if err != nil {
		return err
	}
	return s.Close()
}

// create initializes the vault and returns it unlocked
func (a *App) create() (*vault.Session, error) {
	pv, err := security.New(a.VaultPath)
	if err != nil {
		return nil, err
	}
	path := pv.Path()
	err = pv.CheckNew()
	pv.Close()
	if err != nil {
		return nil, err
	}

	passphrase, err := a.newPassphrase("Enter new passphrase: ")
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(passphrase)

	s, err := vault.Create(path, passphrase, a.Options)
	if err != nil {
		return nil, err
	}

	a.printf("Password vault initialized successfully at %s\n", path)
	if status := git.CheckVault(path); status.Exposed() {
		a.warnf("%s is inside a git repository and not ignored; add it to .gitignore", path)
	}
	return s, nil
}
