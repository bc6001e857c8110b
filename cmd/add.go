package cmd

import (
	"context"

	"github.com/illarion/lockpass/internal/vault"
)

// Add stores a new credential. Missing fields are prompted for; the secret
// is always prompted.
func Add(ctx context.Context, a *App, username, note string) error {
	s, _, err := a.OpenSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	return a.addCredential(s, username, note)
}

func (a *App) addCredential(s *vault.Session, username, note string) error {
	var err error
	if username == "" {
		if username, err = a.Prompt.ReadLine("Enter the username: "); err != nil {
			return err
		}
	}

	secret, err := a.readSecret("Enter the password: ")
	if err != nil {
		return err
	}

	if note == "" {
		if note, err = a.Prompt.ReadLine("Enter a site or a note: "); err != nil {
			return err
		}
	}

	id, err := s.Add(vault.Credential{Username: username, Secret: secret, Note: note})
	if err != nil {
		return err
	}
	a.printf("Stored credential %d\n", id)
	return nil
}
