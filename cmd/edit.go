package cmd

import (
	"context"
)

// EditFields holds the changes requested on the command line. Nil fields
// are left unchanged.
type EditFields struct {
	Username *string
	Note     *string
	Secret   bool // Prompt for a new secret
}

func (f EditFields) empty() bool {
	return f.Username == nil && f.Note == nil && !f.Secret
}

// Edit updates a credential. Without flags every field is prompted for,
// and an empty answer keeps the current value.
func Edit(ctx context.Context, a *App, id uint64, fields EditFields) error {
	s, _, err := a.OpenSession(ctx, false)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.Find(id)
	if err != nil {
		return err
	}
	before := *c

	if fields.empty() {
		if c.Username, err = a.readDefault("Username", c.Username); err != nil {
			return err
		}
		secret, err := a.readSecret("Password (empty keeps current): ")
		if err != nil {
			return err
		}
		if secret != "" {
			c.Secret = secret
		}
		if c.Note, err = a.readDefault("Site or note", c.Note); err != nil {
			return err
		}
	} else {
		if fields.Username != nil {
			c.Username = *fields.Username
		}
		if fields.Note != nil {
			c.Note = *fields.Note
		}
		if fields.Secret {
			if c.Secret, err = a.readSecret("Enter the new password: "); err != nil {
				return err
			}
		}
	}

	if err := s.Update(id, *c); err != nil {
		return err
	}
	a.printf("Updated credential %d\n", id)
	if c.Username != before.Username {
		a.printf("  username: %s\n", fieldDiff(before.Username, c.Username))
	}
	if c.Note != before.Note {
		a.printf("  note:     %s\n", fieldDiff(before.Note, c.Note))
	}
	if c.Secret != before.Secret {
		a.printf("  secret:   changed\n")
	}
	return nil
}

func (a *App) readDefault(label, current string) (string, error) {
	answer, err := a.Prompt.ReadLine(label + " [" + current + "]: ")
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}
