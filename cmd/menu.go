package cmd

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/illarion/lockpass/internal/vault"
)

// MenuOption is a choice in the interactive menu
type MenuOption int

const (
	MenuInvalid MenuOption = iota
	MenuListPasswords
	MenuEnterNewPassword
	MenuExit
)

func (o MenuOption) String() string {
	switch o {
	case MenuListPasswords:
		return "list passwords"
	case MenuEnterNewPassword:
		return "enter a new password"
	case MenuExit:
		return "exit"
	}
	return "invalid"
}

const menuText = `
Select an option:
  1. List passwords
  2. Enter a new password
  3. Exit
> `

// ParseMenuOption maps a line of input to a MenuOption. Anything other than
// 1, 2 or 3 is MenuInvalid.
func ParseMenuOption(input string) MenuOption {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return MenuInvalid
	}
	switch n {
	case 1:
		return MenuListPasswords
	case 2:
		return MenuEnterNewPassword
	case 3:
		return MenuExit
	}
	return MenuInvalid
}

// Menu runs the interactive loop until Exit or end of input. A missing
// vault is created first.
func Menu(ctx context.Context, a *App) error {
	a.printf("Welcome to lockpass - a CLI based password manager\n")

	s, _, err := a.OpenSession(ctx, false)
	if errors.Is(err, vault.ErrNotInitialized) {
		s, err = a.create()
	}
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := a.Prompt.ReadLine(menuText)
		if errors.Is(err, io.EOF) {
			a.printf("\n")
			return nil
		}
		if err != nil {
			return err
		}

		switch ParseMenuOption(line) {
		case MenuListPasswords:
			result, err := s.List()
			if err != nil {
				a.printf("Error fetching passwords: %s\n", err)
				continue
			}
			a.printCredentials(result, true)
		case MenuEnterNewPassword:
			if err := a.addCredential(s, "", ""); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				a.printf("Error inserting a new entry: %s\n", err)
			}
		case MenuExit:
			return nil
		default:
			a.printf("Invalid input, please select a valid option.\n")
		}
	}
}
