package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/illarion/lockpass/internal/vault"
)

const mask = "********"

// List prints every credential in the vault. Unreadable records are
// reported and skipped.
func List(ctx context.Context, a *App, show bool) error {
	s, _, err := a.OpenSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.List()
	if err != nil {
		return err
	}
	a.printCredentials(result, show)
	return nil
}

// Find prints credentials whose username or note contains text
func Find(ctx context.Context, a *App, text string, show bool) error {
	s, _, err := a.OpenSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.Search(text)
	if err != nil {
		return err
	}
	if len(result.Credentials) == 0 && len(result.Failures) == 0 {
		a.printf("No credentials match %q\n", text)
		return nil
	}
	a.printCredentials(result, show)
	return nil
}

// Show prints one credential in full, secret included
func Show(ctx context.Context, a *App, id uint64) error {
	s, _, err := a.OpenSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.Find(id)
	if err != nil {
		return err
	}

	a.printf("ID:       %d\n", c.ID)
	a.printf("Username: %s\n", c.Username)
	a.printf("Secret:   %s\n", c.Secret)
	a.printf("Note:     %s\n", c.Note)
	a.printf("Created:  %s\n", c.Created.Format(time.RFC3339))
	a.printf("Modified: %s\n", c.Modified.Format(time.RFC3339))
	return nil
}

func (a *App) printCredentials(result *vault.ListResult, show bool) {
	if len(result.Credentials) == 0 && len(result.Failures) == 0 {
		a.printf("No credentials stored\n")
		return
	}

	if len(result.Credentials) > 0 {
		writeTable(a.Out, result.Credentials, show)
	}
	a.reportFailures(result.Failures)
}

func writeTable(out io.Writer, creds []vault.Credential, show bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tSECRET\tNOTE")
	for _, c := range creds {
		secret := mask
		if show {
			secret = c.Secret
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Username, secret, c.Note)
	}
	w.Flush()
}

// formatSize formats a file size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
