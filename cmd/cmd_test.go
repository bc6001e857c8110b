package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/prompt"
	"github.com/illarion/lockpass/internal/security"
	"github.com/illarion/lockpass/internal/vault"
)

type testEnv struct {
	app    *App
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

// newTestApp returns an App whose prompts read input and whose passphrase
// comes from LOCKPASS_PASSWORD
func newTestApp(t *testing.T, passphrase, input string) *testEnv {
	t.Helper()
	t.Setenv(prompt.EnvPassphrase, passphrase)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	if _, err := w.WriteString(input); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}
	w.Close()
	t.Cleanup(func() { r.Close() })

	env := &testEnv{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	env.app = &App{
		VaultPath: filepath.Join(t.TempDir(), "vault.db"),
		Options: vault.Options{
			LockTimeout: 20 * time.Millisecond,
			KDF: crypto.KDFParams{
				Algorithm: crypto.KDFArgon2id,
				Time:      1,
				Memory:    8 * 1024,
				Threads:   1,
			},
		},
		Prompt: &prompt.Prompter{In: r, Out: &bytes.Buffer{}},
		Out:    env.out,
		Err:    env.errOut,
	}
	return env
}

func TestParseMenuOption(t *testing.T) {
	tests := []struct {
		input string
		want  MenuOption
	}{
		{"1", MenuListPasswords},
		{" 2 \n", MenuEnterNewPassword},
		{"3", MenuExit},
		{"4", MenuInvalid},
		{"0", MenuInvalid},
		{"-1", MenuInvalid},
		{"abc", MenuInvalid},
		{"", MenuInvalid},
		{"1.0", MenuInvalid},
	}

	for _, tt := range tests {
		if got := ParseMenuOption(tt.input); got != tt.want {
			t.Errorf("ParseMenuOption(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID(" 42 "); err != nil || id != 42 {
		t.Errorf("Expected 42, got %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc", "1.5"} {
		if _, err := ParseID(bad); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ParseID(%q): expected ErrInvalidID, got %v", bad, err)
		}
	}
}

func TestInitAddListRemove(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t, "p1", "s3cr3t\n")
	a := env.app

	if err := Init(ctx, a); err != nil {
		t.Fatalf("Failed to init: %v", err)
	}
	if !strings.Contains(env.out.String(), "initialized successfully at") {
		t.Errorf("Missing init message: %q", env.out.String())
	}
	if err := Init(ctx, a); !errors.Is(err, security.ErrPathExists) {
		t.Errorf("Expected ErrPathExists on second init, got %v", err)
	}

	if err := Add(ctx, a, "alice", "example.com"); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}

	env.out.Reset()
	if err := List(ctx, a, false); err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	masked := env.out.String()
	if !strings.Contains(masked, "alice") || !strings.Contains(masked, "example.com") {
		t.Errorf("Listing misses credential: %q", masked)
	}
	if strings.Contains(masked, "s3cr3t") || !strings.Contains(masked, mask) {
		t.Errorf("Secret should be masked: %q", masked)
	}

	env.out.Reset()
	if err := List(ctx, a, true); err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if !strings.Contains(env.out.String(), "s3cr3t") {
		t.Errorf("Secret should be shown: %q", env.out.String())
	}

	env.out.Reset()
	if err := Show(ctx, a, 1); err != nil {
		t.Fatalf("Failed to show: %v", err)
	}
	if !strings.Contains(env.out.String(), "Secret:   s3cr3t") {
		t.Errorf("Unexpected show output: %q", env.out.String())
	}

	if err := Remove(ctx, a, []string{"1"}); err != nil {
		t.Fatalf("Failed to remove: %v", err)
	}
	if err := Remove(ctx, a, []string{"1"}); !errors.Is(err, vault.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := Remove(ctx, a, []string{"x"}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}
	if err := Remove(ctx, a, nil); !errors.Is(err, ErrMissingArgs) {
		t.Errorf("Expected ErrMissingArgs, got %v", err)
	}

	env.out.Reset()
	if err := List(ctx, a, false); err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if !strings.Contains(env.out.String(), "No credentials stored") {
		t.Errorf("Expected empty vault, got %q", env.out.String())
	}
}

func TestWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t, "p1", "")
	if err := Init(ctx, env.app); err != nil {
		t.Fatalf("Failed to init: %v", err)
	}

	t.Setenv(prompt.EnvPassphrase, "wrong")
	if err := List(ctx, env.app, false); !errors.Is(err, vault.ErrAuthenticationFailed) {
		t.Errorf("Expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestMissingVault(t *testing.T) {
	env := newTestApp(t, "p1", "")
	if err := List(context.Background(), env.app, false); !errors.Is(err, vault.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}

func TestFindAndEdit(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t, "p1", "one\ntwo\nnewsecret\n")
	a := env.app

	if err := Init(ctx, a); err != nil {
		t.Fatalf("Failed to init: %v", err)
	}
	Add(ctx, a, "alice", "github.com")
	Add(ctx, a, "bob", "mail")

	env.out.Reset()
	if err := Find(ctx, a, "GIT", false); err != nil {
		t.Fatalf("Failed to find: %v", err)
	}
	if !strings.Contains(env.out.String(), "alice") || strings.Contains(env.out.String(), "bob") {
		t.Errorf("Unexpected find output: %q", env.out.String())
	}

	note := "gitlab.com"
	if err := Edit(ctx, a, 1, EditFields{Note: &note, Secret: true}); err != nil {
		t.Fatalf("Failed to edit: %v", err)
	}

	env.out.Reset()
	Show(ctx, a, 1)
	out := env.out.String()
	if !strings.Contains(out, "Username: alice") || !strings.Contains(out, "Note:     gitlab.com") ||
		!strings.Contains(out, "Secret:   newsecret") {
		t.Errorf("Unexpected credential after edit: %q", out)
	}

	if err := Edit(ctx, a, 9, EditFields{Note: &note}); !errors.Is(err, vault.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMenu(t *testing.T) {
	input := strings.Join([]string{
		"1",           // list, empty
		"2",           // add
		"alice",       // username
		"s3cr3t",      // password
		"example.com", // note
		"1",           // list
		"x",           // invalid
		"3",           // exit
	}, "\n") + "\n"
	env := newTestApp(t, "p1", input)

	if err := Menu(context.Background(), env.app); err != nil {
		t.Fatalf("Menu failed: %v", err)
	}

	out := env.out.String()
	for _, want := range []string{
		"initialized successfully at",
		"No credentials stored",
		"Stored credential 1",
		"s3cr3t",
		"example.com",
		"Invalid input, please select a valid option.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Menu output misses %q:\n%s", want, out)
		}
	}

	// Vault persists after the menu exits
	stats, err := vault.Inspect(env.app.VaultPath, env.app.Options)
	if err != nil {
		t.Fatalf("Failed to inspect: %v", err)
	}
	if stats.Records != 1 {
		t.Errorf("Expected 1 record, got %d", stats.Records)
	}
}

func TestMenuEndOfInput(t *testing.T) {
	env := newTestApp(t, "p1", "4\n")
	if err := Menu(context.Background(), env.app); err != nil {
		t.Fatalf("Menu should stop cleanly at end of input: %v", err)
	}
}

func TestMenuCanceled(t *testing.T) {
	env := newTestApp(t, "p1", "1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Menu(ctx, env.app); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestStatusAndCompact(t *testing.T) {
	ctx := context.Background()
	env := newTestApp(t, "p1", "a\nb\n")
	a := env.app

	if err := Status(ctx, a); err != nil {
		t.Fatalf("Status on missing vault: %v", err)
	}
	if !strings.Contains(env.out.String(), "No vault found") {
		t.Errorf("Unexpected status output: %q", env.out.String())
	}

	Init(ctx, a)
	Add(ctx, a, "alice", "x")
	Add(ctx, a, "bob", "y")
	Remove(ctx, a, []string{"1"})

	// Status and compact need no passphrase
	t.Setenv(prompt.EnvPassphrase, "")

	env.out.Reset()
	if err := Status(ctx, a); err != nil {
		t.Fatalf("Failed to get status: %v", err)
	}
	out := env.out.String()
	for _, want := range []string{"Records:   1 (next id 3)", "Cipher:    aes-256-gcm", "argon2id"} {
		if !strings.Contains(out, want) {
			t.Errorf("Status misses %q:\n%s", want, out)
		}
	}

	env.out.Reset()
	if err := Compact(ctx, a); err != nil {
		t.Fatalf("Failed to compact: %v", err)
	}
	if !strings.HasPrefix(env.out.String(), "Compacted:") {
		t.Errorf("Unexpected compact output: %q", env.out.String())
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		var buf bytes.Buffer
		if err := Completion(&buf, shell); err != nil {
			t.Errorf("%s: %v", shell, err)
		}
		if !strings.Contains(buf.String(), "lockpass") {
			t.Errorf("%s completion does not mention lockpass", shell)
		}
	}
	if err := Completion(&bytes.Buffer{}, "tcsh"); err == nil {
		t.Error("Expected error for unsupported shell")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 bytes"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFieldDiff(t *testing.T) {
	tests := []struct {
		before, after, want string
	}{
		{"same", "same", "same"},
		{"", "new", "{+new+}"},
		{"old", "", "[-old-]"},
	}
	for _, tt := range tests {
		if got := fieldDiff(tt.before, tt.after); got != tt.want {
			t.Errorf("fieldDiff(%q, %q) = %q, want %q", tt.before, tt.after, got, tt.want)
		}
	}

	got := fieldDiff("github.com", "gitlab.com")
	if !strings.Contains(got, "[-") || !strings.Contains(got, "{+") || !strings.HasSuffix(got, ".com") {
		t.Errorf("Unexpected diff %q", got)
	}
}
