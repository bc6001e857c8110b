package security

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		input   string
		errType error
	}{
		{"simple file", filepath.Join(tmpDir, "vault.db"), nil},
		{"hidden file", filepath.Join(tmpDir, ".lockpass"), nil},
		{"dot segments", tmpDir + "/./a/../vault.db", nil},
		{"empty path", "", ErrEmptyPath},
		{"blank path", "   ", ErrEmptyPath},
		{"nul byte", tmpDir + "/va\x00ult", ErrInvalidPath},
		{"trailing slash", tmpDir + "/", ErrInvalidPath},
		{"missing directory", filepath.Join(tmpDir, "nope", "vault.db"), ErrNoDirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pv, err := New(tt.input)
			if tt.errType != nil {
				if !errors.Is(err, tt.errType) {
					t.Errorf("Expected %v for %q, got %v", tt.errType, tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tt.input, err)
			}
			defer pv.Close()

			if !filepath.IsAbs(pv.Path()) {
				t.Errorf("Path should be absolute, got %q", pv.Path())
			}
			if filepath.Dir(pv.Path()) != pv.Dir() {
				t.Errorf("Dir %q does not contain %q", pv.Dir(), pv.Path())
			}
		})
	}
}

func TestNewRelative(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	pv, err := New("vault.db")
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer pv.Close()

	want, _ := filepath.EvalSymlinks(filepath.Join(tmpDir, "vault.db"))
	got, _ := filepath.EvalSymlinks(pv.Dir())
	if filepath.Join(got, "vault.db") != want {
		t.Errorf("Expected %q, got %q", want, pv.Path())
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		input string
		want  string
	}{
		{"~", home},
		{"~/vault", filepath.Join(home, "vault")},
		{"/abs/vault", "/abs/vault"},
		{"rel/~/vault", "rel/~/vault"},
		{"~other/vault", "~other/vault"},
	}

	for _, tt := range tests {
		got, err := ExpandHome(tt.input)
		if err != nil {
			t.Fatalf("Failed to expand %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	def, err := DefaultVaultPath()
	if err != nil {
		t.Fatalf("Failed to get default path: %v", err)
	}
	if def != filepath.Join(home, DefaultVaultName) {
		t.Errorf("Unexpected default path %q", def)
	}
}

func TestCheckNewAndExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "vault.db")

	pv, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer pv.Close()

	if err := pv.CheckNew(); err != nil {
		t.Errorf("CheckNew on missing file: %v", err)
	}
	if _, err := pv.CheckExisting(); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}

	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := pv.CheckNew(); !errors.Is(err, ErrPathExists) {
		t.Errorf("Expected ErrPathExists, got %v", err)
	}
	info, err := pv.CheckExisting()
	if err != nil {
		t.Fatalf("CheckExisting on regular file: %v", err)
	}
	if LoosePermissions(info) {
		t.Errorf("Mode %v reported as loose", info.Mode())
	}

	if err := os.Chmod(path, 0644); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	info, _ = pv.CheckExisting()
	if !LoosePermissions(info) {
		t.Errorf("Mode %v should be loose", info.Mode())
	}
}

func TestCheckExistingRejectsSymlinkAndDir(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "target.db")
	if err := os.WriteFile(target, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to write target: %v", err)
	}
	link := filepath.Join(tmpDir, "link.db")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}
	dir := filepath.Join(tmpDir, "dir.db")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	for _, path := range []string{link, dir} {
		pv, err := New(path)
		if err != nil {
			t.Fatalf("Failed to create validator: %v", err)
		}
		if _, err := pv.CheckExisting(); !errors.Is(err, ErrNotRegular) {
			t.Errorf("Expected ErrNotRegular for %s, got %v", path, err)
		}
		pv.Close()
	}
}
