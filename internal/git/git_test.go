package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	cmd := exec.Command("git", "init", "-q")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to init repository: %v: %s", err, out)
	}
	return dir
}

func TestCheckVaultOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	status := CheckVault(filepath.Join(dir, "vault.db"))
	if status.IsRepo && !IsGitRepo(dir) {
		t.Errorf("Reported repository for %s", dir)
	}
	if !status.IsRepo && FormatStatus(status, "vault.db") != "" {
		t.Errorf("Expected empty output outside a repository")
	}
}

func TestCheckVaultInRepo(t *testing.T) {
	dir := initRepo(t)
	vaultPath := filepath.Join(dir, "vault.db")
	if err := os.WriteFile(vaultPath, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to write vault: %v", err)
	}

	status := CheckVault(vaultPath)
	if !status.IsRepo || status.Tracked || status.Ignored {
		t.Fatalf("Unexpected status: %+v", status)
	}
	if !status.Exposed() {
		t.Errorf("Unignored vault should be exposed")
	}
	if out := FormatStatus(status, vaultPath); !strings.Contains(out, "warning") {
		t.Errorf("Expected warning, got %q", out)
	}

	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("vault.db\n"), 0644); err != nil {
		t.Fatalf("Failed to write .gitignore: %v", err)
	}
	status = CheckVault(vaultPath)
	if !status.Ignored || status.Exposed() {
		t.Errorf("Ignored vault should not be exposed: %+v", status)
	}
	if out := FormatStatus(status, vaultPath); !strings.Contains(out, "ok") {
		t.Errorf("Expected ok, got %q", out)
	}
}
