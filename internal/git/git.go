package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status describes how a vault file relates to an enclosing git repository
type Status struct {
	IsRepo  bool
	Tracked bool // Vault is committed or staged (bad)
	Ignored bool // Vault is covered by .gitignore (good)
}

// Exposed reports whether the vault could end up in a commit
func (s *Status) Exposed() bool {
	return s.IsRepo && (s.Tracked || !s.Ignored)
}

// IsGitRepo checks if the directory is inside a git work tree
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckVault inspects the repository, if any, that contains vaultPath.
// A missing git binary is treated as "not a repository".
func CheckVault(vaultPath string) *Status {
	dir, name := filepath.Split(vaultPath)
	if dir == "" {
		dir = "."
	}

	status := &Status{}
	if !IsGitRepo(dir) {
		return status
	}
	status.IsRepo = true
	status.Tracked = IsTracked(dir, name)
	status.Ignored = IsIgnored(dir, name)
	return status
}

// FormatStatus formats the vault's git status for display
func FormatStatus(status *Status, vaultPath string) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	name := filepath.Base(vaultPath)
	switch {
	case status.Tracked:
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", name, name))
	case !status.Ignored:
		result.WriteString(fmt.Sprintf("   warning: %s is inside a git repository and not in .gitignore\n", name))
	default:
		result.WriteString(fmt.Sprintf("   ok: %s is in .gitignore\n", name))
	}

	return result.String()
}
