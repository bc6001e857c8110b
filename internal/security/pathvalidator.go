package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVaultName is the vault file created in the home directory
const DefaultVaultName = ".lockpass"

var (
	ErrEmptyPath   = errors.New("empty path not allowed")
	ErrInvalidPath = errors.New("invalid vault path")
	ErrNoDirectory = errors.New("vault directory does not exist")
	ErrNotRegular  = errors.New("vault path is not a regular file")
	ErrPathExists  = errors.New("vault path already exists")
)

// PathValidator checks a vault location before the store touches it.
// Lookups of the vault file go through os.Root on its parent directory,
// so a symlinked vault name is seen as a symlink and never followed.
type PathValidator struct {
	dir     *os.Root
	dirPath string
	name    string
}

// DefaultVaultPath returns ~/.lockpass
func DefaultVaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, DefaultVaultName), nil
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// New validates a user-supplied vault path and opens its parent directory.
// It rejects empty paths, paths with NUL bytes, and paths without a file
// name component. The parent directory must exist.
func New(vaultPath string) (*PathValidator, error) {
	if strings.TrimSpace(vaultPath) == "" {
		return nil, ErrEmptyPath
	}
	if strings.ContainsRune(vaultPath, 0) {
		return nil, fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}
	if strings.HasSuffix(vaultPath, "/") || strings.HasSuffix(vaultPath, string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s names a directory", ErrInvalidPath, vaultPath)
	}

	expanded, err := ExpandHome(vaultPath)
	if err != nil {
		return nil, err
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	dirPath, name := filepath.Split(absPath)
	if name == "" || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPath, vaultPath)
	}
	dirPath = filepath.Clean(dirPath)

	root, err := os.OpenRoot(dirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDirectory, dirPath)
		}
		return nil, fmt.Errorf("failed to open vault directory: %w", err)
	}

	return &PathValidator{dir: root, dirPath: dirPath, name: name}, nil
}

// Close releases resources held by the PathValidator.
func (pv *PathValidator) Close() error {
	if pv.dir != nil {
		return pv.dir.Close()
	}
	return nil
}

// Path returns the absolute vault path
func (pv *PathValidator) Path() string {
	return filepath.Join(pv.dirPath, pv.name)
}

// Dir returns the directory holding the vault
func (pv *PathValidator) Dir() string {
	return pv.dirPath
}

// CheckNew ensures nothing exists at the vault path yet
func (pv *PathValidator) CheckNew() error {
	_, err := pv.dir.Lstat(pv.name)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrPathExists, pv.Path())
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to stat vault: %w", err)
}

// CheckExisting ensures the vault path is a regular file and returns its
// info. Symlinks and directories are rejected. A missing file yields an
// error wrapping fs.ErrNotExist.
func (pv *PathValidator) CheckExisting() (os.FileInfo, error) {
	info, err := pv.dir.Lstat(pv.name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat vault: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, pv.Path())
	}
	return info, nil
}

// LoosePermissions reports whether group or others can access the vault
func LoosePermissions(info os.FileInfo) bool {
	return info.Mode().Perm()&0o077 != 0
}
