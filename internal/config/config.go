package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/illarion/lockpass/internal/crypto"
	"github.com/illarion/lockpass/internal/security"
	"github.com/illarion/lockpass/internal/storage"
	"github.com/joho/godotenv"
)

// Environment variables, also accepted as keys in the config file
const (
	EnvVault       = "LOCKPASS_VAULT"
	EnvLockTimeout = "LOCKPASS_LOCK_TIMEOUT"
	EnvCipher      = "LOCKPASS_CIPHER"
	EnvKDFMemory   = "LOCKPASS_KDF_MEMORY"
	EnvKDFTime     = "LOCKPASS_KDF_TIME"
)

var ErrInvalidValue = errors.New("invalid configuration value")

// Config holds settings resolved from defaults, the config file and the
// environment. Command-line flags are applied by the caller.
type Config struct {
	VaultPath   string
	LockTimeout time.Duration
	Cipher      crypto.Suite
	KDF         crypto.KDFParams

	// File is the config file that was read, empty if none
	File string
}

// Default returns the built-in settings
func Default() *Config {
	cfg := &Config{
		LockTimeout: storage.DefaultLockTimeout,
		Cipher:      crypto.SuiteAESGCM,
		KDF:         crypto.DefaultKDFParams(),
	}
	if path, err := security.DefaultVaultPath(); err == nil {
		cfg.VaultPath = path
	}
	return cfg
}

// FilePath returns the location of the optional config file,
// $XDG_CONFIG_HOME/lockpass/config.env on Linux
func FilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lockpass", "config.env"), nil
}

// Load resolves the configuration from the default config file and the
// process environment
func Load() (*Config, error) {
	path, err := FilePath()
	if err != nil {
		// No config directory; environment still applies
		path = ""
	}
	return LoadFrom(path, os.LookupEnv)
}

// LoadFrom applies a dotenv file (skipped when empty or missing) and then
// the given environment lookup on top of the defaults
func LoadFrom(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		values, err := godotenv.Read(path)
		switch {
		case err == nil:
			cfg.File = path
			if err := cfg.apply(mapLookup(values)); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := cfg.apply(lookup); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func (c *Config) apply(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvVault); ok && v != "" {
		c.VaultPath = v
	}

	if v, ok := lookup(EnvLockTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvLockTimeout, v)
		}
		c.LockTimeout = d
	}

	if v, ok := lookup(EnvCipher); ok && v != "" {
		suite, err := crypto.ParseSuite(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, EnvCipher, err)
		}
		c.Cipher = suite
	}

	if v, ok := lookup(EnvKDFMemory); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvKDFMemory, v)
		}
		c.KDF.Memory = uint32(n)
	}

	if v, ok := lookup(EnvKDFTime); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, EnvKDFTime, v)
		}
		c.KDF.Time = uint32(n)
	}

	return nil
}

// Validate checks settings that only matter when a vault is created
func (c *Config) Validate() error {
	kdf := crypto.KDF{Salt: make([]byte, crypto.SaltSize), Params: c.KDF}
	if err := kdf.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return nil
}
