// Package secrets keeps credentials, such as the PostgreSQL DSN, out of
// config files by storing them in the OS keyring.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "linkareer-crawler"
	// FallbackDir holds secrets when no keyring is available (CI, containers)
	FallbackDir = ".linkareer/secrets"

	// PostgresDSN is the key of the PostgreSQL connection string
	PostgresDSN = "postgres-dsn"
)

// ErrNotFound means no secret is stored under the key
var ErrNotFound = errors.New("secret not found")

// Store reads and writes named secrets
type Store struct {
	fileBased bool
	dir       string
}

// Open returns a keyring backed Store, or a file backed one under the home
// directory when the keyring is unusable.
func Open() (*Store, error) {
	if os.Getenv("CI") == "" && keyringUsable() {
		return &Store{}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	log.Debug().Msg("OS keyring unavailable, storing secrets on disk")
	return NewFileStore(filepath.Join(home, FallbackDir)), nil
}

// NewFileStore returns a Store keeping one 0600 file per secret in dir
func NewFileStore(dir string) *Store {
	return &Store{fileBased: true, dir: dir}
}

func keyringUsable() bool {
	const probe = "_probe_"
	if err := keyring.Set(KeyringService, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(KeyringService, probe)
	return true
}

// Set stores value under key
func (s *Store) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("secret key cannot be empty")
	}

	if s.fileBased {
		if err := os.MkdirAll(s.dir, 0700); err != nil {
			return fmt.Errorf("failed to create secrets directory: %w", err)
		}
		if err := os.WriteFile(s.path(key), []byte(value), 0600); err != nil {
			return fmt.Errorf("failed to save secret file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, key, value); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// Get returns the secret under key, or ErrNotFound
func (s *Store) Get(key string) (string, error) {
	if s.fileBased {
		data, err := os.ReadFile(s.path(key))
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("failed to load secret file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	value, err := keyring.Get(KeyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load from keyring: %w", err)
	}
	return value, nil
}

// Delete removes the secret under key; a missing secret is not an error
func (s *Store) Delete(key string) error {
	if s.fileBased {
		if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete secret file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key))
}
