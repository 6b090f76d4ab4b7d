// Package settings persists per-installation display preferences as a YAML
// file. Preferences are cosmetic only; nothing in the ledger depends on them.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// Preferences holds the display preferences for a wallet installation.
type Preferences struct {
	TestnetDisplay bool   `yaml:"testnet_display" default:"true"`
	Theme          string `yaml:"theme" default:"dark"`
	NodeURL        string `yaml:"node_url" default:""`
}

// Store loads and saves preferences.
type Store interface {
	Load() (*Preferences, error)
	Save(prefs *Preferences) error
}

// FileStore persists preferences in a YAML file on local disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads preferences from disk. A missing file yields the defaults.
func (s *FileStore) Load() (*Preferences, error) {
	prefs := &Preferences{}
	if err := defaults.Set(prefs); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	if err := yaml.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return prefs, nil
}

// Save writes preferences to disk, creating parent directories as needed.
func (s *FileStore) Save(prefs *Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preferences dir: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}
