// Package config loads the CLI configuration file.
//
// Example:
//
//	ledger: ~/finances/main.beancount
//	log_level: info
//	rules_file: ~/finances/rules.yaml
//	store:
//	  backend: sqlite
//	  path: ~/.config/ledgerimport/settings.db
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/logger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/store"
)

// Backend selects where settings and mappings are persisted.
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendFile      Backend = "file"
	BackendSQLite    Backend = "sqlite"
	BackendFirestore Backend = "firestore"
)

const defaultDir = "~/.config/ledgerimport"

// StoreConfig configures the settings store.
type StoreConfig struct {
	Backend Backend `yaml:"backend"`
	// Path of the file and sqlite backends.
	Path string `yaml:"path"`
	// Project, Collection and CredentialsFile configure the firestore backend.
	// An empty CredentialsFile uses application default credentials.
	Project         string `yaml:"project"`
	Collection      string `yaml:"collection"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Config is the top-level YAML structure
type Config struct {
	Ledger    string      `yaml:"ledger"`
	LogLevel  string      `yaml:"log_level"`
	RulesFile string      `yaml:"rules_file"`
	Output    string      `yaml:"output"`
	Store     StoreConfig `yaml:"store"`
}

// DefaultPath is where the CLI looks for its configuration.
func DefaultPath() string {
	return filepath.Join(defaultDir, "config.yaml")
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		LogLevel: "info",
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    filepath.Join(defaultDir, "settings.json"),
		},
	}
}

// Load reads the configuration at path. A missing file at the default path
// gives the defaults; a missing explicit path is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	expanded, err := ExpandHome(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, filling in defaults, and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML config (check syntax, indentation, and field names): %w", err)
	}
	if cfg.Store.Backend == BackendFirestore && cfg.Store.Collection == "" {
		cfg.Store.Collection = store.DefaultCollection
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combination of settings.
func (c Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store backend %s needs a path", c.Store.Backend)
		}
	case BackendFirestore:
		if c.Store.Project == "" {
			return fmt.Errorf("store backend firestore needs a project")
		}
	default:
		return fmt.Errorf("invalid store backend %q (must be memory, file, sqlite or firestore)", c.Store.Backend)
	}
	return nil
}

// OpenStore opens the configured settings store. The caller closes it.
func (c Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Backend {
	case BackendMemory:
		return store.NewMemory(), nil
	case BackendFile:
		path, err := prepare(c.Store.Path)
		if err != nil {
			return nil, err
		}
		s, err := store.OpenFile(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendSQLite:
		path, err := prepare(c.Store.Path)
		if err != nil {
			return nil, err
		}
		s, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendFirestore:
		credentials, err := ExpandHome(c.Store.CredentialsFile)
		if err != nil {
			return nil, err
		}
		s, err := store.OpenFirestore(ctx, c.Store.Project, c.Store.Collection, credentials)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}
}

// prepare expands path and creates its directory.
func prepare(path string) (string, error) {
	expanded, err := ExpandHome(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", expanded, err)
	}
	return expanded, nil
}

// ExpandHome expands a leading ~/ to the home directory
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
