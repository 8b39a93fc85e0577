package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
	"strand.sh/cli/internal/core/domain"
)

// FileRepository loads and saves the YAML configuration file.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository for the config file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Location returns the config file path.
func (r *FileRepository) Location() string {
	return r.path
}

// Load reads and parses the config file, expanding a leading ~ in plugin_dir.
func (r *FileRepository) Load() (*domain.Config, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", r.path, err)
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", r.path, err)
	}

	cfg.PluginDir = ExpandPath(cfg.PluginDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", r.path, err)
	}

	return &cfg, nil
}

// Save writes the config back out, creating the config directory if needed.
func (r *FileRepository) Save(cfg *domain.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", r.path, err)
	}

	return nil
}

// DefaultPath returns the default config file location: $XDG_CONFIG_HOME
// when set, otherwise the platform user config directory, joined with strand.
func DefaultPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not locate config directory: %w", err)
		}
	}
	return filepath.Join(dir, "strand", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
		}
	}
	return path
}
