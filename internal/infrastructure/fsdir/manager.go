package fsdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager owns the plugin root directory for the duration of one run.
type Manager struct{}

// NewManager creates a directory manager.
func NewManager() *Manager {
	return &Manager{}
}

// ResetRoot deletes everything under path and recreates it empty, creating
// the directory if it does not exist yet. Destructive and unconditional:
// a full reinstall replaces any notion of cleaning or updating in place.
func (m *Manager) ResetRoot(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear plugin directory %s: %w", path, err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create plugin directory %s: %w", path, err)
	}
	return nil
}

// EnsureSubdir creates the per-plugin target directory under root.
func (m *Manager) EnsureSubdir(root, name string) (string, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create target directory %s: %w", dir, err)
	}
	return dir, nil
}
