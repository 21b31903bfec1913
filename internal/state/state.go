package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/picklr-io/switcher/internal/ir"
)

// DefaultPath is the local history file under the XDG state directory.
func DefaultPath() (string, error) {
	path, err := xdg.StateFile(filepath.Join("switcher", "history.yaml"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve history path: %w", err)
	}
	return path, nil
}

// Manager keeps the history in a local YAML file.
type Manager struct {
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) Path() string {
	return m.path
}

// Read loads the history from the configured path.
func (m *Manager) Read(_ context.Context) (*ir.History, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return emptyHistory(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file %s: %w", m.path, err)
	}

	history, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load history from %s: %w", m.path, err)
	}
	return history, nil
}

// Write saves the history to the configured path, replacing it atomically.
func (m *Manager) Write(_ context.Context, history *ir.History) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	content, err := Encode(history)
	if err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace history file %s: %w", m.path, err)
	}
	return nil
}
