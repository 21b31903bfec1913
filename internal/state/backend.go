// Package state persists the deployment history: one record per run that
// reached the execute phase.
package state

import (
	"context"
	"fmt"

	"github.com/picklr-io/switcher/internal/ir"
	"gopkg.in/yaml.v3"
)

// MaxDeployments bounds the history; older records are dropped on append.
const MaxDeployments = 200

// Backend defines the interface for history storage backends.
type Backend interface {
	// Read loads the history. A backend with nothing stored yet returns an empty history.
	Read(ctx context.Context) (*ir.History, error)

	// Write replaces the stored history.
	Write(ctx context.Context, history *ir.History) error

	// Lock acquires an exclusive lock on the history.
	Lock(ctx context.Context) error

	// Unlock releases the lock on the history.
	Unlock(ctx context.Context) error
}

// NewBackend creates a history backend from configuration.
func NewBackend(ctx context.Context, cfg ir.HistoryConfig) (Backend, error) {
	switch cfg.Backend {
	case "local", "":
		path := cfg.Path
		if path == "" {
			var err error
			if path, err = DefaultPath(); err != nil {
				return nil, err
			}
		}
		return NewManager(path), nil
	case "s3":
		return newS3Backend(ctx, cfg)
	case "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.Backend)
	}
}

// Append adds d to the history. The caller must hold the backend lock.
func Append(ctx context.Context, b Backend, d *ir.Deployment) error {
	history, err := b.Read(ctx)
	if err != nil {
		return err
	}

	history.Deployments = append(history.Deployments, d)
	if n := len(history.Deployments); n > MaxDeployments {
		history.Deployments = history.Deployments[n-MaxDeployments:]
	}

	return b.Write(ctx, history)
}

func emptyHistory() *ir.History {
	return &ir.History{Version: ir.HistoryVersion}
}

// Encode renders history as YAML.
func Encode(history *ir.History) ([]byte, error) {
	history.Version = ir.HistoryVersion
	out, err := yaml.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return out, nil
}

// Decode parses YAML history. Empty input is an empty history.
func Decode(data []byte) (*ir.History, error) {
	history := emptyHistory()
	if len(data) == 0 {
		return history, nil
	}
	if err := yaml.Unmarshal(data, history); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if history.Version > ir.HistoryVersion {
		return nil, fmt.Errorf("history version %d is newer than supported version %d", history.Version, ir.HistoryVersion)
	}
	return history, nil
}

// Discard is a backend that stores nothing.
type Discard struct{}

func (Discard) Read(context.Context) (*ir.History, error) { return emptyHistory(), nil }
func (Discard) Write(context.Context, *ir.History) error  { return nil }
func (Discard) Lock(context.Context) error                { return nil }
func (Discard) Unlock(context.Context) error              { return nil }
