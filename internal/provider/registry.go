// Package provider resolves the latest commit of a flake reference by
// dispatching on its scheme to a registered CommitProvider.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/logging"
)

// CommitProvider resolves the commit a flake reference should be pinned to.
type CommitProvider interface {
	LatestCommit(ctx context.Context, ref *flake.Ref) (string, error)
}

// Factory builds a provider on first use.
type Factory func() (CommitProvider, error)

// Registry manages the lifecycle of providers, keyed by flake scheme.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	providers map[string]CommitProvider
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		providers: make(map[string]CommitProvider),
	}
}

// Register makes a provider available for scheme. Registering a scheme twice
// replaces the earlier factory.
func (r *Registry) Register(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[scheme] = factory
	delete(r.providers, scheme)
}

// LoadProvider initializes the provider for scheme if it is not loaded yet.
func (r *Registry) LoadProvider(scheme string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[scheme]; exists {
		return nil
	}

	factory, ok := r.factories[scheme]
	if !ok {
		return &UnsupportedProviderError{Scheme: scheme}
	}

	p, err := factory()
	if err != nil {
		return fmt.Errorf("failed to load provider %s: %w", scheme, err)
	}

	r.providers[scheme] = p
	return nil
}

// Get returns the loaded provider for scheme, loading it if needed.
func (r *Registry) Get(scheme string) (CommitProvider, error) {
	if err := r.LoadProvider(scheme); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[scheme], nil
}

// Resolve returns the latest commit for ref. Unknown schemes fail with
// *UnsupportedProviderError instead of falling back to any default.
func (r *Registry) Resolve(ctx context.Context, ref *flake.Ref) (string, error) {
	p, err := r.Get(ref.Scheme())
	if err != nil {
		return "", err
	}

	logging.Debug("resolving latest commit", "flake", ref.String(), "scheme", ref.Scheme())
	commit, err := p.LatestCommit(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("retrieving latest commit rev: %w", err)
	}
	return commit, nil
}
