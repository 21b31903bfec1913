// Package engine drives one switcher run: gather host facts and the latest
// commit concurrently, plan the buildables, then build and switch them one
// step at a time.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/picklr-io/switcher/internal/flake"
	"github.com/picklr-io/switcher/internal/ir"
	"github.com/picklr-io/switcher/internal/state"
)

// System is the host capability the engine drives. It is the only path to
// the process table.
type System interface {
	Hostname(ctx context.Context) (string, error)
	Username(ctx context.Context) (string, error)
	TempDir(ctx context.Context) (string, error)
	Which(ctx context.Context, program string) (string, bool, error)
	IsNixOS(ctx context.Context) (bool, error)
	Run(ctx context.Context, program string, args ...string) error
	RemoveAll(ctx context.Context, dir string) error
}

// Resolver returns the commit a flake reference should be pinned to.
type Resolver interface {
	Resolve(ctx context.Context, ref *flake.Ref) (string, error)
}

// StepEvent represents a progress event during the execute phase.
type StepEvent struct {
	Step     ir.StepName
	Status   string // "started", "completed", "failed", "skipped", "retained"
	Duration time.Duration
	Error    error
}

// StepCallback is called for each step event if set.
type StepCallback func(event StepEvent)

// Engine orchestrates one run against a fixed configuration.
type Engine struct {
	system   System
	resolver Resolver
	config   *ir.Config

	// ExtraTools are required on PATH in addition to the configured tools.
	ExtraTools []string
	// History records every run that reaches the execute phase; nil disables recording.
	History state.Backend
	OnStep  StepCallback

	now   func() time.Time
	newID func() string
}

func NewEngine(system System, resolver Resolver, config *ir.Config) *Engine {
	return &Engine{
		system:   system,
		resolver: resolver,
		config:   config,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (e *Engine) emit(event StepEvent) {
	if e.OnStep != nil {
		e.OnStep(event)
	}
}

// MissingToolsError is the fatal precondition failure: required programs are
// not on PATH, so continuing would silently skip part of the run.
type MissingToolsError struct {
	Tools []string
}

func (e *MissingToolsError) Error() string {
	return fmt.Sprintf("required tool(s) not found in PATH: %s", strings.Join(e.Tools, ", "))
}

// HomeFragment names the activation package of user's home configuration on host.
func HomeFragment(user, host string) string {
	return fmt.Sprintf("homeConfigurations.%s@%s.activationPackage", user, host)
}

// SystemFragment names the toplevel derivation of host's NixOS configuration.
func SystemFragment(host string) string {
	return fmt.Sprintf("nixosConfigurations.%s.config.system.build.toplevel", host)
}
