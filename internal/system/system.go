package system

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// NixOSMarker exists on every NixOS installation.
const NixOSMarker = "/etc/NIXOS"

// System answers questions about the local host by running programs through a Runner.
type System struct {
	runner Runner

	// NixOSMarker is the file whose presence marks a NixOS host.
	NixOSMarker string
}

func New(runner Runner) *System {
	return &System{
		runner:      runner,
		NixOSMarker: NixOSMarker,
	}
}

// Runner returns the Runner used for all commands.
func (s *System) Runner() Runner {
	return s.runner
}

func (s *System) Hostname(ctx context.Context) (string, error) {
	out, err := s.runner.RunCaptured(ctx, "hostname")
	if err != nil {
		return "", fmt.Errorf("retrieving the hostname: %w", err)
	}
	return out, nil
}

func (s *System) Username(ctx context.Context) (string, error) {
	out, err := s.runner.RunCaptured(ctx, "whoami")
	if err != nil {
		return "", fmt.Errorf("retrieving the current username: %w", err)
	}
	return out, nil
}

// TempDir creates a fresh empty directory and returns its path. The caller owns
// the directory and must remove it.
func (s *System) TempDir(ctx context.Context) (string, error) {
	out, err := s.runner.RunCaptured(ctx, "mktemp", "-d")
	if err != nil {
		return "", fmt.Errorf("creating the temporary folder: %w", err)
	}
	if out == "" {
		return "", errors.New("creating the temporary folder: mktemp printed no path")
	}
	return out, nil
}

// Which looks program up on PATH. A lookup that runs but finds nothing reports
// absence rather than an error.
func (s *System) Which(ctx context.Context, program string) (string, bool, error) {
	out, err := s.runner.RunCaptured(ctx, "which", program)
	if err != nil {
		var ce *CommandError
		if errors.As(err, &ce) && ce.Exited() {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up %s: %w", program, err)
	}
	if out == "" {
		return "", false, nil
	}
	return out, true, nil
}

// IsNixOS reports whether this host runs NixOS.
func (s *System) IsNixOS(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.NixOSMarker)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking for %s: %w", s.NixOSMarker, err)
}

// Run runs program interactively.
func (s *System) Run(ctx context.Context, program string, args ...string) error {
	return s.runner.RunInteractive(ctx, program, args...)
}

// RemoveAll deletes dir recursively.
func (s *System) RemoveAll(ctx context.Context, dir string) error {
	if dir == "" {
		return errors.New("refusing to remove an empty path")
	}
	return s.runner.RunInteractive(ctx, "rm", "-rf", dir)
}
