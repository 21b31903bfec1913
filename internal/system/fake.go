package system

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is an in-memory stand-in for System and Runner. It answers host queries
// from its fields and records every interactive command instead of running it.
//
// Errors is keyed by query ("hostname", "whoami", "mktemp", "nixos",
// "which:<program>") or by "run:<program>" for interactive commands.
type Fake struct {
	Host  string
	User  string
	Temp  string
	NixOS bool

	// Tools maps program names to the path Which reports.
	Tools map[string]string

	// Outputs maps a command line ("gh auth token") to RunCaptured output.
	Outputs map[string]string

	Errors map[string]error

	mu       sync.Mutex
	commands [][]string
}

func (f *Fake) err(key string) error {
	if f.Errors == nil {
		return nil
	}
	return f.Errors[key]
}

func (f *Fake) Hostname(context.Context) (string, error) {
	return f.Host, f.err("hostname")
}

func (f *Fake) Username(context.Context) (string, error) {
	return f.User, f.err("whoami")
}

func (f *Fake) TempDir(context.Context) (string, error) {
	return f.Temp, f.err("mktemp")
}

func (f *Fake) Which(_ context.Context, program string) (string, bool, error) {
	if err := f.err("which:" + program); err != nil {
		return "", false, err
	}
	path, ok := f.Tools[program]
	return path, ok, nil
}

func (f *Fake) IsNixOS(context.Context) (bool, error) {
	return f.NixOS, f.err("nixos")
}

func (f *Fake) Run(_ context.Context, program string, args ...string) error {
	f.record(program, args)
	return f.err("run:" + program)
}

func (f *Fake) RemoveAll(ctx context.Context, dir string) error {
	return f.Run(ctx, "rm", "-rf", dir)
}

func (f *Fake) RunCaptured(_ context.Context, program string, args ...string) (string, error) {
	line := strings.TrimSpace(program + " " + strings.Join(args, " "))
	if err := f.err(line); err != nil {
		return "", err
	}
	out, ok := f.Outputs[line]
	if !ok {
		return "", &CommandError{Program: program, Args: args, ExitCode: 127, Err: fmt.Errorf("no canned output for %q", line)}
	}
	return strings.TrimSpace(out), nil
}

func (f *Fake) RunInteractive(ctx context.Context, program string, args ...string) error {
	return f.Run(ctx, program, args...)
}

func (f *Fake) record(program string, args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, append([]string{program}, args...))
}

// Commands returns every interactive command in the order it was issued.
func (f *Fake) Commands() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.commands))
	copy(out, f.commands)
	return out
}

// Programs returns the program name of every recorded command.
func (f *Fake) Programs() []string {
	var programs []string
	for _, c := range f.Commands() {
		programs = append(programs, c[0])
	}
	return programs
}
