// Package system is the only place switcher touches the process table. It
// runs external programs either captured (stdout returned as trimmed UTF-8)
// or interactive (standard streams inherited so the operator sees progress).
package system

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"
)

// Runner runs external programs.
type Runner interface {
	// RunCaptured waits for program to finish and returns its trimmed stdout.
	RunCaptured(ctx context.Context, program string, args ...string) (string, error)

	// RunInteractive runs program attached to the operator's terminal and
	// returns an error on any non-zero exit.
	RunInteractive(ctx context.Context, program string, args ...string) error
}

// Exec is the process-backed Runner.
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewExec() *Exec {
	return &Exec{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (e *Exec) RunCaptured(ctx context.Context, program string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", newCommandError(program, args, stderr.String(), err)
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", &EncodingError{Program: program, Args: args}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (e *Exec) RunInteractive(ctx context.Context, program string, args ...string) error {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		return newCommandError(program, args, "", err)
	}
	return nil
}

func newCommandError(program string, args []string, stderr string, err error) *CommandError {
	ce := &CommandError{
		Program:  program,
		Args:     args,
		ExitCode: -1,
		Stderr:   strings.TrimSpace(stderr),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ce.ExitCode = exitErr.ExitCode()
	}
	return ce
}
