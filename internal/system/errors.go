package system

import (
	"fmt"
	"strings"
)

// CommandError reports a program that could not be spawned, was killed, or
// exited with a non-zero status.
type CommandError struct {
	Program string
	Args    []string
	// ExitCode is -1 when the program never ran to completion.
	ExitCode int
	// Stderr is the captured diagnostic output, empty for interactive runs.
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	commandLine := strings.TrimSpace(e.Program + " " + strings.Join(e.Args, " "))
	if e.Stderr != "" {
		return fmt.Sprintf("running %s: %s", commandLine, e.Stderr)
	}
	return fmt.Sprintf("running %s: %v", commandLine, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Exited reports whether the program ran and returned a status code.
func (e *CommandError) Exited() bool {
	return e.ExitCode >= 0
}

// EncodingError reports program output that is not valid UTF-8.
type EncodingError struct {
	Program string
	Args    []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("output of %s is not valid UTF-8", strings.TrimSpace(e.Program+" "+strings.Join(e.Args, " ")))
}
