// Package run abstracts the invocation of external tools. Every
// destructive action in the installer flows through a Runner so tests
// can substitute a Recorder and assert on the exact command sequence.
package run

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes external commands. Run blocks until the command
// finishes and reports failure with captured diagnostics. Output
// additionally returns the command's standard output for the few spots
// that need to parse it.
type Runner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

// CommandError carries the captured output of a failed command.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v (output: %q)", e.Command, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands on the host.
type ExecRunner struct {
	Logger zerolog.Logger
}

func (r ExecRunner) Run(name string, args ...string) error {
	cmdline := commandLine(name, args)
	r.Logger.Debug().Str("cmd", cmdline).Msg("exec")

	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		output := strings.TrimSpace(string(out))
		r.Logger.Err(err).Str("cmd", cmdline).Str("output", output).Msg("command failed")
		return &CommandError{Command: cmdline, Output: output, Err: err}
	}
	return nil
}

func (r ExecRunner) Output(name string, args ...string) (string, error) {
	cmdline := commandLine(name, args)
	r.Logger.Debug().Str("cmd", cmdline).Msg("exec")

	var stderr strings.Builder
	cmd := exec.Command(name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		output := strings.TrimSpace(stderr.String())
		r.Logger.Err(err).Str("cmd", cmdline).Str("output", output).Msg("command failed")
		return "", &CommandError{Command: cmdline, Output: output, Err: err}
	}
	return string(out), nil
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
