package run

import (
	"fmt"
	"strings"
	"sync"
)

// Recorder is a Runner that records invocations instead of executing
// them. FailOn makes the nth recorded call (1-based) fail; FailMatch
// makes any command line containing the substring fail. Safe for
// concurrent use, since graph steps may run in parallel.
type Recorder struct {
	FailOn    int
	FailMatch string
	// Err overrides the error returned on a scripted failure.
	Err error
	// Outputs maps full command lines to the stdout Output returns.
	Outputs map[string]string

	mu    sync.Mutex
	calls []string
}

func (r *Recorder) Run(name string, args ...string) error {
	line := commandLine(name, args)

	r.mu.Lock()
	r.calls = append(r.calls, line)
	fail := (r.FailOn > 0 && len(r.calls) == r.FailOn) ||
		(r.FailMatch != "" && strings.Contains(line, r.FailMatch))
	r.mu.Unlock()

	if fail {
		if r.Err != nil {
			return r.Err
		}
		return fmt.Errorf("command failed: %s", line)
	}
	return nil
}

func (r *Recorder) Output(name string, args ...string) (string, error) {
	line := commandLine(name, args)
	if err := r.Run(name, args...); err != nil {
		return "", err
	}
	return r.Outputs[line], nil
}

// Calls returns the recorded command lines in invocation order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.calls...)
}
