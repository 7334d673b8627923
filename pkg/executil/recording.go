package executil

import (
	"context"
	"sync"
)

// RecordedCommand is one invocation captured by a RecordingExecutor.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// RecordingExecutor is an Executor for tests. It records every
// invocation and answers with canned results keyed by command name, so
// a test can assert exactly what was run without touching a real
// binary.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Outputs and Errors map a command name (e.g. "git") to the result
	// the next invocation returns.
	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns its canned result.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with its working directory and returns its
// canned result.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{Dir: dir, Cmd: cmd, Args: args})
	return e.Outputs[cmd], e.Errors[cmd]
}
