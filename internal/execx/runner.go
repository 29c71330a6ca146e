// Package execx abstracts subprocess execution so that git plumbing and
// external checkers can be faked in tests.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Runner abstracts command execution for testability.
type Runner interface {
	// LookPath checks if a binary exists in PATH.
	LookPath(name string) (string, error)

	// Run executes a command in dir and returns its raw stdout, its stderr
	// text, and the execution error (nil on exit status 0).
	Run(ctx context.Context, dir, name string, args ...string) (stdout []byte, stderr string, err error)
}

// RealRunner implements Runner using os/exec.
type RealRunner struct {
	// Timeout bounds each invocation. Zero means no timeout: checker
	// invocations deliberately run unbounded, a hung tool stalls its worker.
	Timeout time.Duration
}

// NewRealRunner creates a runner with the given per-invocation timeout.
func NewRealRunner(timeout time.Duration) *RealRunner {
	return &RealRunner{Timeout: timeout}
}

// LookPath checks if a binary exists in PATH.
func (r *RealRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes a command and returns its output.
func (r *RealRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}

// ExitCode extracts the process exit code from a Run error. It returns 0 for
// nil and -1 when the process did not run at all.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// MockRunner implements Runner for testing.
type MockRunner struct {
	mu       sync.Mutex
	lookPath map[string]string
	commands map[string]mockResult
	calls    []string
}

type mockResult struct {
	stdout []byte
	stderr string
	err    error
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		lookPath: make(map[string]string),
		commands: make(map[string]mockResult),
	}
}

// SetLookPath configures the mock to return a path for the given name.
func (m *MockRunner) SetLookPath(name, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookPath[name] = path
}

// SetCommand configures the result for a command. The key is the command
// name alone or the name followed by its space-joined arguments.
func (m *MockRunner) SetCommand(key string, stdout []byte, stderr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[key] = mockResult{stdout: stdout, stderr: stderr, err: err}
}

// Calls returns the commands executed so far, name and args space-joined.
func (m *MockRunner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// LookPath implements Runner.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if path, ok := m.lookPath[name]; ok {
		return path, nil
	}
	return "", exec.ErrNotFound
}

// Run implements Runner.
func (m *MockRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	full := name
	if len(args) > 0 {
		full = name + " " + strings.Join(args, " ")
	}
	m.calls = append(m.calls, full)

	if result, ok := m.commands[full]; ok {
		return result.stdout, result.stderr, result.err
	}
	if result, ok := m.commands[name]; ok {
		return result.stdout, result.stderr, result.err
	}

	return nil, "", exec.ErrNotFound
}
