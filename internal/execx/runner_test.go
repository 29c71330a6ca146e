package execx

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func TestMockRunnerExactMatch(t *testing.T) {
	m := NewMockRunner()
	m.SetCommand("git diff --cached", []byte("a.cpp\n"), "", nil)

	out, _, err := m.Run(context.Background(), ".", "git", "diff", "--cached")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "a.cpp\n" {
		t.Errorf("stdout = %q", out)
	}
}

func TestMockRunnerNameFallback(t *testing.T) {
	m := NewMockRunner()
	m.SetCommand("clang-format", []byte("formatted"), "", nil)

	out, _, err := m.Run(context.Background(), ".", "clang-format", "-style=file", "a.cpp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "formatted" {
		t.Errorf("stdout = %q", out)
	}
}

func TestMockRunnerUnknownCommand(t *testing.T) {
	m := NewMockRunner()
	_, _, err := m.Run(context.Background(), ".", "nonexistent")
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMockRunnerRecordsCalls(t *testing.T) {
	m := NewMockRunner()
	m.SetCommand("git", nil, "", nil)
	_, _, _ = m.Run(context.Background(), ".", "git", "apply", "--cached", "x.patch")

	calls := m.Calls()
	if len(calls) != 1 || calls[0] != "git apply --cached x.patch" {
		t.Errorf("calls = %v", calls)
	}
}

func TestLookPath(t *testing.T) {
	m := NewMockRunner()
	m.SetLookPath("clang-tidy", "/usr/bin/clang-tidy")

	path, err := m.LookPath("clang-tidy")
	if err != nil || path != "/usr/bin/clang-tidy" {
		t.Errorf("LookPath = %q, %v", path, err)
	}
	if _, err := m.LookPath("missing"); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("missing tool: err = %v, want ErrNotFound", err)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("ExitCode(nil) = %d", got)
	}
	if got := ExitCode(errors.New("not started")); got != -1 {
		t.Errorf("ExitCode(plain) = %d, want -1", got)
	}
}
