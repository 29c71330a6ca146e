// Package checker invokes the external reformatter and static analyzer.
// Both are black boxes: the reformatter prints a corrected file on stdout,
// the analyzer prints free-form diagnostics. Their internals are not
// modeled here.
package checker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"commitgate/internal/errors"
	"commitgate/internal/execx"
)

// Tool describes one external checker invocation: the binary, its
// configuration file, a language/standard tag, and the extensions it
// applies to.
type Tool struct {
	Bin        string
	ConfigFile string
	Tag        string
	Extensions []string
	ExtraArgs  []string
}

// Matches reports whether the tool's extension filter admits path. An empty
// filter admits everything.
func (t Tool) Matches(path string) bool {
	if len(t.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range t.Extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Verify checks that the tool binary is resolvable before any work begins.
func (t Tool) Verify(runner execx.Runner) error {
	if t.Bin == "" {
		return errors.New(errors.ConfigInvalid, "checker binary not configured", nil)
	}
	if _, err := runner.LookPath(t.Bin); err != nil {
		return errors.New(
			errors.ConfigInvalid,
			fmt.Sprintf("checker binary %q not found", t.Bin),
			err,
			fmt.Sprintf("install %s or point the tool manifest at the right binary", t.Bin),
		)
	}
	return nil
}

// Formatter runs the source reformatter against snapshot files.
type Formatter struct {
	Tool
	runner execx.Runner
}

// NewFormatter creates a formatter bound to an exec runner.
func NewFormatter(tool Tool, runner execx.Runner) *Formatter {
	return &Formatter{Tool: tool, runner: runner}
}

// Format invokes the reformatter on the file at absPath, assuming the name
// relPath for style resolution, and returns the full reformatted output.
// The returned stderr and error let the caller apply its failure policy.
func (f *Formatter) Format(ctx context.Context, absPath, relPath string) ([]byte, string, error) {
	args := make([]string, 0, len(f.ExtraArgs)+3)
	if f.ConfigFile != "" {
		args = append(args, "--style=file:"+f.ConfigFile)
	} else {
		args = append(args, "--style=file")
	}
	args = append(args, "--assume-filename="+relPath)
	args = append(args, f.ExtraArgs...)
	args = append(args, absPath)

	return f.runner.Run(ctx, filepath.Dir(absPath), f.Bin, args...)
}

// Analyzer runs the static analyzer against snapshot files.
type Analyzer struct {
	Tool
	runner execx.Runner
}

// NewAnalyzer creates an analyzer bound to an exec runner.
func NewAnalyzer(tool Tool, runner execx.Runner) *Analyzer {
	return &Analyzer{Tool: tool, runner: runner}
}

// Analyze invokes the analyzer on absPath and returns its combined
// diagnostic text. Analyzer findings arrive on both streams depending on
// the tool, so stdout and stderr are concatenated.
func (a *Analyzer) Analyze(ctx context.Context, absPath string) (string, error) {
	args := make([]string, 0, len(a.ExtraArgs)+4)
	if a.ConfigFile != "" {
		args = append(args, "--config-file="+a.ConfigFile)
	}
	args = append(args, "--quiet")
	args = append(args, a.ExtraArgs...)
	args = append(args, absPath)
	if a.Tag != "" {
		args = append(args, "--", "-std="+a.Tag)
	}

	stdout, stderr, err := a.runner.Run(ctx, filepath.Dir(absPath), a.Bin, args...)

	var text strings.Builder
	text.Write(stdout)
	if stderr != "" {
		if text.Len() > 0 && !strings.HasSuffix(text.String(), "\n") {
			text.WriteByte('\n')
		}
		text.WriteString(stderr)
	}
	return text.String(), err
}
