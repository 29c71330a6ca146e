package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"commitgate/internal/gitx"
	"commitgate/internal/logging"
)

// State is the gatekeeper's decision state. PENDING moves to CLEAN or
// DIRTY; DIRTY resolves to REMEDIATED or BLOCKED.
type State string

const (
	// StatePending is the state before artifacts are inspected.
	StatePending State = "PENDING"
	// StateClean approves the commit: nothing to fix, nothing to report.
	StateClean State = "CLEAN"
	// StateDirty is the intermediate state when an artifact is non-empty.
	StateDirty State = "DIRTY"
	// StateRemediated approves the commit after auto-applying the patch.
	StateRemediated State = "REMEDIATED"
	// StateBlocked rejects the commit and leaves artifacts for inspection.
	StateBlocked State = "BLOCKED"
)

// Gatekeeper inspects assembled artifacts and decides whether the commit
// may proceed, can be auto-remediated, or must be blocked.
type Gatekeeper struct {
	Git             *gitx.Client
	AutoApply       bool
	MaxDisplayLines int
	Out             io.Writer
	Logger          *logging.Logger
}

// DecidePatch resolves the reformat artifact. An absent patch is CLEAN.
// A present patch is DIRTY: with auto-apply enabled and a successful index
// application it becomes REMEDIATED (working-tree application is
// best-effort and allowed to fail); otherwise BLOCKED, with the patch
// retained on disk and manual instructions printed.
func (g *Gatekeeper) DecidePatch(ctx context.Context, rc *RunContext, present bool) State {
	if !present {
		return StateClean
	}

	fmt.Fprintln(g.Out, "Formatting differences found:")
	g.displayBounded(rc.PatchPath())

	if g.AutoApply {
		if err := g.Git.ApplyPatch(ctx, rc.PatchPath(), gitx.ApplyToIndex); err != nil {
			g.Logger.Warn("auto-apply to index failed, blocking commit", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			// Keep the working tree in step where possible; a dirty
			// working-tree copy may legitimately reject the hunks.
			if err := g.Git.ApplyPatch(ctx, rc.PatchPath(), gitx.ApplyToWorkingTree); err != nil {
				g.Logger.Debug("working-tree apply skipped", map[string]interface{}{
					"error": err.Error(),
				})
			}
			fmt.Fprintln(g.Out, "Formatting fixed up automatically; commit proceeding.")
			return StateRemediated
		}
	}

	rc.Retain(rc.PatchPath())
	fmt.Fprintf(g.Out, "Commit blocked. Review the patch and apply it with:\n")
	fmt.Fprintf(g.Out, "  git apply -p1 %s\n", rc.PatchPath())
	fmt.Fprintf(g.Out, "Delete it when done: rm %s\n", rc.PatchPath())
	return StateBlocked
}

// DecideReport resolves the diagnostic artifact. Diagnostics cannot be
// auto-applied, so a present report always blocks.
func (g *Gatekeeper) DecideReport(rc *RunContext, present bool) State {
	if !present {
		return StateClean
	}

	fmt.Fprintln(g.Out, "Static analysis reported problems:")
	g.displayBounded(rc.ReportPath())

	rc.Retain(rc.ReportPath())
	fmt.Fprintf(g.Out, "Commit blocked. Full report: %s\n", rc.ReportPath())
	fmt.Fprintf(g.Out, "Delete it when done: rm %s\n", rc.ReportPath())
	return StateBlocked
}

// displayBounded prints at most MaxDisplayLines lines of an artifact with a
// truncation notice when output was cut off.
func (g *Gatekeeper) displayBounded(path string) {
	f, err := os.Open(path)
	if err != nil {
		g.Logger.Warn("cannot display artifact", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	shown := 0
	truncated := false
	for scanner.Scan() {
		if shown >= g.MaxDisplayLines {
			truncated = true
			break
		}
		fmt.Fprintln(g.Out, scanner.Text())
		shown++
	}
	if truncated {
		fmt.Fprintf(g.Out, "... more output truncated, see %s\n", path)
	}
}
