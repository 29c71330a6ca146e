package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"commitgate/internal/logging"
)

// RunContext owns every temporary artifact of one pipeline invocation: the
// snapshot root, per-partition partial files, and the final patch/report.
// The base directory carries a UUID so concurrent invocations (two commits
// racing in CI) can never collide on artifact names.
type RunContext struct {
	ID string

	baseDir  string
	retained map[string]bool
	logger   *logging.Logger
}

// NewRunContext allocates the artifact tree for one run.
func NewRunContext(logger *logging.Logger) (*RunContext, error) {
	id := uuid.New().String()
	base := filepath.Join(os.TempDir(), "commitgate-"+id)

	for _, dir := range []string{base, filepath.Join(base, "snapshot"), filepath.Join(base, "partials")} {
		if err := os.Mkdir(dir, 0o700); err != nil {
			_ = os.RemoveAll(base)
			return nil, fmt.Errorf("cannot create run directory %s: %w", dir, err)
		}
	}

	return &RunContext{
		ID:       id,
		baseDir:  base,
		retained: make(map[string]bool),
		logger:   logger,
	}, nil
}

// SnapshotRoot is the directory staged content is materialized under.
func (rc *RunContext) SnapshotRoot() string {
	return filepath.Join(rc.baseDir, "snapshot")
}

// PartialPatchPath names the patch partial owned exclusively by one slot.
func (rc *RunContext) PartialPatchPath(slot int) string {
	return filepath.Join(rc.baseDir, "partials", fmt.Sprintf("patch-%03d.diff", slot))
}

// PartialReportPath names the report partial owned exclusively by one slot.
func (rc *RunContext) PartialReportPath(slot int) string {
	return filepath.Join(rc.baseDir, "partials", fmt.Sprintf("report-%03d.txt", slot))
}

// PatchPath is the final assembled patch artifact.
func (rc *RunContext) PatchPath() string {
	return filepath.Join(rc.baseDir, "format.patch")
}

// ReportPath is the final assembled diagnostic report.
func (rc *RunContext) ReportPath() string {
	return filepath.Join(rc.baseDir, "analysis.txt")
}

// Retain transfers cleanup ownership of one artifact to the user: Cleanup
// will leave it (and the base directory) in place so it can be inspected or
// applied manually.
func (rc *RunContext) Retain(path string) {
	rc.retained[path] = true
}

// Retained reports whether ownership of path was transferred.
func (rc *RunContext) Retained(path string) bool {
	return rc.retained[path]
}

// Cleanup removes everything this run created except retained artifacts.
// It runs on every exit path; removal failures are logged, not fatal.
func (rc *RunContext) Cleanup() {
	if len(rc.retained) == 0 {
		if err := os.RemoveAll(rc.baseDir); err != nil && rc.logger != nil {
			rc.logger.Warn("failed to remove run directory", map[string]interface{}{
				"dir":   rc.baseDir,
				"error": err.Error(),
			})
		}
		return
	}

	// Artifacts the user still needs stay; everything else goes.
	for _, path := range []string{rc.SnapshotRoot(), filepath.Join(rc.baseDir, "partials")} {
		_ = os.RemoveAll(path)
	}
	for _, path := range []string{rc.PatchPath(), rc.ReportPath()} {
		if !rc.retained[path] {
			_ = os.Remove(path)
		}
	}
}
