package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"commitgate/internal/errors"
	"commitgate/internal/gitx"
)

// Snapshot holds the staged content of every change-set path, materialized
// under an exclusively-owned temporary root. Snapshot bytes come from the
// index, never the working tree, which is what makes partially staged files
// check correctly. Read-only after creation.
type Snapshot struct {
	root  string
	paths []string
}

// MaterializeSnapshot writes the stage-0 blob of each path under root. An
// empty change set is a valid no-op.
func MaterializeSnapshot(ctx context.Context, git *gitx.Client, paths []string, root string) (*Snapshot, error) {
	for _, p := range paths {
		blob, err := git.ShowStaged(ctx, p)
		if err != nil {
			return nil, err
		}

		dst := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
			return nil, errors.New(errors.SnapshotFailed,
				fmt.Sprintf("cannot create snapshot directory for %s", p), err)
		}
		if err := os.WriteFile(dst, blob, 0o600); err != nil {
			return nil, errors.New(errors.SnapshotFailed,
				fmt.Sprintf("cannot write snapshot of %s", p), err)
		}
	}

	return &Snapshot{root: root, paths: paths}, nil
}

// Abs returns the materialized location of a repo-relative path.
func (s *Snapshot) Abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// Read returns the staged bytes of a repo-relative path.
func (s *Snapshot) Read(path string) ([]byte, error) {
	return os.ReadFile(s.Abs(path))
}

// Len returns how many paths were materialized.
func (s *Snapshot) Len() int {
	return len(s.paths)
}
