package pipeline

import (
	"context"
	"strings"

	"commitgate/internal/gitx"
)

// Filter restricts which changed paths enter the pipeline.
type Filter struct {
	// Extensions, when non-empty, is the allow-list of file extensions
	// (lowercase, with dot). Paths outside it are dropped here; individual
	// checkers apply their own narrower filters later.
	Extensions []string

	// ExcludeDirs are repo-relative directory prefixes that are never
	// checked (vendored code, build output).
	ExcludeDirs []string
}

func (f Filter) admits(path string) bool {
	for _, dir := range f.ExcludeDirs {
		prefix := strings.TrimSuffix(dir, "/") + "/"
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	if len(f.Extensions) == 0 {
		return true
	}
	lower := strings.ToLower(path)
	for _, ext := range f.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ResolveChangeSet lists the candidate paths for the pending commit: files
// added, copied, modified, or renamed between the base tree and the staged
// index, in git's reported order, filtered by f. An empty result is valid
// and means there is nothing to check.
func ResolveChangeSet(ctx context.Context, git *gitx.Client, f Filter) ([]string, error) {
	base := git.BaseRef(ctx)
	paths, err := git.ResolveChangeSet(ctx, base)
	if err != nil {
		return nil, err
	}

	kept := paths[:0]
	for _, p := range paths {
		if f.admits(p) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}
