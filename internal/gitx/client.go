// Package gitx wraps the git plumbing the pipeline needs: change-set
// listing, staged-content materialization, patch application, and the
// repository config store.
package gitx

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"commitgate/internal/errors"
	"commitgate/internal/execx"
	"commitgate/internal/logging"
)

const (
	// EmptyTreeObject is the well-known hash of git's empty tree, used as
	// the diff base when the repository has no commits yet.
	EmptyTreeObject = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

	// DefaultCommandTimeout bounds individual git invocations. Checker
	// processes are not subject to this; only git plumbing is.
	DefaultCommandTimeout = 30 * time.Second
)

// ApplyTarget selects where a patch is applied.
type ApplyTarget int

const (
	// ApplyToIndex applies the patch to the staged index.
	ApplyToIndex ApplyTarget = iota
	// ApplyToWorkingTree applies the patch to the working tree.
	ApplyToWorkingTree
)

// Client executes git operations inside one repository.
type Client struct {
	repoRoot string
	runner   execx.Runner
	logger   *logging.Logger
}

// NewClient creates a git client rooted at repoRoot.
func NewClient(repoRoot string, runner execx.Runner, logger *logging.Logger) *Client {
	return &Client{
		repoRoot: repoRoot,
		runner:   runner,
		logger:   logger,
	}
}

// RepoRoot returns the repository root this client operates in.
func (c *Client) RepoRoot() string {
	return c.repoRoot
}

// DiscoverRoot resolves the repository toplevel containing dir.
func DiscoverRoot(ctx context.Context, runner execx.Runner, dir string) (string, error) {
	out, stderr, err := runner.Run(ctx, dir, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.New(
			errors.ResolutionFailed,
			"not inside a git repository",
			fmt.Errorf("git rev-parse --show-toplevel: %w (%s)", err, strings.TrimSpace(stderr)),
			"run this command from inside a git working copy",
		)
	}
	return strings.TrimSpace(string(out)), nil
}

// HooksPath returns the repository's hooks directory, honoring
// core.hooksPath and worktree layouts.
func (c *Client) HooksPath(ctx context.Context) (string, error) {
	out, stderr, err := c.run(ctx, "rev-parse", "--git-path", "hooks")
	if err != nil {
		return "", errors.New(
			errors.ResolutionFailed,
			"cannot locate the hooks directory",
			fmt.Errorf("git rev-parse --git-path hooks: %w (%s)", err, strings.TrimSpace(stderr)),
		)
	}
	path := strings.TrimSpace(string(out))
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.repoRoot, path)
	}
	return path, nil
}

// IsRepository reports whether the root is inside a git working copy.
func (c *Client) IsRepository(ctx context.Context) bool {
	_, _, err := c.run(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// BaseRef returns HEAD when at least one commit exists, and the empty-tree
// sentinel otherwise (initial commit).
func (c *Client) BaseRef(ctx context.Context) string {
	if _, _, err := c.run(ctx, "rev-parse", "--verify", "-q", "HEAD"); err != nil {
		return EmptyTreeObject
	}
	return "HEAD"
}

// HeadCommit returns the current HEAD hash, or the empty string before the
// first commit.
func (c *Client) HeadCommit(ctx context.Context) string {
	out, _, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// MergeInProgress reports whether a merge commit is being concluded.
func (c *Client) MergeInProgress(ctx context.Context) bool {
	_, _, err := c.run(ctx, "rev-parse", "--verify", "-q", "MERGE_HEAD")
	return err == nil
}

// ResolveChangeSet lists paths added, copied, modified, or renamed between
// base and the staged index, in the order git reports them. Deletions are
// excluded. NUL-terminated output keeps paths with unusual characters
// intact.
func (c *Client) ResolveChangeSet(ctx context.Context, base string) ([]string, error) {
	out, stderr, err := c.run(ctx, "diff", "--cached", "--name-only", "--diff-filter=ACMR", "-z", base)
	if err != nil {
		return nil, errors.New(
			errors.ResolutionFailed,
			"cannot list staged changes",
			fmt.Errorf("git diff --cached: %w (%s)", err, strings.TrimSpace(stderr)),
			"run 'git status' to verify you are inside a git repository",
		)
	}

	var paths []string
	for _, p := range strings.Split(string(out), "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// ShowStaged returns the stage-0 index blob for path. This is the staged
// content, which may differ from the working-tree copy under partial
// staging.
func (c *Client) ShowStaged(ctx context.Context, path string) ([]byte, error) {
	out, stderr, err := c.run(ctx, "show", ":0:"+path)
	if err != nil {
		return nil, errors.New(
			errors.SnapshotFailed,
			fmt.Sprintf("cannot read staged content of %s", path),
			fmt.Errorf("git show: %w (%s)", err, strings.TrimSpace(stderr)),
		)
	}
	return out, nil
}

// ApplyPatch applies a unified patch file to the chosen target.
func (c *Client) ApplyPatch(ctx context.Context, patchPath string, target ApplyTarget) error {
	args := []string{"apply", "-p1"}
	if target == ApplyToIndex {
		args = append(args, "--cached")
	}
	args = append(args, patchPath)

	_, stderr, err := c.run(ctx, args...)
	if err != nil {
		return errors.New(
			errors.RemediationFailed,
			"patch did not apply cleanly",
			fmt.Errorf("git apply: %w (%s)", err, strings.TrimSpace(stderr)),
			fmt.Sprintf("inspect the patch and apply it manually: git apply %s", patchPath),
		)
	}
	return nil
}

// ConfigString reads a string from git config, falling back to def when the
// key is unset or git config fails.
func (c *Client) ConfigString(ctx context.Context, key, def string) string {
	out, _, err := c.run(ctx, "config", "--get", key)
	if err != nil {
		return def
	}
	val := strings.TrimSpace(string(out))
	if val == "" {
		return def
	}
	return val
}

// ConfigBool reads a boolean from git config using git's own canonical
// bool parsing.
func (c *Client) ConfigBool(ctx context.Context, key string, def bool) bool {
	out, _, err := c.run(ctx, "config", "--type=bool", "--get", key)
	if err != nil {
		return def
	}
	switch strings.TrimSpace(string(out)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return def
	}
}

// ConfigInt reads an integer from git config.
func (c *Client) ConfigInt(ctx context.Context, key string, def int) int {
	out, _, err := c.run(ctx, "config", "--type=int", "--get", key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return def
	}
	return n
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, string, error) {
	if c.logger != nil {
		c.logger.Debug("executing git command", map[string]interface{}{
			"args": strings.Join(args, " "),
		})
	}

	out, stderr, err := c.runner.Run(ctx, c.repoRoot, "git", args...)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		return out, stderr, errors.New(errors.Timeout, "git command timed out", err)
	}
	return out, stderr, err
}
