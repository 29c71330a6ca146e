package main

import (
	"context"

	"github.com/spf13/cobra"

	"commitgate/internal/config"
	"commitgate/internal/execx"
	"commitgate/internal/gitx"
	"commitgate/internal/logging"
	"commitgate/internal/version"
)

var (
	// logLevelFlag overrides the configured log verbosity.
	logLevelFlag string
	// logFormatFlag overrides the configured log format (human or json).
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "commitgate",
	Short: "commitgate - commit-time verification gate",
	Long: `commitgate is a git pre-commit gate. It snapshots the staged content,
fans out an external reformatter and static analyzer across a worker pool,
reassembles their output into a patch and a diagnostic report, and approves,
auto-remediates, or blocks the commit.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("commitgate version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log verbosity: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json")
}

// setup discovers the repository and builds the shared command plumbing:
// the git client, the effective configuration, and a logger honoring the
// CLI overrides.
func setup(ctx context.Context) (*config.Config, *gitx.Client, *logging.Logger, error) {
	gitRunner := execx.NewRealRunner(gitx.DefaultCommandTimeout)

	root, err := gitx.DiscoverRoot(ctx, gitRunner, ".")
	if err != nil {
		return nil, nil, nil, err
	}

	git := gitx.NewClient(root, gitRunner, nil)
	cfg, err := config.Load(ctx, root, git)
	if err != nil {
		return nil, nil, nil, err
	}

	format := cfg.Logging.Format
	if logFormatFlag != "" {
		format = logFormatFlag
	}
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := logging.NewLogger(logging.Config{
		Format: logging.Format(format),
		Level:  logging.ParseLevel(level),
	})

	// Rebind the client so git plumbing logs at the effective level.
	return cfg, gitx.NewClient(root, gitRunner, logger), logger, nil
}
