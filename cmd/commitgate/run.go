package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"commitgate/internal/checker"
	"commitgate/internal/execx"
	"commitgate/internal/history"
	"commitgate/internal/logging"
	"commitgate/internal/pipeline"
)

// errCommitBlocked signals a gate rejection: the verdict is already on
// stdout and the hook must exit non-zero without further noise.
var errCommitBlocked = errors.New("commit blocked")

var (
	runJobsFlag      int
	runAutoApplyFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check the staged changes (pre-commit hook entry point)",
	Long: `Runs the verification pipeline against the staged index. Exits 0 when
the commit may proceed (clean, or formatting fixed up automatically) and 1
when it is blocked.`,
	RunE: runGate,
}

func init() {
	runCmd.Flags().IntVar(&runJobsFlag, "jobs", 0, "Worker pool size (default: configured value)")
	runCmd.Flags().BoolVar(&runAutoApplyFlag, "auto-apply", false, "Apply a non-empty reformat patch instead of blocking")
	rootCmd.AddCommand(runCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, git, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	if runJobsFlag > 0 {
		cfg.Jobs = runJobsFlag
	}
	if runAutoApplyFlag {
		cfg.AutoApply = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	manifest, err := checker.LoadManifest(cfg.ManifestPath())
	if err != nil {
		return err
	}

	// Checker invocations run unbounded; git plumbing keeps its own timeout.
	checkers := execx.NewRealRunner(0)

	p := pipeline.New(cfg, git, checkers, manifest, os.Stdout, logger)
	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if cfg.History {
		recordRun(ctx, cfg.RepoRoot, result, logger)
	}

	if !result.Approved() {
		return errCommitBlocked
	}
	return nil
}

// recordRun appends the run to the ledger. Best-effort: a ledger failure
// never blocks a commit.
func recordRun(ctx context.Context, repoRoot string, result *pipeline.Result, logger *logging.Logger) {
	store, err := history.Open(repoRoot, logger)
	if err != nil {
		logger.Warn("run ledger unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	defer store.Close()

	err = store.Append(ctx, &history.Record{
		RunID:      result.RunID,
		HeadCommit: result.HeadCommit,
		BaseRef:    result.BaseRef,
		Files:      result.Files,
		Outcome:    string(result.State),
		DurationMs: result.Duration.Milliseconds(),
		Patch:      result.PatchData,
		Report:     result.ReportData,
	})
	if err != nil {
		logger.Warn("failed to record run", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
