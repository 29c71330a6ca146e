package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"commitgate/internal/history"
)

var (
	historyLimit     int
	historyShowPatch bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent gate runs",
	Long:  "Lists recent runs from the ledger: outcome, file count, duration, and the commit each run gated.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show")
	historyCmd.Flags().BoolVar(&historyShowPatch, "show-patch", false, "Print the stored reformat patch of each run")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.RepoRoot, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, rec := range records {
		head := rec.HeadCommit
		if len(head) > 7 {
			head = head[:7]
		}
		if head == "" {
			head = "-"
		}
		fmt.Printf("%s  %-10s  files=%-3d  %4dms  head=%s  run=%s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Outcome, rec.Files, rec.DurationMs, head, rec.RunID)

		if historyShowPatch && rec.Patch != nil {
			_, _ = os.Stdout.Write(rec.Patch)
			fmt.Println()
		}
	}
	return nil
}
