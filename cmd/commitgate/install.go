package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"commitgate/internal/execx"
	"commitgate/internal/gitx"
)

var installForce bool

// hookScript is the shim written to .git/hooks/pre-commit. The binary is
// resolved through PATH so upgrading commitgate never requires reinstalling
// the hook.
const hookScript = `#!/bin/sh
# commitgate pre-commit hook
exec commitgate run "$@"
`

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the pre-commit hook",
	Long:  "Writes a pre-commit shim into the repository's hooks directory so every commit runs the gate.",
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Overwrite an existing pre-commit hook")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	runner := execx.NewRealRunner(gitx.DefaultCommandTimeout)
	root, err := gitx.DiscoverRoot(ctx, runner, ".")
	if err != nil {
		return err
	}

	git := gitx.NewClient(root, runner, nil)
	hooksDir, err := git.HooksPath(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return err
	}

	hookPath := filepath.Join(hooksDir, "pre-commit")
	if _, err := os.Stat(hookPath); err == nil && !installForce {
		return fmt.Errorf("%s already exists; rerun with --force to overwrite", hookPath)
	}

	if err := os.WriteFile(hookPath, []byte(hookScript), 0o755); err != nil {
		return err
	}

	fmt.Printf("Installed %s\n", hookPath)
	return nil
}
