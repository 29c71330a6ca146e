package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"commitgate/internal/checker"
	"commitgate/internal/config"
	"commitgate/internal/execx"
	"commitgate/internal/gitx"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration and tool manifest",
	Long:  "Creates .commitgate/config.yaml and .commitgate/tools.toml in the repository root. Existing files are left untouched.",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	root, err := gitx.DiscoverRoot(ctx, execx.NewRealRunner(gitx.DefaultCommandTimeout), ".")
	if err != nil {
		return err
	}

	configPath, err := config.WriteDefault(root)
	if err != nil {
		if configPath == "" {
			return err
		}
		// Idempotent: an existing config is success, not a failure.
		fmt.Printf("Already initialized: %s\n", configPath)
	} else {
		fmt.Printf("Wrote %s\n", configPath)
	}

	manifestPath := filepath.Join(root, config.ConfigDirName, "tools.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		fmt.Printf("Already initialized: %s\n", manifestPath)
	} else {
		if err := os.WriteFile(manifestPath, []byte(checker.DefaultManifestTOML), 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", manifestPath)
	}

	fmt.Println("\nNext: run 'commitgate install' to register the pre-commit hook.")
	return nil
}
