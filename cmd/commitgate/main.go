package main

import (
	"errors"
	"os"

	"commitgate/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errCommitBlocked) {
			// The gatekeeper already printed its verdict on stdout.
			os.Exit(1)
		}

		logger := logging.NewLogger(logging.Config{
			Format: logging.HumanFormat,
			Level:  logging.InfoLevel,
		})
		logger.Error("command failed", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}
