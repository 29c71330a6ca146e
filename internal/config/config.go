// Package config builds the immutable run configuration. It is constructed
// exactly once at pipeline entry; no component re-reads configuration
// mid-run.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"commitgate/internal/errors"
	"commitgate/internal/gitx"
)

// Failure policies for non-zero checker exits. Capture preserves the
// inherited behavior: checker stderr is recorded as a finding, not
// distinguished from a genuine diagnostic.
const (
	FailureCapture = "capture"
	FailureFatal   = "fatal"
)

// ConfigDirName is the per-repo configuration directory.
const ConfigDirName = ".commitgate"

// Config is the complete, immutable run configuration.
type Config struct {
	RepoRoot string `json:"repoRoot" mapstructure:"-" yaml:"-"`

	// Jobs is the worker pool size, minimum 1.
	Jobs int `json:"jobs" mapstructure:"jobs" yaml:"jobs"`

	// AutoApply applies a non-empty reformat patch to the index instead of
	// blocking the commit.
	AutoApply bool `json:"autoApply" mapstructure:"autoApply" yaml:"autoApply"`

	// SkipMerges approves immediately when a merge is being concluded.
	SkipMerges bool `json:"skipMerges" mapstructure:"skipMerges" yaml:"skipMerges"`

	// MaxDisplayLines bounds how much of a dirty patch/report is printed.
	MaxDisplayLines int `json:"maxDisplayLines" mapstructure:"maxDisplayLines" yaml:"maxDisplayLines"`

	// FailurePolicy is "capture" or "fatal" for checker process failures.
	FailurePolicy string `json:"failurePolicy" mapstructure:"failurePolicy" yaml:"failurePolicy"`

	// ExcludeDirs are repo-relative directory prefixes never checked.
	ExcludeDirs []string `json:"excludeDirs" mapstructure:"excludeDirs" yaml:"excludeDirs"`

	// History enables the sqlite run ledger.
	History bool `json:"history" mapstructure:"history" yaml:"history"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" yaml:"format"`
	Level  string `json:"level" mapstructure:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RepoRoot:        ".",
		Jobs:            runtime.NumCPU(),
		AutoApply:       false,
		SkipMerges:      true,
		MaxDisplayLines: 80,
		FailurePolicy:   FailureCapture,
		ExcludeDirs:     []string{"third_party", "vendor", "build"},
		History:         true,
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load builds the effective configuration for one run: built-in defaults,
// overlaid by .commitgate/config.yaml, overlaid by the repository's git
// config store (commitgate.* keys). The result is validated and never
// mutated afterwards.
func Load(ctx context.Context, repoRoot string, git *gitx.Client) (*Config, error) {
	cfg := Default()
	cfg.RepoRoot = repoRoot

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(repoRoot, ConfigDirName))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.New(errors.ConfigInvalid, "cannot read config file", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "malformed config file", err)
	}

	if git != nil {
		applyGitOverrides(ctx, cfg, git)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Git config keys, the interface the hook documents to users.
const (
	KeyJobs            = "commitgate.jobs"
	KeyAutoApply       = "commitgate.autoapply"
	KeySkipMerges      = "commitgate.skipmerges"
	KeyMaxDisplayLines = "commitgate.maxdisplaylines"
	KeyFailurePolicy   = "commitgate.failurepolicy"
	KeyHistory         = "commitgate.history"
)

func applyGitOverrides(ctx context.Context, cfg *Config, git *gitx.Client) {
	cfg.Jobs = git.ConfigInt(ctx, KeyJobs, cfg.Jobs)
	cfg.AutoApply = git.ConfigBool(ctx, KeyAutoApply, cfg.AutoApply)
	cfg.SkipMerges = git.ConfigBool(ctx, KeySkipMerges, cfg.SkipMerges)
	cfg.MaxDisplayLines = git.ConfigInt(ctx, KeyMaxDisplayLines, cfg.MaxDisplayLines)
	cfg.FailurePolicy = git.ConfigString(ctx, KeyFailurePolicy, cfg.FailurePolicy)
	cfg.History = git.ConfigBool(ctx, KeyHistory, cfg.History)
}

// Validate checks the configuration before any work begins.
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return errors.New(errors.ConfigInvalid,
			fmt.Sprintf("jobs must be at least 1, got %d", c.Jobs), nil,
			"set commitgate.jobs to a positive integer")
	}
	if c.FailurePolicy != FailureCapture && c.FailurePolicy != FailureFatal {
		return errors.New(errors.ConfigInvalid,
			fmt.Sprintf("failure policy must be %q or %q, got %q", FailureCapture, FailureFatal, c.FailurePolicy), nil)
	}
	if c.MaxDisplayLines < 1 {
		return errors.New(errors.ConfigInvalid,
			fmt.Sprintf("maxDisplayLines must be at least 1, got %d", c.MaxDisplayLines), nil)
	}
	return nil
}

// ManifestPath returns the tool manifest location for this repo.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.RepoRoot, ConfigDirName, "tools.toml")
}

// WriteDefault writes the default configuration as YAML to
// .commitgate/config.yaml, refusing to clobber an existing file.
func WriteDefault(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0o644)
}
