// Package cmd implements vizier's cobra command tree. Each subcommand
// parses its own flags and delegates the actual work to internal/cli,
// which owns the engine wiring (internal/config, internal/repo,
// internal/jobstore, internal/scheduler, internal/template,
// internal/release).
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	enginecli "github.com/hugo-lorenzo-mato/quorum-ai/internal/cli"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/config"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	noColor   bool
	quiet     bool

	appVersion string
	appCommit  string
	appDate    string

	loader *config.Loader
)

var rootCmd = &cobra.Command{
	Use:   "vizier",
	Short: "Agent-assisted workflow orchestrator for a local git repository",
	Long: `vizier runs declarative workflow templates (DAGs of capability
nodes) against a local git repository, scheduling each node as an
isolated, agent-or-script-backed job and re-integrating the result
through git worktrees and patches.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	},
}

// Execute runs the command tree and returns the process exit code,
// rendering any returned error with the spec's structured error/usage/
// example/hint block before returning its mapped exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		enginecli.RenderError(os.Stderr, err)
	}
	return enginecli.ExitCodeForError(err)
}

// SetVersion injects build-time version info, called from main before Execute.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .vizier/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-essential output")
}

// loadConfig builds the shared *config.Loader used by every subcommand.
// Flags take precedence over .vizier/config.toml and VIZIER_* env vars
// (internal/config/loader.go), so log-level/log-format are bound directly
// rather than applied as a post-load override.
func loadConfig() error {
	v := viper.New()
	loader = config.NewLoaderWithViper(v)
	if cfgFile != "" {
		loader = loader.WithConfigFile(cfgFile)
	}

	flags := rootCmd.PersistentFlags()
	if err := v.BindPFlag("log.level", flags.Lookup("log-level")); err != nil {
		return fmt.Errorf("binding log-level flag: %w", err)
	}
	if err := v.BindPFlag("log.format", flags.Lookup("log-format")); err != nil {
		return fmt.Errorf("binding log-format flag: %w", err)
	}
	return nil
}

// projectConfig loads the resolved Config and its project root for a
// subcommand that needs engine deps. Subcommands that don't touch the
// repository or job store (version) skip this entirely.
func projectConfig() (*config.Config, string, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, "", err
	}
	return cfg, loader.ProjectDir(), nil
}

// buildDeps loads config and wires a full internal/cli.Deps.
func buildDeps() (*enginecli.Deps, error) {
	cfg, projectRoot, err := projectConfig()
	if err != nil {
		return nil, err
	}
	return enginecli.NewDeps(cfg, projectRoot)
}

// rootContext returns a context cancelled on SIGINT/SIGTERM, so a
// --follow run or a long executor subprocess can be interrupted cleanly.
func rootContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
