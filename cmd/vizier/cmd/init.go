package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	enginecli "github.com/hugo-lorenzo-mato/quorum-ai/internal/cli"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the .vizier workspace in the current directory",
	Long: `Creates the .vizier/{jobs,sessions,tmp,tmp-worktrees,implementation-plans}
directories and a default .vizier/config.toml. Safe to run more than
once: an already-initialized workspace is left untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config.toml")
}

func runInit(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	out, err := enginecli.InitWorkspace(cwd, initForce)
	if err != nil {
		return err
	}

	if out.AlreadySatisfied {
		fmt.Println("already satisfied: .vizier workspace present, nothing to do")
		return nil
	}
	for _, dir := range out.CreatedDirs {
		fmt.Println("created", dir)
	}
	if out.WroteConfig {
		fmt.Println("wrote", out.ConfigPath)
	}
	fmt.Println("initialized .vizier workspace in", cwd)
	return nil
}
