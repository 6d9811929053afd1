package cmd

import (
	"os"

	"github.com/spf13/cobra"

	enginecli "github.com/hugo-lorenzo-mato/quorum-ai/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <flow> [positional...] [flags]",
	Short: "Enqueue a workflow template's nodes as scheduled jobs",
	Long: `Resolves <flow> to a workflow template source (either a direct
path/selector or a config.commands.<flow> alias), runs the queue-time
preflight (parameter substitution, artifact/lock derivation, untethered-
input check), mints one job record per template node, and enqueues the
run.

Template-declared parameter aliases are accepted as ordinary flags
(--<alias> VALUE) alongside the fixed run flags below, so this command's
flag parsing is done by hand rather than declared on the cobra command
(see internal/cli.ParseRunArgs).`,
	Example: `  vizier run draft my-feature --set scope=backend --follow
  vizier run approve --set plan=my-feature --require-approval`,
	DisableFlagParsing: true,
	RunE:               runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	opts, err := enginecli.ParseRunArgs(args)
	if err != nil {
		return err
	}

	deps, err := buildDeps()
	if err != nil {
		return err
	}

	ctx := rootContext()
	out, err := enginecli.EnqueueRun(ctx, deps, opts)
	if out != nil {
		if renderErr := enginecli.RenderRun(os.Stdout, out, opts.Format); renderErr != nil {
			return renderErr
		}
	}
	return err
}
