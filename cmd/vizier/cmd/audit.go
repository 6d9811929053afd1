package cmd

import (
	"os"

	"github.com/spf13/cobra"

	enginecli "github.com/hugo-lorenzo-mato/quorum-ai/internal/cli"
)

var auditOptions enginecli.AuditOptions

var auditCmd = &cobra.Command{
	Use:   "audit <selector>",
	Short: "Run a workflow template's preflight without enqueuing anything",
	Long: `Resolves and validates <selector> exactly as "vizier run" would —
parameter substitution, artifact/lock derivation, untethered-input
check — but never writes a run manifest or enqueues a job. Useful for
inspecting what a template would produce before committing to it.`,
	Example: `  vizier audit draft
  vizier audit draft --strict --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().BoolVar(&auditOptions.Strict, "strict", false,
		"exit with the blocked status if any untethered input is found")
	auditCmd.Flags().StringVar(&auditOptions.Format, "format", enginecli.FormatText,
		"output format: text or json")
}

func runAudit(_ *cobra.Command, args []string) error {
	deps, err := buildDeps()
	if err != nil {
		return err
	}

	auditOptions.Selector = args[0]
	out, err := enginecli.RunAudit(deps, auditOptions)
	if out != nil {
		if renderErr := enginecli.RenderAudit(os.Stdout, out, auditOptions.Format); renderErr != nil {
			return renderErr
		}
	}
	return err
}
