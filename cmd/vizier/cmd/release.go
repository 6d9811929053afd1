package cmd

import (
	"os"

	"github.com/spf13/cobra"

	enginecli "github.com/hugo-lorenzo-mato/quorum-ai/internal/cli"
)

var releaseOptions enginecli.ReleaseOptions

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Plan and execute a release: version bump, changelog, tag",
	Long: `Derives the next version from Conventional Commits since the
last tag (or the bump forced by --major/--minor/--patch), runs any
configured release script, commits the bump, and tags it. On script or
commit failure, the transaction rolls back to the pre-release HEAD.`,
	Example: `  vizier release --dry-run
  vizier release --minor --yes`,
	RunE: runRelease,
}

func init() {
	rootCmd.AddCommand(releaseCmd)
	flags := releaseCmd.Flags()
	flags.BoolVar(&releaseOptions.Major, "major", false, "force a major version bump")
	flags.BoolVar(&releaseOptions.Minor, "minor", false, "force a minor version bump")
	flags.BoolVar(&releaseOptions.Patch, "patch", false, "force a patch version bump")
	flags.BoolVar(&releaseOptions.DryRun, "dry-run", false, "plan the release without executing it")
	flags.BoolVar(&releaseOptions.NoTag, "no-tag", false, "commit the bump without creating a tag")
	flags.StringVar(&releaseOptions.ReleaseScript, "release-script", "", "override the configured release script")
	flags.BoolVar(&releaseOptions.NoReleaseScript, "no-release-script", false, "skip the configured release script")
	flags.BoolVar(&releaseOptions.Yes, "yes", false, "skip the confirmation prompt")
	flags.IntVar(&releaseOptions.MaxCommits, "max-commits", 0, "override the configured max commit scan depth")
	flags.StringVar(&releaseFormat, "format", enginecli.FormatText, "output format: text or json")
}

var releaseFormat string

func runRelease(_ *cobra.Command, _ []string) error {
	deps, err := buildDeps()
	if err != nil {
		return err
	}

	ctx := rootContext()
	out, err := enginecli.RunRelease(ctx, deps, releaseOptions, os.Stdin, os.Stdout)
	if out != nil {
		if renderErr := enginecli.RenderRelease(os.Stdout, out, releaseFormat); renderErr != nil {
			return renderErr
		}
	}
	return err
}
