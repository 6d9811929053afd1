package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	enginecli "github.com/hugo-lorenzo-mato/quorum-ai/internal/cli"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

var (
	jobExecNodeJSON string
	jobExecJobsRoot string
	jobExecProjRoot string
	jobExecJobID    string
)

// jobExecCmd is the hidden self-invocation target every minted job.Command
// points at (internal/cli.EnqueueRun builds the argv;
// internal/scheduler/launch.go's ProcessLauncher appends
// "--background-job-id <id>" when it launches it as a child process). It
// is never run by a human directly, so it carries no Short/Example text
// and is excluded from help output.
var jobExecCmd = &cobra.Command{
	Use:    "job-exec",
	Hidden: true,
	RunE:   runJobExec,
}

func init() {
	rootCmd.AddCommand(jobExecCmd)
	flags := jobExecCmd.Flags()
	flags.StringVar(&jobExecNodeJSON, "node-json", "", "JSON-encoded core.Node for this job")
	flags.StringVar(&jobExecJobsRoot, "jobs-root", "", "jobs directory the job record lives under")
	flags.StringVar(&jobExecProjRoot, "project-root", "", "project root to execute the node in")
	flags.StringVar(&jobExecJobID, "background-job-id", "", "id of the job record to finalize")
}

func runJobExec(_ *cobra.Command, _ []string) error {
	var node core.Node
	if err := json.Unmarshal([]byte(jobExecNodeJSON), &node); err != nil {
		return core.ErrValidation("NODE_JSON_INVALID", err.Error()).WithCause(err)
	}

	cfg, _, err := projectConfig()
	if err != nil {
		return err
	}
	deps, err := enginecli.NewDeps(cfg, jobExecProjRoot)
	if err != nil {
		return err
	}
	deps.JobsRoot = jobExecJobsRoot

	ctx := rootContext()
	return enginecli.RunJobExec(ctx, deps, enginecli.JobExecOptions{
		Node:            node,
		BackgroundJobID: jobExecJobID,
	}, os.Stdout, os.Stderr)
}
