package cli

import (
	"context"
	"io"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/executor"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/jobstore"
)

// JobExecOptions is the parsed form of the hidden `job-exec` subcommand
// scheduler.ProcessLauncher invokes: job.Command replayed with
// "--background-job-id <id>" appended (internal/scheduler/launch.go).
type JobExecOptions struct {
	Node            core.Node
	BackgroundJobID string
}

// RunJobExec is the single self-invocation target every minted job.Command
// points at (internal/cli.EnqueueRun). It looks up the job record the
// scheduler just transitioned to Running, dispatches node.Uses to its
// capability executor, replays the executor's captured stdio onto this
// process's own stdout/stderr (executors buffer internally; the
// ProcessLauncher already redirected this process's fds to the job's log
// files, so writing here is what actually lands the output there), and
// finalizes the job record.
//
// The returned error, if any, is this process's own exit status — a
// failure to even reach FinalizeJob, not the job's outcome (which was
// already persisted via FinalizeJob by the time Execute returns).
func RunJobExec(ctx context.Context, deps *Deps, opts JobExecOptions, stdout, stderr io.Writer) error {
	job, err := deps.Store.ReadRecord(ctx, opts.BackgroundJobID)
	if err != nil {
		return err
	}

	execDeps := executor.Deps{
		Gateway:     deps.Gateway,
		Agent:       deps.Agent,
		JobsRoot:    deps.JobsRoot,
		ProjectRoot: deps.ProjectRoot,
		Logger:      deps.Logger,
	}
	registry := executor.NewRegistry(execDeps)

	result, execErr := registry.Execute(ctx, job, opts.Node)

	status := core.JobFailed
	exitCode := 1
	sessionPath := ""
	metadataDelta := map[string]string{}

	if result != nil {
		if result.Stdout != "" {
			_, _ = io.WriteString(stdout, result.Stdout)
		}
		if result.Stderr != "" {
			_, _ = io.WriteString(stderr, result.Stderr)
		}
		exitCode = result.ExitCode
		if result.MetadataDelta != nil {
			metadataDelta = result.MetadataDelta
		}
		if sp, ok := metadataDelta["session_path"]; ok {
			sessionPath = sp
		}
		if execErr == nil && exitCode == 0 {
			status = core.JobSucceeded
			for _, artifact := range result.Artifacts {
				if err := jobstore.WriteArtifactMarker(deps.JobsRoot, artifact, opts.BackgroundJobID); err != nil {
					return err
				}
			}
		}
	} else if execErr != nil {
		metadataDelta["error"] = execErr.Error()
	}

	return deps.Store.FinalizeJob(ctx, opts.BackgroundJobID, status, exitCode, sessionPath, metadataDelta)
}
