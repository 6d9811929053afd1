package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// shellExecutor runs cap.env.shell.command.run: args.script via the
// configured shell, inheriting the job's environment, cwd = the prepared
// worktree if one was recorded on the job's metadata (spec.md §4.5).
type shellExecutor struct {
	deps Deps
}

func (e *shellExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	script := node.Args["script"]
	if script == "" {
		return nil, core.ErrValidation("SHELL_SCRIPT_REQUIRED", "node "+node.ID+" has no script to run")
	}

	cwd := e.deps.ProjectRoot
	if job.Metadata.WorktreePath != "" {
		cwd = job.Metadata.WorktreePath
	}

	cmd := exec.CommandContext(ctx, e.deps.shell(), "-c", script)
	cmd.Dir = cwd
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, core.ErrExecution("SHELL_LAUNCH_FAILED", err.Error()).WithCause(err)
		}
	}

	result := &Result{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}
	if exitCode == 0 {
		result.Artifacts = append(result.Artifacts, core.OperationOutputArtifact(node.ID))
	}
	return result, nil
}
