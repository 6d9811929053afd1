package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// cicdGateExecutor runs cap.cicd.gate: args.script inside the prepared
// worktree. A non-zero exit is a job failure like any other, except that
// when args.auto_resolve is "true" and retry attempts remain, the
// captured output is folded into cicd_failure_prompt so the retried
// attempt's agent node can see what broke (spec.md §4.5).
type cicdGateExecutor struct {
	deps Deps
}

func (e *cicdGateExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	script := node.Args["script"]
	if script == "" {
		return nil, core.ErrValidation("CICD_SCRIPT_REQUIRED", "node "+node.ID+" has no script")
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

	exitCode := 0
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, core.ErrExecution("CICD_GATE_LAUNCH_FAILED", err.Error()).WithCause(err)
		}
	}

	result := &Result{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}
	if exitCode == 0 {
		result.Artifacts = append(result.Artifacts, core.OperationOutputArtifact(node.ID))
		return result, nil
	}

	autoResolve := node.Args["auto_resolve"] == "true"
	attemptsRemain := job.Metadata.Attempt < node.Retry.MaxAttempts
	if autoResolve && attemptsRemain {
		result.MetadataDelta = map[string]string{
			"cicd_failure_prompt": fmt.Sprintf("cicd gate %q failed (exit %d):\nstdout:\n%s\nstderr:\n%s", script, exitCode, stdout.String(), stderr.String()),
		}
	}
	return result, nil
}
