package executor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// agentExecutor runs any cap.agent.* capability: invoke the configured
// agent subprocess with the node's assembled prompt, then capture the
// resulting working-tree diff as command.patch for later re-apply. An
// agent crash is not tree corruption: the worktree is left for
// inspection and the job simply fails (spec.md §4.5).
type agentExecutor struct {
	deps Deps
}

func (e *agentExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	prompt := node.Args["prompt"]
	if prompt == "" {
		return nil, core.ErrValidation("AGENT_PROMPT_REQUIRED", "node "+node.ID+" has no prompt")
	}
	if e.deps.Agent == nil {
		return nil, core.ErrValidation("AGENT_RUNNER_NOT_CONFIGURED", "node "+node.ID+" requires an agent runner")
	}

	cwd := e.deps.ProjectRoot
	if job.Metadata.WorktreePath != "" {
		cwd = job.Metadata.WorktreePath
	}

	result, err := e.deps.Agent.Launch(ctx, core.AgentLaunchOptions{
		Prompt:          prompt,
		Model:           node.Args["model"],
		ReasoningEffort: node.Args["reasoning_effort"],
		WorkDir:         cwd,
	})
	if err != nil {
		return nil, core.ErrExecution("AGENT_LAUNCH_FAILED", err.Error()).WithCause(err)
	}

	metadataDelta := map[string]string{
		"agent_backend":   e.deps.Agent.Name(),
		"agent_exit_code": strconv.Itoa(result.ExitCode),
	}
	if result.SessionPath != "" {
		metadataDelta["session_path"] = result.SessionPath
	}

	out := &Result{
		ExitCode:      result.ExitCode,
		Stdout:        result.Stdout,
		Stderr:        result.Stderr,
		MetadataDelta: metadataDelta,
	}
	if result.ExitCode != 0 {
		return out, nil
	}

	pinned := job.Schedule.PinnedHead
	base := ""
	if pinned != nil {
		base = pinned.OID
	}
	diff, err := e.deps.Gateway.GetDiff(ctx, base, nil)
	if err != nil {
		return nil, err
	}
	patchPath := filepath.Join(e.deps.JobsRoot, job.ID, "command.patch")
	if err := os.MkdirAll(filepath.Dir(patchPath), 0o755); err != nil {
		return nil, core.ErrExecution("AGENT_PATCH_DIR_FAILED", err.Error()).WithCause(err)
	}
	if err := os.WriteFile(patchPath, []byte(diff), 0o644); err != nil {
		return nil, core.ErrExecution("AGENT_PATCH_WRITE_FAILED", err.Error()).WithCause(err)
	}
	metadataDelta["command_patch"] = filepath.Join(job.ID, "command.patch")
	out.Artifacts = append(out.Artifacts, core.OperationOutputArtifact(node.ID))
	return out, nil
}
