package executor

import (
	"context"
	"os"
	"strconv"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// saveExecutor runs cap.save: capture the input patch already sitting on
// disk (from a prior ask/draft step), apply it to a freshly isolated
// worktree, optionally let the configured agent run a finishing pass over
// it, and reconcile the result back onto the pinned branch through the
// shared worktree-apply pipeline (spec.md §4.5).
type saveExecutor struct {
	deps Deps
}

func (e *saveExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	purpose := node.Args["purpose"]
	if purpose == "" {
		purpose = "save"
	}

	var inputPatch []byte
	if patchFile := node.Args["input_patch_file"]; patchFile != "" {
		data, err := os.ReadFile(patchFile)
		if err != nil {
			return nil, core.ErrExecution("SAVE_INPUT_PATCH_READ_FAILED", err.Error()).WithCause(err)
		}
		inputPatch = data
	}

	mode := AutoCommit
	if node.Args["hold_for_review"] == "true" {
		mode = HoldForReview
	}

	message := node.Args["message"]
	if message == "" {
		message = "vizier: save " + job.ID
	}

	var finishPass func(ctx context.Context, worktreePath string) error
	if prompt := node.Args["finish_prompt"]; prompt != "" && e.deps.Agent != nil {
		finishPass = func(ctx context.Context, worktreePath string) error {
			result, err := e.deps.Agent.Launch(ctx, core.AgentLaunchOptions{
				Prompt:  prompt,
				Model:   node.Args["model"],
				WorkDir: worktreePath,
			})
			if err != nil {
				return err
			}
			if result.ExitCode != 0 {
				return core.ErrExecution("SAVE_FINISH_PASS_FAILED", "agent exited "+result.Stderr)
			}
			return nil
		}
	}

	patch, err := RunWorktreeApplyPipeline(ctx, e.deps, job, WorktreeApplyOptions{
		Purpose:       purpose,
		InputPatch:    inputPatch,
		Mode:          mode,
		CommitMessage: message,
		Run:           finishPass,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		ExitCode:      0,
		MetadataDelta: map[string]string{"saved_bytes": strconv.Itoa(len(patch))},
		Artifacts:     []core.Artifact{core.AskSavePatchArtifact(job.ID)},
	}, nil
}
