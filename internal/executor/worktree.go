package executor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// worktreePrepareExecutor runs cap.env.builtin.worktree.prepare: create a
// branch vizier-<purpose>-<job_id> from pinned_head, add a worktree under
// .vizier/tmp-worktrees/<purpose>-<job_id>, and record its name/path on
// the job's metadata (spec.md §4.5).
type worktreePrepareExecutor struct {
	deps Deps
}

func (e *worktreePrepareExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	purpose := node.Args["purpose"]
	if purpose == "" {
		return nil, core.ErrValidation("WORKTREE_PURPOSE_REQUIRED", "node "+node.ID+" has no purpose")
	}
	pinned := job.Schedule.PinnedHead
	if pinned == nil || pinned.OID == "" {
		return nil, core.ErrValidation("WORKTREE_PINNED_HEAD_REQUIRED", "node "+node.ID+" has no pinned head to branch from")
	}

	name := fmt.Sprintf("vizier-%s-%s", purpose, job.ID)
	path := filepath.Join(e.deps.ProjectRoot, ".vizier", "tmp-worktrees", fmt.Sprintf("%s-%s", purpose, job.ID))

	if err := e.deps.Gateway.CreateBranchAt(ctx, name, pinned.OID); err != nil {
		return nil, err
	}
	if err := e.deps.Gateway.AddWorktreeForBranch(ctx, name, path, name); err != nil {
		return nil, err
	}

	return &Result{
		ExitCode: 0,
		MetadataDelta: map[string]string{
			"worktree_name": name,
			"worktree_path": path,
		},
		Artifacts: []core.Artifact{core.OperationOutputArtifact(node.ID)},
	}, nil
}
