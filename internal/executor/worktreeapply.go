package executor

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// ApplyMode selects what the worktree-apply pipeline does with the change
// it produced once the inner step has run.
type ApplyMode string

const (
	// AutoCommit cherry-picks the produced commit straight onto the host
	// branch, provided it hasn't drifted since the job was scheduled.
	AutoCommit ApplyMode = "auto_commit"
	// HoldForReview leaves the change as an unstaged, uncommitted patch
	// applied to the host branch for a human or a later gate to inspect.
	HoldForReview ApplyMode = "hold_for_review"
)

// WorktreeApplyOptions configures one run of the shared pipeline used by
// cap.save and, when wired the same way, approve/patch-style capabilities
// (spec.md §4.5).
type WorktreeApplyOptions struct {
	Purpose       string
	InputPatch    []byte
	Mode          ApplyMode
	CommitMessage string
	// Run executes the inner capability (e.g. an agent doc pass) inside
	// the freshly created worktree. Any returned error aborts the
	// pipeline and the temp worktree/branch are still cleaned up.
	Run func(ctx context.Context, worktreePath string) error
}

// RunWorktreeApplyPipeline implements spec.md §4.5's eight-step sequence:
// re-check the pinned head, create an isolated worktree, apply any
// pre-captured patch, run the inner step, diff against the pinned head,
// reconcile the result onto the host branch, and tear the worktree down.
func RunWorktreeApplyPipeline(ctx context.Context, deps Deps, job *core.JobRecord, opts WorktreeApplyOptions) ([]byte, error) {
	pinned := job.Schedule.PinnedHead
	if pinned == nil || pinned.Branch == "" || pinned.OID == "" {
		return nil, core.ErrValidation("WORKTREE_APPLY_PINNED_HEAD_REQUIRED", "job "+job.ID+" has no pinned head")
	}

	host := deps.Gateway
	currentHead, err := host.BranchHead(ctx, pinned.Branch)
	if err != nil {
		return nil, err
	}
	if currentHead != pinned.OID {
		return nil, core.ErrState("PINNED_HEAD_DRIFT", fmt.Sprintf("branch %s moved from %s to %s since scheduling", pinned.Branch, pinned.OID, currentHead))
	}

	branchName := fmt.Sprintf("vizier-%s-%s", opts.Purpose, job.ID)
	worktreePath := job.ID + "-" + opts.Purpose
	if job.Metadata.WorktreePath != "" {
		worktreePath = job.Metadata.WorktreePath
	}

	if err := host.CreateBranchAt(ctx, branchName, pinned.OID); err != nil {
		return nil, err
	}
	if err := host.AddWorktreeForBranch(ctx, branchName, worktreePath, branchName); err != nil {
		return nil, err
	}
	cleanup := func() {
		_ = host.RemoveWorktree(ctx, branchName, true)
		_ = host.DeleteBranch(ctx, branchName)
	}

	worktreeGateway, err := deps.gatewayFor(worktreePath)
	if err != nil {
		cleanup()
		return nil, err
	}

	if len(opts.InputPatch) > 0 {
		if err := worktreeGateway.ApplyPatch(ctx, opts.InputPatch, true); err != nil {
			cleanup()
			return nil, err
		}
	}

	if opts.Run != nil {
		if err := opts.Run(ctx, worktreePath); err != nil {
			cleanup()
			return nil, err
		}
	}

	patch, err := worktreeGateway.GetDiff(ctx, pinned.OID, nil)
	if err != nil {
		cleanup()
		return nil, err
	}

	switch opts.Mode {
	case AutoCommit:
		newHead, err := worktreeGateway.BranchHead(ctx, branchName)
		if err != nil {
			cleanup()
			return nil, err
		}
		if recheck, err := host.BranchHead(ctx, pinned.Branch); err != nil {
			cleanup()
			return nil, err
		} else if recheck != pinned.OID {
			cleanup()
			return nil, core.ErrState("PINNED_HEAD_DRIFT", fmt.Sprintf("branch %s moved from %s to %s while running", pinned.Branch, pinned.OID, recheck))
		}
		if err := host.ResetBranchHard(ctx, pinned.Branch, pinned.OID); err != nil {
			cleanup()
			return nil, err
		}
		switch {
		case newHead != pinned.OID:
			if err := host.CherryPickCommit(ctx, newHead); err != nil {
				_ = host.CherryPickAbort(ctx)
				cleanup()
				return nil, core.ErrExecution("WORKTREE_APPLY_CHERRY_PICK_FAILED", err.Error()).WithCause(err)
			}
		case len(patch) > 0:
			// The inner step left uncommitted changes rather than its own
			// commit: apply them to the host directly and commit there.
			if err := host.ApplyPatch(ctx, []byte(patch), true); err != nil {
				cleanup()
				return nil, err
			}
			if err := host.StageAll(ctx); err != nil {
				cleanup()
				return nil, err
			}
			if _, err := host.CommitStaged(ctx, opts.CommitMessage, false); err != nil {
				cleanup()
				return nil, err
			}
		}
	case HoldForReview:
		if err := host.ResetBranchHard(ctx, pinned.Branch, pinned.OID); err != nil {
			cleanup()
			return nil, err
		}
		if len(patch) > 0 {
			if err := host.ApplyPatch(ctx, []byte(patch), true); err != nil {
				cleanup()
				return nil, err
			}
		}
	default:
		cleanup()
		return nil, core.ErrValidation("WORKTREE_APPLY_MODE_INVALID", string(opts.Mode))
	}

	cleanup()
	return []byte(patch), nil
}
