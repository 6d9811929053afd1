package executor

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// mergeExecutor runs any cap.merge.* capability: prepare a merge of
// args.source_branch into the current branch and, depending on
// args.strategy, commit it as a merge, a squash, or a cherry-pick
// sequence. A conflicted merge is not a job failure — it's a controlled
// outcome that surfaces a conflict bundle for a human or agent to
// resolve (spec.md §4.5).
type mergeExecutor struct {
	deps Deps
}

func (e *mergeExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	source := node.Args["source_branch"]
	if source == "" {
		return nil, core.ErrValidation("MERGE_SOURCE_BRANCH_REQUIRED", "node "+node.ID+" has no source_branch")
	}
	strategy := node.Args["strategy"]
	if strategy == "" {
		strategy = "merge"
	}
	message := node.Args["message"]
	if message == "" {
		message = fmt.Sprintf("vizier: merge %s (%s)", source, strategy)
	}

	outcome, err := e.deps.Gateway.PrepareMerge(ctx, source)
	if err != nil {
		return nil, err
	}

	if outcome.Kind == core.MergeConflicted {
		slug := job.Metadata.Plan
		if slug == "" {
			slug = node.ID
		}
		return &Result{
			ExitCode: 0,
			MetadataDelta: map[string]string{
				"merge_outcome":    "conflicted",
				"merge_source":     source,
				"merge_conflicted": fmt.Sprintf("%d", len(outcome.Files)),
			},
			Artifacts: []core.Artifact{core.CustomArtifact("merge_conflict_bundle", slug)},
		}, nil
	}

	var oid string
	switch strategy {
	case "squash":
		oid, err = e.deps.Gateway.CommitSquashedMerge(ctx, outcome, message)
	case "cherry_pick":
		plan, planErr := e.deps.Gateway.BuildSquashPlan(ctx, source)
		if planErr != nil {
			return nil, planErr
		}
		cpOutcome, cpErr := e.deps.Gateway.ApplyCherryPickSequence(ctx, outcome.Head, plan.CommitsToApply, "ours", plan.MainlineParentIdx)
		if cpErr != nil {
			return nil, cpErr
		}
		if cpOutcome.Kind == core.CherryPickConflicted {
			slug := job.Metadata.Plan
			if slug == "" {
				slug = node.ID
			}
			return &Result{
				ExitCode: 0,
				MetadataDelta: map[string]string{
					"merge_outcome": "conflicted",
					"merge_source":  source,
				},
				Artifacts: []core.Artifact{core.CustomArtifact("merge_conflict_bundle", slug)},
			}, nil
		}
		oid = ""
	default:
		oid, err = e.deps.Gateway.CommitReadyMerge(ctx, outcome, message)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		ExitCode: 0,
		MetadataDelta: map[string]string{
			"merge_outcome": "ready",
			"merge_source":  source,
			"merge_commit":  oid,
		},
		Artifacts: []core.Artifact{core.OperationOutputArtifact(node.ID)},
	}, nil
}
