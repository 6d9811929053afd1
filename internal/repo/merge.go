package repo

import (
	"context"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// PrepareMerge stages a merge of sourceBranch into the current branch
// without committing it, returning Ready{head, source, tree} when the
// merge applies cleanly or Conflicted{head, source, files} when it
// doesn't. The repo must be clean and HEAD must be on a branch.
func (c *Client) PrepareMerge(ctx context.Context, sourceBranch string) (core.MergeOutcome, error) {
	if err := validateBranchName(sourceBranch); err != nil {
		return core.MergeOutcome{}, err
	}

	clean, err := c.IsClean(ctx)
	if err != nil {
		return core.MergeOutcome{}, err
	}
	if !clean {
		return core.MergeOutcome{}, core.ErrState("REPO_NOT_CLEAN", "repo has uncommitted changes")
	}

	head, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return core.MergeOutcome{}, core.ErrState("DETACHED_HEAD", "HEAD is not on a branch")
	}
	source, err := c.BranchHead(ctx, sourceBranch)
	if err != nil {
		return core.MergeOutcome{}, err
	}

	stdout, stderr, mergeErr := c.runWithOutput(ctx, "merge", "--no-commit", "--no-ff", sourceBranch)
	if mergeErr != nil {
		if strings.Contains(stdout, "CONFLICT") || strings.Contains(stderr, "CONFLICT") || strings.Contains(stdout, "Automatic merge failed") {
			files, _ := c.conflictFiles(ctx)
			_, _, _ = c.runWithOutput(ctx, "merge", "--abort")
			return core.MergeConflictedResult(head, source, files), nil
		}
		return core.MergeOutcome{}, core.ErrExecution("GIT_MERGE_FAILED", mergeErr.Error())
	}

	tree, err := c.run(ctx, "write-tree")
	if err != nil {
		return core.MergeOutcome{}, core.ErrExecution("GIT_WRITE_TREE_FAILED", err.Error())
	}
	return core.MergeReadyResult(head, source, tree), nil
}

func (c *Client) conflictFiles(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, nil
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// CommitReadyMerge finalizes a Ready merge outcome prepared by PrepareMerge.
// If HEAD has moved since preparation, it fails rather than commit over a
// stale base.
func (c *Client) CommitReadyMerge(ctx context.Context, outcome core.MergeOutcome, message string) (string, error) {
	if outcome.Kind != core.MergeReady {
		return "", core.ErrValidation("INVALID_MERGE_OUTCOME", "commit_ready_merge requires a Ready outcome")
	}
	if err := c.checkHeadUnmoved(ctx, outcome.Head); err != nil {
		return "", err
	}
	if _, _, err := c.runWithOutput(ctx, "commit", "-m", message); err != nil {
		return "", core.ErrExecution("GIT_COMMIT_FAILED", err.Error())
	}
	return c.run(ctx, "rev-parse", "HEAD")
}

// CommitSquashedMerge finalizes a Ready merge outcome as a single squash
// commit instead of a merge commit (one parent, HEAD only).
func (c *Client) CommitSquashedMerge(ctx context.Context, outcome core.MergeOutcome, message string) (string, error) {
	if outcome.Kind != core.MergeReady {
		return "", core.ErrValidation("INVALID_MERGE_OUTCOME", "commit_squashed_merge requires a Ready outcome")
	}
	if err := c.checkHeadUnmoved(ctx, outcome.Head); err != nil {
		return "", err
	}
	// Replace the staged merge commit's would-be two parents with a
	// single-parent commit of the prepared tree.
	commitOID, err := c.run(ctx, "commit-tree", outcome.Tree, "-p", outcome.Head, "-m", message)
	if err != nil {
		return "", core.ErrExecution("GIT_COMMIT_TREE_FAILED", err.Error())
	}
	branch, err := c.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}
	if err := c.ResetBranchHard(ctx, branch, commitOID); err != nil {
		return "", err
	}
	return commitOID, nil
}

// CommitInProgressMerge finalizes a merge that git itself is already
// mid-way through (the conflicted-then-manually-resolved path), committing
// whatever is currently staged as the merge commit.
func (c *Client) CommitInProgressMerge(ctx context.Context, message string) (string, error) {
	state, err := c.State(ctx)
	if err != nil {
		return "", err
	}
	if state != core.RepoStateMerging {
		return "", core.ErrState("NO_MERGE_IN_PROGRESS", "no merge in progress")
	}
	if _, _, err := c.runWithOutput(ctx, "commit", "-m", message); err != nil {
		return "", core.ErrExecution("GIT_COMMIT_FAILED", err.Error())
	}
	return c.run(ctx, "rev-parse", "HEAD")
}

func (c *Client) checkHeadUnmoved(ctx context.Context, expectedHead string) error {
	current, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return core.ErrState("DETACHED_HEAD", "HEAD is not on a branch")
	}
	if current != expectedHead {
		return core.ErrState("HEAD_MOVED", "HEAD moved since merge was prepared")
	}
	return nil
}

// commitNode is one entry walked from merge_base(source, head)..source.
type commitNode struct {
	oid     string
	parents []string
}

// BuildSquashPlan walks merge_base(source, HEAD)..source in
// topological-reverse order, classifying multi-parent commits as merges
// and inferring the mainline parent index by intersecting, across every
// merge commit encountered, the set of parents that are descendants of
// HEAD. An empty intersection (or disagreement across merge commits)
// marks the plan ambiguous.
func (c *Client) BuildSquashPlan(ctx context.Context, sourceBranch string) (core.SquashPlan, error) {
	if err := validateBranchName(sourceBranch); err != nil {
		return core.SquashPlan{}, err
	}

	head, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return core.SquashPlan{}, core.ErrState("DETACHED_HEAD", "HEAD is not on a branch")
	}
	source, err := c.BranchHead(ctx, sourceBranch)
	if err != nil {
		return core.SquashPlan{}, err
	}

	base, err := c.run(ctx, "merge-base", head, source)
	if err != nil {
		return core.SquashPlan{}, core.ErrExecution("GIT_MERGE_BASE_FAILED", err.Error())
	}

	nodes, err := c.walkCommits(ctx, base, source)
	if err != nil {
		return core.SquashPlan{}, err
	}

	commitsToApply := make([]string, 0, len(nodes))
	var candidateIdx *int
	ambiguous := false

	for _, n := range nodes {
		commitsToApply = append(commitsToApply, n.oid)
		if len(n.parents) <= 1 {
			continue
		}
		idx, err := c.inferMainlineIdx(ctx, n.parents, head)
		if err != nil {
			return core.SquashPlan{}, err
		}
		if idx == nil {
			ambiguous = true
			continue
		}
		if candidateIdx == nil {
			candidateIdx = idx
		} else if *candidateIdx != *idx {
			ambiguous = true
		}
	}

	return core.SquashPlan{
		CommitsToApply:    commitsToApply,
		MainlineParentIdx: candidateIdx,
		Ambiguous:         ambiguous,
	}, nil
}

// inferMainlineIdx returns the 0-based index of the single parent of
// parents that is a descendant of head, or nil when zero or more than one
// parent qualifies (ambiguous).
func (c *Client) inferMainlineIdx(ctx context.Context, parents []string, head string) (*int, error) {
	var match *int
	for i, p := range parents {
		_, _, err := c.runWithOutput(ctx, "merge-base", "--is-ancestor", head, p)
		if err == nil {
			if match != nil {
				return nil, nil
			}
			idx := i
			match = &idx
		}
	}
	return match, nil
}

// walkCommits returns the commits in (base, head] in topological order,
// oldest first, along with each one's parent OIDs.
func (c *Client) walkCommits(ctx context.Context, base, head string) ([]commitNode, error) {
	out, err := c.run(ctx, "rev-list", "--topo-order", "--reverse", "--parents", base+".."+head)
	if err != nil {
		return nil, core.ErrExecution("GIT_REV_LIST_FAILED", err.Error())
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	var nodes []commitNode
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		nodes = append(nodes, commitNode{oid: fields[0], parents: fields[1:]})
	}
	return nodes, nil
}

// ApplyCherryPickSequence cherry-picks commits in order onto the branch
// currently at startHead. favor is passed through to `-X` (e.g. "ours",
// "theirs"); mainline selects `-m <n>` for merge commits in the sequence.
// HEAD moving since the plan was built is detected up front and reported
// as a state error, matching PrepareMerge's staleness check.
func (c *Client) ApplyCherryPickSequence(ctx context.Context, startHead string, commits []string, favor string, mainline *int) (core.CherryPickOutcome, error) {
	if err := c.checkHeadUnmoved(ctx, startHead); err != nil {
		return core.CherryPickOutcome{}, err
	}
	if mainline != nil && *mainline < 1 {
		return core.CherryPickOutcome{}, core.ErrValidation("INVALID_MAINLINE", "mainline parent number must be >= 1")
	}

	var applied []string
	for i, oid := range commits {
		if err := validateRev(oid); err != nil {
			return core.CherryPickOutcome{}, err
		}

		args := []string{"cherry-pick", "--allow-empty"}
		if favor != "" {
			args = append(args, "-X", favor)
		}
		if mainline != nil {
			args = append(args, "-m", strconv.Itoa(*mainline))
		}
		args = append(args, oid)

		stdout, stderr, err := c.runWithOutput(ctx, args...)
		if err != nil {
			if strings.Contains(stdout, "CONFLICT") || strings.Contains(stderr, "CONFLICT") || strings.Contains(stderr, "could not apply") {
				files, _ := c.conflictFiles(ctx)
				_, _, _ = c.runWithOutput(ctx, "cherry-pick", "--abort")
				return core.CherryPickOutcome{
					Kind:      core.CherryPickConflicted,
					Applied:   applied,
					Remaining: commits[i:],
					Files:     files,
				}, nil
			}
			return core.CherryPickOutcome{}, core.ErrExecution("GIT_CHERRY_PICK_FAILED", err.Error())
		}
		applied = append(applied, oid)
	}

	return core.CherryPickOutcome{Kind: core.CherryPickCompleted, Applied: applied}, nil
}
