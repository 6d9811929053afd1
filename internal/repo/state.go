package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// State inspects .git for an in-progress merge/rebase/bisect/cherry-pick/
// revert, returning core.RepoStateClean otherwise.
func (c *Client) State(ctx context.Context) (core.RepoState, error) {
	gitDir := c.findGitDir()

	checks := []struct {
		file  string
		state core.RepoState
	}{
		{"MERGE_HEAD", core.RepoStateMerging},
		{"rebase-merge", core.RepoStateRebasing},
		{"rebase-apply", core.RepoStateRebasing},
		{"BISECT_LOG", core.RepoStateBisecting},
		{"CHERRY_PICK_HEAD", core.RepoStateCherryPicking},
		{"REVERT_HEAD", core.RepoStateReverting},
	}
	for _, chk := range checks {
		if _, err := os.Stat(filepath.Join(gitDir, chk.file)); err == nil {
			return chk.state, nil
		}
	}
	return core.RepoStateClean, nil
}

// findGitDir locates .git, resolving the worktree indirection file when
// the repo root itself is a linked worktree.
func (c *Client) findGitDir() string {
	gitPath := filepath.Join(c.repoPath, ".git")

	info, err := os.Stat(gitPath)
	if err != nil {
		return gitPath
	}
	if info.IsDir() {
		return gitPath
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return gitPath
	}
	gitdir := strings.TrimSpace(string(content))
	if strings.HasPrefix(gitdir, "gitdir: ") {
		return strings.TrimPrefix(gitdir, "gitdir: ")
	}
	return gitPath
}

// IsClean reports whether the working tree and index have no changes.
func (c *Client) IsClean(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, core.ErrExecution("GIT_STATUS_FAILED", err.Error())
	}
	return strings.TrimSpace(out) == "", nil
}

// CurrentBranch returns the checked-out branch name, or a not-a-branch
// execution error when HEAD is detached.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return "", core.ErrState("DETACHED_HEAD", "HEAD is not on a branch")
	}
	return out, nil
}

// BranchHead resolves a branch name to its commit OID.
func (c *Client) BranchHead(ctx context.Context, branch string) (string, error) {
	if err := validateBranchName(branch); err != nil {
		return "", err
	}
	out, err := c.run(ctx, "rev-parse", "refs/heads/"+branch)
	if err != nil {
		return "", core.ErrNotFound("BRANCH", branch)
	}
	return out, nil
}

// BranchExists reports whether branch is a local branch.
func (c *Client) BranchExists(ctx context.Context, branch string) (bool, error) {
	if err := validateBranchName(branch); err != nil {
		return false, err
	}
	_, _, err := c.runWithOutput(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil, nil
}

// TagExists reports whether name is a tag, used by the release transaction
// to fail fast on a target version that was already released.
func (c *Client) TagExists(ctx context.Context, name string) (bool, error) {
	if err := validateNoNul("tag", name); err != nil {
		return false, err
	}
	_, _, err := c.runWithOutput(ctx, "show-ref", "--verify", "--quiet", "refs/tags/"+name)
	return err == nil, nil
}

// CreateAnnotatedTag creates an annotated tag at HEAD.
func (c *Client) CreateAnnotatedTag(ctx context.Context, name, message string) error {
	if err := validateNoNul("tag", name); err != nil {
		return err
	}
	if err := validateNoNul("message", message); err != nil {
		return err
	}
	if _, _, err := c.runWithOutput(ctx, "tag", "-a", name, "-m", message); err != nil {
		return core.ErrExecution("GIT_TAG_FAILED", err.Error())
	}
	return nil
}

// DeleteTag removes a tag, used by release rollback.
func (c *Client) DeleteTag(ctx context.Context, name string) error {
	if err := validateNoNul("tag", name); err != nil {
		return err
	}
	if _, _, err := c.runWithOutput(ctx, "tag", "-d", name); err != nil {
		return core.ErrExecution("GIT_TAG_DELETE_FAILED", err.Error())
	}
	return nil
}

// ResetBranchHard moves branch to oid with --hard, used to roll a release
// transaction back to its pre-release state.
func (c *Client) ResetBranchHard(ctx context.Context, branch, oid string) error {
	if err := validateBranchName(branch); err != nil {
		return err
	}
	if err := validateRev(oid); err != nil {
		return err
	}
	current, err := c.CurrentBranch(ctx)
	if err == nil && current == branch {
		if _, _, err := c.runWithOutput(ctx, "reset", "--hard", oid); err != nil {
			return core.ErrExecution("GIT_RESET_FAILED", err.Error())
		}
		return nil
	}
	if _, _, err := c.runWithOutput(ctx, "update-ref", "refs/heads/"+branch, oid); err != nil {
		return core.ErrExecution("GIT_RESET_FAILED", err.Error())
	}
	return nil
}

// ForceCheckout switches the working tree to branch, discarding any local
// modifications.
func (c *Client) ForceCheckout(ctx context.Context, branch string) error {
	if err := validateBranchName(branch); err != nil {
		return err
	}
	if _, _, err := c.runWithOutput(ctx, "checkout", "--force", branch); err != nil {
		return core.ErrExecution("GIT_CHECKOUT_FAILED", err.Error())
	}
	return nil
}

// CreateBranchAt creates a branch pointing at oid without checking it out.
func (c *Client) CreateBranchAt(ctx context.Context, name, oid string) error {
	if err := validateBranchName(name); err != nil {
		return err
	}
	if err := validateRev(oid); err != nil {
		return err
	}
	if _, _, err := c.runWithOutput(ctx, "branch", name, oid); err != nil {
		return core.ErrExecution("GIT_BRANCH_CREATE_FAILED", err.Error())
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (c *Client) DeleteBranch(ctx context.Context, name string) error {
	if err := validateBranchName(name); err != nil {
		return err
	}
	if _, _, err := c.runWithOutput(ctx, "branch", "-D", name); err != nil {
		return core.ErrExecution("GIT_BRANCH_DELETE_FAILED", err.Error())
	}
	return nil
}

// ApplyPatch applies a unified diff (or binary patch) to the working tree
// and index, as used by the untethered ask-save re-integration flow.
func (c *Client) ApplyPatch(ctx context.Context, patch []byte, binary bool) error {
	args := []string{"apply", "--index"}
	if binary {
		args = append(args, "--binary")
	}
	args = append(args, "-")

	cmd, cancel := c.commandWithStdin(ctx, patch, args...)
	defer cancel()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return core.ErrExecution("GIT_APPLY_FAILED", strings.TrimSpace(string(out)))
	}
	return nil
}

// CherryPickCommit cherry-picks a single commit onto the current branch.
func (c *Client) CherryPickCommit(ctx context.Context, oid string) error {
	if err := validateRev(oid); err != nil {
		return err
	}
	stdout, stderr, err := c.runWithOutput(ctx, "cherry-pick", "--allow-empty", oid)
	if err != nil {
		if strings.Contains(stdout, "CONFLICT") || strings.Contains(stderr, "CONFLICT") || strings.Contains(stderr, "could not apply") {
			return core.ErrState("CHERRY_PICK_CONFLICT", "cherry-pick of "+oid+" conflicted")
		}
		return core.ErrExecution("GIT_CHERRY_PICK_FAILED", err.Error())
	}
	return nil
}

// CherryPickAbort aborts an in-progress cherry-pick.
func (c *Client) CherryPickAbort(ctx context.Context) error {
	_, stderr, err := c.runWithOutput(ctx, "cherry-pick", "--abort")
	if err != nil && !strings.Contains(stderr, "no cherry-pick") {
		return core.ErrExecution("GIT_CHERRY_PICK_ABORT_FAILED", err.Error())
	}
	return nil
}
