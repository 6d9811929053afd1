package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// AddWorktreeForBranch checks out branch into a new worktree at path,
// creating the parent directory if needed.
func (c *Client) AddWorktreeForBranch(ctx context.Context, name, path, branch string) error {
	if err := validateBranchName(branch); err != nil {
		return err
	}
	if err := validatePathArg(path); err != nil {
		return err
	}
	if name == "" {
		return core.ErrValidation("WORKTREE_NAME_REQUIRED", "worktree name required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return core.ErrExecution("WORKTREE_MKDIR_FAILED", err.Error())
	}

	exists, err := c.BranchExists(ctx, branch)
	if err != nil {
		return err
	}

	var args []string
	if exists {
		args = []string{"worktree", "add", path, branch}
	} else {
		args = []string{"worktree", "add", "-b", branch, path}
	}

	if _, _, err := c.runWithOutput(ctx, args...); err != nil {
		return core.ErrExecution("WORKTREE_ADD_FAILED", err.Error())
	}
	return nil
}

// RemoveWorktree removes the worktree registered under name. force
// discards uncommitted changes in the worktree; without it, a dirty
// worktree causes the removal to fail.
func (c *Client) RemoveWorktree(ctx context.Context, name string, force bool) error {
	path, err := c.worktreePathFor(ctx, name)
	if err != nil {
		return err
	}

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	if _, stderr, err := c.runWithOutput(ctx, args...); err != nil {
		if !force && strings.Contains(stderr, "contains modified or untracked files") {
			return core.ErrState("WORKTREE_DIRTY", "worktree has uncommitted changes; pass force to discard them")
		}
		return core.ErrExecution("WORKTREE_REMOVE_FAILED", err.Error())
	}
	return nil
}

// worktreePathFor resolves a worktree name (as used by AddWorktreeForBranch)
// back to its on-disk path by scanning `git worktree list --porcelain`.
func (c *Client) worktreePathFor(ctx context.Context, name string) (string, error) {
	out, err := c.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return "", core.ErrExecution("WORKTREE_LIST_FAILED", err.Error())
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worktree ") {
			path := strings.TrimPrefix(line, "worktree ")
			if filepath.Base(path) == name {
				return path, nil
			}
		}
	}
	return "", core.ErrNotFound("WORKTREE_NOT_FOUND", fmt.Sprintf("no worktree named %q", name))
}
