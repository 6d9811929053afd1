package repo

import (
	"context"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// emptyTreeOID is the git object ID of the canonical empty tree, used to
// diff against when base resolves to an unborn HEAD.
const emptyTreeOID = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// GetDiff returns the unified patch text for base..HEAD (or the working
// tree diff when base is empty), excluding any pathspecs in exclude.
func (c *Client) GetDiff(ctx context.Context, base string, exclude []string) (string, error) {
	args := []string{"diff"}
	if base != "" {
		if err := validateRev(base); err != nil {
			return "", err
		}
		if ok, _ := c.revExists(ctx, base); !ok {
			base = emptyTreeOID
		}
		args = append(args, base)
	}
	if len(exclude) > 0 {
		args = append(args, "--")
		args = append(args, ".")
		for _, pattern := range exclude {
			args = append(args, ":(exclude)"+pattern)
		}
	}
	out, _, err := c.runWithOutput(ctx, args...)
	if err != nil {
		return "", core.ErrExecution("GIT_DIFF_FAILED", err.Error())
	}
	return out, nil
}

func (c *Client) revExists(ctx context.Context, rev string) (bool, error) {
	_, _, err := c.runWithOutput(ctx, "rev-parse", "--verify", "--quiet", rev)
	return err == nil, nil
}

// Stage adds the given paths to the index.
func (c *Client) Stage(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := validatePathArg(p); err != nil {
			return err
		}
	}
	args := append([]string{"add", "--"}, paths...)
	_, _, err := c.runWithOutput(ctx, args...)
	if err != nil {
		return core.ErrExecution("GIT_STAGE_FAILED", err.Error())
	}
	return nil
}

// StageAll stages every tracked and untracked change.
func (c *Client) StageAll(ctx context.Context) error {
	_, _, err := c.runWithOutput(ctx, "add", "-A")
	if err != nil {
		return core.ErrExecution("GIT_STAGE_ALL_FAILED", err.Error())
	}
	return nil
}

// StagePathsAllowMissing stages paths, tolerating paths that no longer
// exist on disk (e.g. a node that deleted a file it also produced).
func (c *Client) StagePathsAllowMissing(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := validatePathArg(p); err != nil {
			return err
		}
	}
	args := append([]string{"add", "-A", "--ignore-errors", "--"}, paths...)
	_, _, _ = c.runWithOutput(ctx, args...)
	return nil
}

// Unstage removes the given paths from the index without touching the
// working tree.
func (c *Client) Unstage(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := validatePathArg(p); err != nil {
			return err
		}
	}
	args := append([]string{"reset", "HEAD", "--"}, paths...)
	_, _, err := c.runWithOutput(ctx, args...)
	if err != nil {
		return core.ErrExecution("GIT_UNSTAGE_FAILED", err.Error())
	}
	return nil
}

// CommitStaged commits the index. When the tree is unchanged and
// allowEmpty is false, it returns a not_found-category error rather than
// invoking git (git's own "nothing to commit" message is not the
// contract's error shape).
func (c *Client) CommitStaged(ctx context.Context, message string, allowEmpty bool) (string, error) {
	if err := validateNoNul("message", message); err != nil {
		return "", err
	}
	if message == "" {
		return "", core.ErrValidation("INVALID_MESSAGE", "commit message must not be empty")
	}

	if !allowEmpty {
		diff, _, _ := c.runWithOutput(ctx, "diff", "--cached", "--name-only")
		if strings.TrimSpace(diff) == "" {
			return "", core.ErrState("NOTHING_TO_COMMIT", "nothing to commit")
		}
	}

	args := []string{"commit", "-m", message}
	if allowEmpty {
		args = append(args, "--allow-empty")
	}
	if _, _, err := c.runWithOutput(ctx, args...); err != nil {
		return "", core.ErrExecution("GIT_COMMIT_FAILED", err.Error())
	}
	return c.run(ctx, "rev-parse", "HEAD")
}
