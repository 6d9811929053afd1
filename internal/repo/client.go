// Package repo implements the repo gateway contract (core.RepoGateway): a
// thin exec.CommandContext wrapper over the git CLI with no shell
// interpolation, typed DomainErrors instead of process aborts, and the
// merge/squash/cherry-pick/release/push-credential algorithms a workflow
// template's executors drive.
package repo

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Compile-time interface conformance check.
var _ core.RepoGateway = (*Client)(nil)

// Client wraps git CLI operations for a single repository working tree.
type Client struct {
	repoPath string
	timeout  time.Duration
	gitPath  string
}

// NewClient creates a new repo gateway rooted at repoPath.
func NewClient(repoPath string, timeout time.Duration) (*Client, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	gitPath, err := resolveGitBinaryPath(absPath)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	c := &Client{repoPath: absPath, timeout: timeout, gitPath: gitPath}
	if err := c.verifyRepo(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) verifyRepo() error {
	if _, err := c.run(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return core.ErrValidation("NOT_GIT_REPO", fmt.Sprintf("%s is not a git repository", c.repoPath))
	}
	return nil
}

// RepoPath returns the repository's absolute root path.
func (c *Client) RepoPath() string {
	return c.repoPath
}

// run executes a git command, returning trimmed stdout. Security note:
// exec.CommandContext never invokes a shell, so arguments are not subject to
// shell interpolation; callers still validate user-controlled values before
// they reach argv to avoid option/argument injection into git itself.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	stdout, _, err := c.runWithOutput(ctx, args...)
	return stdout, err
}

// runWithOutput executes a git command and returns stdout/stderr even on
// error, since conflict and rejection detail frequently lands in stdout.
func (c *Client) runWithOutput(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	cmd.Dir = c.repoPath

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = strings.TrimSpace(outBuf.String())
	stderr = strings.TrimSpace(errBuf.String())

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return stdout, stderr, core.ErrTimeout("git command timed out")
		}
		return stdout, stderr, fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr, runErr)
	}
	return stdout, stderr, nil
}

// runWithOutputEnv is runWithOutput with an overridden process environment,
// used by the push credential plan to shape GIT_SSH_COMMAND per strategy
// without touching the process-wide environment.
func (c *Client) runWithOutputEnv(ctx context.Context, env []string, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	cmd.Dir = c.repoPath
	cmd.Env = env

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = strings.TrimSpace(outBuf.String())
	stderr = strings.TrimSpace(errBuf.String())

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return stdout, stderr, core.ErrTimeout("git command timed out")
		}
		return stdout, stderr, fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr, runErr)
	}
	return stdout, stderr, nil
}

// commandWithStdin builds a git command that reads data from stdin (e.g.
// `git apply -`), returning the command and a cancel func the caller must
// defer.
func (c *Client) commandWithStdin(ctx context.Context, data []byte, args ...string) (*exec.Cmd, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	cmd.Dir = c.repoPath
	cmd.Stdin = bytes.NewReader(data)
	return cmd, cancel
}

func resolveGitBinaryPath(repoAbs string) (string, error) {
	p, err := exec.LookPath("git")
	if err != nil {
		return "", fmt.Errorf("git not found in PATH: %w", err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving git path: %w", err)
	}

	real := abs
	if rr, err := filepath.EvalSymlinks(abs); err == nil {
		real = rr
	}

	info, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("stat git binary: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("git binary is not a regular file: %s", real)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", fmt.Errorf("git binary is not executable: %s", real)
	}
	if isPathWithinDir(repoAbs, real) {
		return "", fmt.Errorf("refusing to execute git from within repository: %s", real)
	}
	return real, nil
}

func isPathWithinDir(root, path string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rootAbs, pathAbs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
