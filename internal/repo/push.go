package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// classifyRemoteScheme labels a remote URL the way push error reporting
// needs it, without attempting full URL parsing.
func classifyRemoteScheme(url string) string {
	switch {
	case strings.HasPrefix(url, "ssh://"):
		return "ssh"
	case strings.HasPrefix(url, "https://"):
		return "https"
	case strings.Contains(url, "@") && strings.Contains(url, ":") && !strings.Contains(url, "://"):
		return "ssh"
	default:
		if idx := strings.Index(url, "://"); idx >= 0 {
			return strings.ToLower(url[:idx])
		}
		return "unknown"
	}
}

func defaultKeyPath(kind string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", kind)
}

// pushCredentialPlan returns the fixed strategy attempt order: a
// credential helper (delegated to git's own config), then SSH key files if
// present, then a username-only attempt, then git's built-in default.
func pushCredentialPlan() []core.CredentialStrategy {
	return []core.CredentialStrategy{
		core.CredentialHelper,
		core.CredentialSSHEd25519,
		core.CredentialSSHRSA,
		core.CredentialUsernameOnly,
		core.CredentialDefault,
	}
}

// attemptPush tries one credential strategy by shaping the environment
// exec.CommandContext hands to git, then running the push. Strategies that
// have no material to try (no configured helper, no key on disk) are
// recorded as skipped rather than attempted.
func (c *Client) attemptPush(ctx context.Context, strategy core.CredentialStrategy, remote, refspec string) core.CredentialAttempt {
	env := os.Environ()

	switch strategy {
	case core.CredentialHelper:
		helper, _ := c.run(ctx, "config", "--get", "credential.helper")
		if strings.TrimSpace(helper) == "" {
			return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialSkipped, Message: "no credential.helper configured"}
		}
	case core.CredentialSSHEd25519:
		key := defaultKeyPath("id_ed25519")
		if key == "" {
			return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialSkipped, Message: "no key at ~/.ssh/id_ed25519"}
		}
		if _, err := os.Stat(key); err != nil {
			return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialSkipped, Message: "no key at ~/.ssh/id_ed25519"}
		}
		env = append(env, "GIT_SSH_COMMAND=ssh -i "+key+" -o IdentitiesOnly=yes -o BatchMode=yes")
	case core.CredentialSSHRSA:
		key := defaultKeyPath("id_rsa")
		if key == "" {
			return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialSkipped, Message: "no key at ~/.ssh/id_rsa"}
		}
		if _, err := os.Stat(key); err != nil {
			return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialSkipped, Message: "no key at ~/.ssh/id_rsa"}
		}
		env = append(env, "GIT_SSH_COMMAND=ssh -i "+key+" -o IdentitiesOnly=yes -o BatchMode=yes")
	case core.CredentialUsernameOnly:
		env = append(env, "GIT_ASKPASS=", "GIT_TERMINAL_PROMPT=0")
	case core.CredentialDefault:
		// no environment shaping; let git's own resolution run.
	}

	stdout, stderr, err := c.runWithOutputEnv(ctx, env, "push", remote, refspec)
	if err == nil {
		if strings.Contains(stdout, "[rejected]") || strings.Contains(stderr, "[rejected]") {
			return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialFailure, Message: "remote rejected update"}
		}
		return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialSuccess}
	}
	return core.CredentialAttempt{Strategy: strategy, Outcome: core.CredentialFailure, Message: sanitizeOneLine(stderr)}
}

func sanitizeOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PushCurrentBranch pushes HEAD's branch to remote, trying each credential
// strategy in pushCredentialPlan order. It fails fast on the same
// preconditions git2-backed pushes enforce: a clean repo, HEAD on a named
// branch, and (when an upstream is configured) a fast-forward relationship.
func (c *Client) PushCurrentBranch(ctx context.Context, remote string) error {
	if err := validateRemoteName(remote); err != nil {
		return err
	}

	state, err := c.State(ctx)
	if err != nil {
		return err
	}
	if state != core.RepoStateClean {
		return core.ErrState("REPO_NOT_CLEAN", "cannot push while a "+string(state)+" operation is in progress")
	}

	branch, err := c.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if err := c.checkFastForward(ctx, remote, branch); err != nil {
		return err
	}

	url, _ := c.run(ctx, "remote", "get-url", remote)
	scheme := classifyRemoteScheme(url)
	refspec := branch + ":" + branch

	var attempts []core.CredentialAttempt
	for _, strategy := range pushCredentialPlan() {
		attempt := c.attemptPush(ctx, strategy, remote, refspec)
		attempts = append(attempts, attempt)
		if attempt.Outcome == core.CredentialSuccess {
			return nil
		}
	}

	anyAttempted := false
	for _, a := range attempts {
		if a.Outcome != core.CredentialSkipped {
			anyAttempted = true
		}
	}
	if !anyAttempted {
		return &core.PushError{
			Kind:     core.PushErrorGeneral,
			Remote:   remote,
			URL:      url,
			Scheme:   scheme,
			Attempts: attempts,
			Message:  "no credential strategy had material to attempt",
		}
	}
	return &core.PushError{
		Kind:     core.PushErrorAuth,
		Remote:   remote,
		URL:      url,
		Scheme:   scheme,
		Attempts: attempts,
	}
}

// checkFastForward verifies HEAD is a descendant of the configured
// upstream tracking ref, when one exists, so a push never silently
// diverges.
func (c *Client) checkFastForward(ctx context.Context, remote, branch string) error {
	upstream, _, err := c.runWithOutput(ctx, "rev-parse", "--abbrev-ref", branch+"@{upstream}")
	if err != nil {
		return nil // no upstream configured; nothing to check
	}
	upstream = strings.TrimSpace(upstream)
	if upstream == "" {
		return nil
	}
	upstreamOID, err := c.run(ctx, "rev-parse", upstream)
	if err != nil {
		return nil
	}
	headOID, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return core.ErrState("DETACHED_HEAD", "HEAD is not on a branch")
	}
	if headOID == upstreamOID {
		return nil
	}
	_, _, err = c.runWithOutput(ctx, "merge-base", "--is-ancestor", upstreamOID, headOID)
	if err != nil {
		return &core.PushError{
			Kind:    core.PushErrorGeneral,
			Remote:  remote,
			Message: "push would not be a fast-forward; fetch and merge first",
		}
	}
	return nil
}
