package cli

import (
	"context"
	"regexp"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
)

// ClaudeAdapter launches the Claude Code CLI as a node's cap.agent.* backend.
type ClaudeAdapter struct {
	*BaseAdapter
}

// NewClaudeAdapter creates a new Claude adapter.
func NewClaudeAdapter(cfg AgentConfig) (core.AgentRunner, error) {
	if cfg.Path == "" {
		cfg.Path = "claude"
	}
	logger := logging.NewNop().With("adapter", "claude")
	return &ClaudeAdapter{BaseAdapter: NewBaseAdapter(cfg, logger)}, nil
}

// Name returns the adapter name.
func (c *ClaudeAdapter) Name() string {
	return "claude"
}

// Ping checks if Claude CLI is available.
func (c *ClaudeAdapter) Ping(ctx context.Context) error {
	if err := c.CheckAvailability(ctx); err != nil {
		return err
	}
	_, err := c.GetVersion(ctx, "--version")
	return err
}

// Launch runs the node's prompt through Claude CLI in the prepared worktree.
func (c *ClaudeAdapter) Launch(ctx context.Context, opts core.AgentLaunchOptions) (*core.AgentResult, error) {
	if opts.EventHandler != nil {
		c.SetEventHandler(opts.EventHandler)
	}

	model := opts.Model
	if model == "" {
		model = c.config.Model
	}
	effort := core.NormalizeClaudeEffort(model, firstNonEmpty(opts.ReasoningEffort, c.config.ReasoningEffort))
	if effort != "" {
		c.ExtraEnv = map[string]string{"CLAUDE_CODE_EFFORT_LEVEL": effort}
	}
	for k, v := range opts.Env {
		if c.ExtraEnv == nil {
			c.ExtraEnv = map[string]string{}
		}
		c.ExtraEnv[k] = v
	}

	args := []string{"--print", "--dangerously-skip-permissions"}
	if model != "" {
		args = append(args, "--model", model)
	}

	result, err := c.ExecuteWithStreaming(ctx, c.Name(), args, opts.Prompt, opts.WorkDir, 0)
	if result == nil {
		return nil, err
	}
	return &core.AgentResult{
		ExitCode:    exitCodeOf(result, err),
		Stdout:      result.Stdout,
		Stderr:      result.Stderr,
		SessionPath: extractSessionID(result.Stdout),
	}, nil
}

var claudeSessionPattern = regexp.MustCompile(`"session_id"\s*:\s*"([^"]+)"`)

// extractSessionID pulls a session identifier out of a CLI's JSON stdout, if
// present. Shared across adapters since Claude, Codex, and Gemini all emit
// it under the same key when streaming JSON is enabled.
func extractSessionID(stdout string) string {
	if m := claudeSessionPattern.FindStringSubmatch(stdout); len(m) == 2 {
		return m[1]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// exitCodeOf derives the exit code to report for a finished CLI invocation.
// An agent crash or a non-zero exit is a job outcome, not an executor error
// (spec's executor contract never propagates agent failures) — so a non-nil
// err from ExecuteCommand/ExecuteWithStreaming that still produced a result
// is folded into a non-zero exit code rather than returned to the caller.
func exitCodeOf(result *CommandResult, err error) int {
	if result.ExitCode != 0 {
		return result.ExitCode
	}
	if err != nil {
		return 1
	}
	return 0
}
