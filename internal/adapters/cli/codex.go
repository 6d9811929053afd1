package cli

import (
	"context"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
)

// CodexAdapter launches the OpenAI Codex CLI as a node's cap.agent.* backend.
type CodexAdapter struct {
	*BaseAdapter
}

// NewCodexAdapter creates a new Codex adapter.
func NewCodexAdapter(cfg AgentConfig) (core.AgentRunner, error) {
	if cfg.Path == "" {
		cfg.Path = "codex"
	}
	logger := logging.NewNop().With("adapter", "codex")
	return &CodexAdapter{BaseAdapter: NewBaseAdapter(cfg, logger)}, nil
}

// Name returns the adapter name.
func (c *CodexAdapter) Name() string {
	return "codex"
}

// Ping checks if Codex CLI is available.
func (c *CodexAdapter) Ping(ctx context.Context) error {
	if err := c.CheckAvailability(ctx); err != nil {
		return err
	}
	_, err := c.GetVersion(ctx, "--version")
	return err
}

// Launch runs the node's prompt through Codex CLI in the prepared worktree.
func (c *CodexAdapter) Launch(ctx context.Context, opts core.AgentLaunchOptions) (*core.AgentResult, error) {
	if opts.EventHandler != nil {
		c.SetEventHandler(opts.EventHandler)
	}
	if len(opts.Env) > 0 {
		c.ExtraEnv = opts.Env
	}

	model := opts.Model
	if model == "" {
		model = c.config.Model
	}
	effort := core.NormalizeReasoningEffortForModel(model, firstNonEmpty(opts.ReasoningEffort, c.config.ReasoningEffort))

	args := []string{"exec", "--skip-git-repo-check",
		"-c", `approval_policy="never"`,
		"-c", `sandbox_mode="workspace-write"`,
	}
	if model != "" {
		args = append(args, "-c", `model="`+model+`"`)
	}
	if effort != "" {
		args = append(args, "-c", `model_reasoning_effort="`+effort+`"`)
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
