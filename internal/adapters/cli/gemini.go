package cli

import (
	"context"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
)

// GeminiAdapter launches the Gemini CLI as a node's cap.agent.* backend.
type GeminiAdapter struct {
	*BaseAdapter
}

// NewGeminiAdapter creates a new Gemini adapter.
func NewGeminiAdapter(cfg AgentConfig) (core.AgentRunner, error) {
	if cfg.Path == "" {
		cfg.Path = "gemini"
	}
	logger := logging.NewNop().With("adapter", "gemini")
	return &GeminiAdapter{BaseAdapter: NewBaseAdapter(cfg, logger)}, nil
}

// Name returns the adapter name.
func (g *GeminiAdapter) Name() string {
	return "gemini"
}

// Ping checks if Gemini CLI is available.
func (g *GeminiAdapter) Ping(ctx context.Context) error {
	if err := g.CheckAvailability(ctx); err != nil {
		return err
	}
	_, err := g.GetVersion(ctx, "--version")
	return err
}

// Launch runs the node's prompt through Gemini CLI in the prepared worktree.
// Gemini has no reasoning-effort knob exposed through the CLI, so that
// option is accepted but not forwarded.
func (g *GeminiAdapter) Launch(ctx context.Context, opts core.AgentLaunchOptions) (*core.AgentResult, error) {
	if opts.EventHandler != nil {
		g.SetEventHandler(opts.EventHandler)
	}
	if len(opts.Env) > 0 {
		g.ExtraEnv = opts.Env
	}

	model := opts.Model
	if model == "" {
		model = g.config.Model
	}

	args := []string{"--approval-mode", "yolo"}
	if model != "" {
		args = append(args, "--model", model)
	}

	result, err := g.ExecuteWithStreaming(ctx, g.Name(), args, opts.Prompt, opts.WorkDir, 0)
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
