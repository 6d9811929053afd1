package cli

import (
	"context"
	"os"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
)

// OpenCodeAdapter launches the OpenCode CLI (typically pointed at a local
// Ollama-compatible endpoint) as a node's cap.agent.* backend.
type OpenCodeAdapter struct {
	*BaseAdapter
	ollamaURL string
	ollamaKey string
}

// NewOpenCodeAdapter creates a new OpenCode adapter.
func NewOpenCodeAdapter(cfg AgentConfig) (core.AgentRunner, error) {
	if cfg.Path == "" {
		cfg.Path = "opencode"
	}
	logger := logging.NewNop().With("adapter", "opencode")

	ollamaURL := os.Getenv("OPENAI_BASE_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434/v1"
	}
	ollamaKey := os.Getenv("OPENAI_API_KEY")
	if ollamaKey == "" {
		ollamaKey = "ollama"
	}

	return &OpenCodeAdapter{
		BaseAdapter: NewBaseAdapter(cfg, logger),
		ollamaURL:   ollamaURL,
		ollamaKey:   ollamaKey,
	}, nil
}

// Name returns the adapter name.
func (o *OpenCodeAdapter) Name() string {
	return "opencode"
}

// Ping checks if OpenCode CLI is available.
func (o *OpenCodeAdapter) Ping(ctx context.Context) error {
	if err := o.CheckAvailability(ctx); err != nil {
		return err
	}
	_, err := o.GetVersion(ctx, "--version")
	return err
}

// Launch runs the node's prompt through OpenCode CLI in the prepared
// worktree, pointed at the configured OpenAI-compatible endpoint.
func (o *OpenCodeAdapter) Launch(ctx context.Context, opts core.AgentLaunchOptions) (*core.AgentResult, error) {
	if opts.EventHandler != nil {
		o.SetEventHandler(opts.EventHandler)
	}
	env := map[string]string{"OPENAI_BASE_URL": o.ollamaURL, "OPENAI_API_KEY": o.ollamaKey}
	for k, v := range opts.Env {
		env[k] = v
	}
	o.ExtraEnv = env

	model := opts.Model
	if model == "" {
		model = o.config.Model
	}

	args := []string{"run"}
	if model != "" {
		args = append(args, "--model", model)
	}

	result, err := o.ExecuteWithStreaming(ctx, o.Name(), args, opts.Prompt, opts.WorkDir, 0)
	if result == nil {
		return nil, err
	}
	return &core.AgentResult{
		ExitCode: exitCodeOf(result, err),
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}, nil
}
