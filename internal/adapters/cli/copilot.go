package cli

import (
	"context"
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
)

// CopilotAdapter launches the GitHub Copilot CLI as a node's cap.agent.*
// backend. Copilot streams progress via log files rather than JSON stdout
// (see streaming.go's StreamMethodLogFile), which ExecuteWithStreaming
// dispatches to automatically based on StreamConfigs["copilot"].
type CopilotAdapter struct {
	*BaseAdapter
}

// NewCopilotAdapter creates a new Copilot adapter.
func NewCopilotAdapter(cfg AgentConfig) (core.AgentRunner, error) {
	if cfg.Path == "" {
		cfg.Path = "copilot"
	}
	logger := logging.NewNop().With("adapter", "copilot")
	return &CopilotAdapter{BaseAdapter: NewBaseAdapter(cfg, logger)}, nil
}

// Name returns the adapter name.
func (c *CopilotAdapter) Name() string {
	return "copilot"
}

// Ping checks if Copilot CLI is available.
func (c *CopilotAdapter) Ping(ctx context.Context) error {
	if err := c.CheckAvailability(ctx); err != nil {
		return err
	}
	_, err := c.GetVersion(ctx, "--version")
	return err
}

// Launch runs the node's prompt through Copilot CLI in the prepared
// worktree. Copilot CLI has no reasoning-effort or model-select flag in
// non-interactive mode, so both are accepted but not forwarded.
func (c *CopilotAdapter) Launch(ctx context.Context, opts core.AgentLaunchOptions) (*core.AgentResult, error) {
	if opts.EventHandler != nil {
		c.SetEventHandler(opts.EventHandler)
	}
	if len(opts.Env) > 0 {
		c.ExtraEnv = opts.Env
	}

	args := []string{"--allow-all-tools", "--allow-all-paths", "--allow-all-urls", "--silent"}

	result, err := c.ExecuteWithStreaming(ctx, c.Name(), args, opts.Prompt, opts.WorkDir, 0)
	if result == nil {
		return nil, err
	}
	return &core.AgentResult{
		ExitCode: exitCodeOf(result, err),
		Stdout:   cleanANSI(result.Stdout),
		Stderr:   result.Stderr,
	}, nil
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// cleanANSI removes ANSI escape sequences from output.
func cleanANSI(s string) string {
	return strings.TrimSpace(ansiPattern.ReplaceAllString(s, ""))
}
