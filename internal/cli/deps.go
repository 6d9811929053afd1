// Package cli wires the engine packages (internal/config, internal/repo,
// internal/jobstore, internal/scheduler, internal/executor,
// internal/template, internal/release) into the handlers cmd/vizier's
// cobra commands call. It is the composition root: the only place that
// knows how to build a core.RepoGateway, core.JobStore, and
// core.AgentRunner from a loaded config.Config.
package cli

import (
	"context"
	"time"

	agentcli "github.com/hugo-lorenzo-mato/quorum-ai/internal/adapters/cli"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/jobstore"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/repo"
)

// Deps is everything a CLI handler needs: the resolved config, a logger,
// and the three ports (RepoGateway, JobStore, AgentRunner) built from it.
type Deps struct {
	Config      *config.Config
	Logger      *logging.Logger
	ProjectRoot string
	JobsRoot    string

	Gateway core.RepoGateway
	Store   core.JobStore
	Agent   core.AgentRunner
}

// NewDeps builds a Deps from a loaded config rooted at projectRoot. It
// wires the job store's WorktreeRemover back to the same gateway instance
// used everywhere else, so `jobs cancel`'s cleanup path tears down
// worktrees through the identical git binary the rest of the run used.
func NewDeps(cfg *config.Config, projectRoot string) (*Deps, error) {
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	timeout, err := time.ParseDuration(cfg.Git.CommandTimeout)
	if err != nil || timeout <= 0 {
		timeout = 2 * time.Minute
	}
	gateway, err := repo.NewClient(projectRoot, timeout)
	if err != nil {
		return nil, err
	}

	store, err := jobstore.NewJobStoreWithOptions(cfg.Jobs.Backend, cfg.Jobs.Root, jobstore.Options{
		WorktreeRemover: func(ctx context.Context, name string) error {
			return gateway.RemoveWorktree(ctx, name, true)
		},
	})
	if err != nil {
		return nil, err
	}

	agent, err := agentcli.NewRunnerFromConfig(cfg.Agents)
	if err != nil {
		return nil, err
	}

	return &Deps{
		Config:      cfg,
		Logger:      logger,
		ProjectRoot: projectRoot,
		JobsRoot:    cfg.Jobs.Root,
		Gateway:     gateway,
		Store:       store,
		Agent:       agent,
	}, nil
}
