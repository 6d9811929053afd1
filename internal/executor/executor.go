// Package executor implements the capability executors of spec.md §4.5.
// Every `uses` value a workflow node can name maps to exactly one
// Executor, all sharing the same external contract: inputs are a job
// record and its node's args; outputs are an exit code, captured stdio,
// a metadata delta to merge into the job record, and any artifact
// markers the run produced.
package executor

import (
	"context"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/repo"
)

// Result is what every capability executor returns.
type Result struct {
	ExitCode      int
	Stdout        string
	Stderr        string
	MetadataDelta map[string]string
	Artifacts     []core.Artifact
}

// Executor runs one capability against a job/node pair.
type Executor interface {
	Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error)
}

// Deps wires the capability executors to the rest of the system.
type Deps struct {
	Gateway     core.RepoGateway
	Agent       core.AgentRunner
	JobsRoot    string
	ProjectRoot string
	// Shell is the configured shell binary cap.env.shell.command.run and
	// cap.review.checks invoke scripts with. Defaults to "/bin/sh".
	Shell  string
	Logger *logging.Logger
	// GatewayFor opens a RepoGateway rooted at an arbitrary worktree path,
	// used by the worktree-apply pipeline to diff/commit inside the temp
	// worktree it creates. Defaults to repo.NewClient.
	GatewayFor func(path string) (core.RepoGateway, error)
}

func (d Deps) logger() *logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.NewNop()
}

func (d Deps) shell() string {
	if d.Shell != "" {
		return d.Shell
	}
	return "/bin/sh"
}

func (d Deps) gatewayFor(path string) (core.RepoGateway, error) {
	if d.GatewayFor != nil {
		return d.GatewayFor(path)
	}
	return repo.NewClient(path, 2*time.Minute)
}

// Registry dispatches a `uses` selector to its Executor, mirroring the
// exact-then-prefix matching internal/template uses to validate entrypoint
// args (spec.md §4.2 step 6).
type Registry struct {
	exact map[string]Executor
	agent Executor
	merge Executor
}

// NewRegistry builds the fixed capability vocabulary from spec.md §4.5.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		exact: map[string]Executor{
			"cap.env.shell.command.run":        &shellExecutor{deps: deps},
			"cap.env.builtin.worktree.prepare": &worktreePrepareExecutor{deps: deps},
			"cap.env.builtin.plan.persist":     &planPersistExecutor{deps: deps},
			"cap.review.checks":                &reviewChecksExecutor{deps: deps},
			"cap.cicd.gate":                    &cicdGateExecutor{deps: deps},
			"cap.save":                         &saveExecutor{deps: deps},
		},
		agent: &agentExecutor{deps: deps},
		merge: &mergeExecutor{deps: deps},
	}
}

// Dispatch resolves uses to its Executor, or (nil, false) if unknown.
func (r *Registry) Dispatch(uses string) (Executor, bool) {
	if e, ok := r.exact[uses]; ok {
		return e, true
	}
	switch {
	case strings.HasPrefix(uses, "cap.agent."):
		return r.agent, true
	case strings.HasPrefix(uses, "cap.merge."):
		return r.merge, true
	default:
		return nil, false
	}
}

// Execute resolves and runs the executor for node.Uses.
func (r *Registry) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	executor, ok := r.Dispatch(node.Uses)
	if !ok {
		return nil, core.ErrValidation("UNKNOWN_CAPABILITY", "no executor registered for "+node.Uses)
	}
	return executor.Execute(ctx, job, node)
}
