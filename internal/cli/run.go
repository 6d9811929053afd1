package cli

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/scheduler"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/template"
)

// RunOptions is the parsed form of `vizier run <flow> ...` (spec.md §6).
type RunOptions struct {
	Flow       string
	Positional []string
	SetValues  []string

	// ExtraAfter comes from repeated --after <job_id>:<policy> flags. Each
	// entry is attached to every entrypoint job of this run (the nodes
	// template.Node.HasNoPredecessors reports true for), letting a caller
	// sequence this run after a job from an earlier, unrelated run.
	ExtraAfter []core.AfterDependency

	// RequireApproval overrides every node's approval_required for this
	// run when non-nil: true forces a manual gate even on nodes that
	// don't declare one, false waives a node's declared gate. Nil defers
	// to each node's own ApprovalRequired.
	RequireApproval *bool

	Follow bool
	Format string
}

// RunOutput is what `vizier run` reports, rendered as text or JSON.
type RunOutput struct {
	RunID           string            `json:"run_id"`
	TemplateID      string            `json:"workflow_template_id"`
	TemplateVersion string            `json:"workflow_template_version"`
	Selector        string            `json:"workflow_template_selector"`
	JobIDs          []string          `json:"job_ids"`
	NodeIDToJobID   map[string]string `json:"node_id_to_job_id"`

	// Followed is set when --follow was used: the run ran to completion
	// before this returned.
	Followed bool              `json:"followed"`
	Statuses map[string]string `json:"statuses,omitempty"`
}

// EnqueueRun runs the full spec.md §4.2 preflight pipeline and then
// spec.md §4.3's enqueue_workflow_run minting algorithm: one JobRecord per
// template node, wired to a self-invoking `job-exec` command so the
// scheduler's ProcessLauncher can launch each node as its own child
// process.
func EnqueueRun(ctx context.Context, deps *Deps, opts RunOptions) (*RunOutput, error) {
	prepared, err := template.PrepareWorkflowTemplate(deps.ProjectRoot, opts.Flow, opts.Positional, opts.SetValues, deps.Config)
	if err != nil {
		return nil, usageErrorFromPrepare(err)
	}

	execPath, err := os.Executable()
	if err != nil {
		return nil, core.ErrExecution("EXECUTABLE_PATH_UNAVAILABLE", err.Error()).WithCause(err)
	}

	var pinned *core.PinnedHead
	if branch, err := deps.Gateway.CurrentBranch(ctx); err == nil && branch != "" {
		if oid, err := deps.Gateway.BranchHead(ctx, branch); err == nil {
			pinned = &core.PinnedHead{Branch: branch, OID: oid}
		}
	}

	tpl := &prepared.Template
	incomingOnSucceeded := tpl.IncomingOnSucceeded()

	jobIDByNode := make(map[string]string, len(tpl.Nodes))
	for _, node := range tpl.Nodes {
		jobIDByNode[node.ID] = "job-" + uuid.New().String()
	}

	after := make(map[string][]core.AfterDependency, len(tpl.Nodes))
	for _, node := range tpl.Nodes {
		for _, predNodeID := range node.After {
			after[node.ID] = append(after[node.ID], core.AfterDependency{
				JobID: jobIDByNode[predNodeID], Policy: core.PolicyAny,
			})
		}
	}
	for _, node := range tpl.Nodes {
		for _, targetNodeID := range node.OnSucceeded {
			after[targetNodeID] = append(after[targetNodeID], core.AfterDependency{
				JobID: jobIDByNode[node.ID], Policy: core.PolicySuccess,
			})
		}
		for _, targetNodeID := range node.OnFailed {
			after[targetNodeID] = append(after[targetNodeID], core.AfterDependency{
				JobID: jobIDByNode[node.ID], Policy: core.PolicyFailure,
			})
		}
	}
	if len(opts.ExtraAfter) > 0 {
		for _, node := range tpl.Nodes {
			if node.HasNoPredecessors(incomingOnSucceeded) {
				after[node.ID] = append(after[node.ID], opts.ExtraAfter...)
			}
		}
	}

	jobs := make(map[string]*core.JobRecord, len(tpl.Nodes))
	for _, node := range tpl.Nodes {
		jobID := jobIDByNode[node.ID]
		nodeJSON, err := json.Marshal(node)
		if err != nil {
			return nil, core.ErrExecution("NODE_ENCODE_FAILED", err.Error()).WithCause(err)
		}
		command := []string{
			execPath, "job-exec",
			"--node-json", string(nodeJSON),
			"--jobs-root", deps.JobsRoot,
			"--project-root", deps.ProjectRoot,
		}

		required := node.ApprovalRequired
		if opts.RequireApproval != nil {
			required = *opts.RequireApproval
		}

		job := core.NewJobRecord(jobID, command)
		job.Metadata.NodeID = node.ID
		job.Metadata.Attempt = 1
		if pinned != nil {
			job.Metadata.Branch = pinned.Branch
		}
		job.Schedule = core.Schedule{
			After:        after[node.ID],
			Dependencies: node.Needs,
			Artifacts:    node.Produces[core.OutcomeSucceeded],
			Locks:        prepared.NodeLocks[node.ID],
			PinnedHead:   pinned,
			Approval:     core.Approval{Required: required},
			Retry:        node.Retry,
		}
		jobs[node.ID] = job
	}

	manifest, err := deps.Store.EnqueueWorkflowRun(ctx, "run-"+uuid.New().String(), tpl, prepared.Source.Selector, nil, jobs)
	if err != nil {
		return nil, err
	}

	out := &RunOutput{
		RunID:           manifest.RunID,
		TemplateID:      manifest.TemplateID,
		TemplateVersion: manifest.TemplateVersion,
		Selector:        manifest.Selector,
		JobIDs:          manifest.JobIDs,
		NodeIDToJobID:   manifest.NodeIDToJobID,
	}

	if !opts.Follow {
		sched := scheduler.New(scheduler.Config{
			Store: deps.Store, Gateway: deps.Gateway,
			JobsRoot: deps.JobsRoot, ProjectRoot: deps.ProjectRoot, Logger: deps.Logger,
		})
		if _, err := sched.Tick(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}

	statuses, err := followUntilTerminal(ctx, deps, out.JobIDs)
	if err != nil {
		return nil, err
	}
	out.Followed = true
	out.Statuses = statuses

	for _, status := range statuses {
		if status == string(core.JobBlockedByDependency) || status == string(core.JobBlockedByApproval) {
			return out, &BlockedError{Message: "run " + out.RunID + " settled with a blocked job"}
		}
	}
	return out, nil
}

// followUntilTerminal ticks the scheduler at its configured interval until
// every job id in jobIDs has reached a terminal status, then returns each
// job's final status keyed by id.
func followUntilTerminal(ctx context.Context, deps *Deps, jobIDs []string) (map[string]string, error) {
	interval := scheduler.DefaultTickInterval
	if ms := deps.Config.Jobs.TickIntervalMS; ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}
	sched := scheduler.New(scheduler.Config{
		Store: deps.Store, Gateway: deps.Gateway,
		JobsRoot: deps.JobsRoot, ProjectRoot: deps.ProjectRoot, Logger: deps.Logger,
		TickInterval: interval,
	})

	for {
		if _, err := sched.Tick(ctx); err != nil {
			return nil, err
		}

		statuses := make(map[string]string, len(jobIDs))
		allTerminal := true
		for _, id := range jobIDs {
			record, err := deps.Store.ReadRecord(ctx, id)
			if err != nil {
				return nil, err
			}
			statuses[id] = string(record.Status)
			if !record.Status.IsTerminal() {
				allTerminal = false
			}
		}
		if allTerminal {
			return statuses, nil
		}

		select {
		case <-ctx.Done():
			return statuses, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// usageErrorFromPrepare wraps a preflight validation error with the
// spec.md §7 usage/example/hint block user/input errors get.
func usageErrorFromPrepare(err error) error {
	domainErr, ok := err.(*core.DomainError)
	if !ok || domainErr.Category != core.ErrCatValidation {
		return err
	}
	return NewUsageError(domainErr,
		"vizier run <flow> [positional...] [--set KEY=VALUE]... [--<alias> VALUE]...",
		"vizier run draft my-feature --set scope=backend",
		"run `vizier audit "+"<flow>"+"` to see a template's declared parameters without enqueuing anything",
	)
}

// sortedJobIDs is a small helper used by handlers that need a stable
// iteration order over a statuses map.
func sortedJobIDs(statuses map[string]string) []string {
	ids := make([]string, 0, len(statuses))
	for id := range statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
