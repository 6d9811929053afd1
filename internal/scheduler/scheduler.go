// Package scheduler implements the cooperative, single-threaded tick loop
// described in spec.md §4.4: scheduler_tick(project_root, jobs_root,
// binary) -> {launched: [job_id]}. Each tick re-evaluates every
// non-terminal job's blockers in a fixed order and launches the ones that
// clear all five checks as detached child processes; it never waits on a
// child to finish, only inspects its recorded status on the next tick.
package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/lockmgr"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
)

// DefaultTickInterval is the sleep between ticks in follow mode.
const DefaultTickInterval = 120 * time.Millisecond

// Config wires a Scheduler to its dependencies.
type Config struct {
	Store   core.JobStore
	Gateway core.RepoGateway

	// JobsRoot and ProjectRoot locate, respectively, the job store
	// directory and the repository working tree a shell/agent job
	// without a prepared worktree should run in.
	JobsRoot    string
	ProjectRoot string

	// Launcher starts the child process for a launched job. Defaults to
	// NewProcessLauncher(JobsRoot).
	Launcher Launcher

	Logger       *logging.Logger
	TickInterval time.Duration
}

// Scheduler evaluates and launches jobs one tick at a time. It holds no
// long-lived lock table of its own: a fresh lockmgr.Table is built every
// Tick, per spec.md §4.4 step e ("locks are in-memory for the life of a
// tick sequence").
type Scheduler struct {
	store   core.JobStore
	gateway core.RepoGateway

	jobsRoot    string
	projectRoot string

	launcher Launcher
	logger   *logging.Logger

	tickInterval time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// New builds a Scheduler from cfg, applying defaults for anything left
// unset.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	launcher := cfg.Launcher
	if launcher == nil {
		launcher = NewProcessLauncher(cfg.JobsRoot)
	}
	return &Scheduler{
		store:        cfg.Store,
		gateway:      cfg.Gateway,
		jobsRoot:     cfg.JobsRoot,
		projectRoot:  cfg.ProjectRoot,
		launcher:     launcher,
		logger:       logger,
		tickInterval: interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// TickResult is the outcome of one scheduler_tick invocation.
type TickResult struct {
	Launched []string
}

// Tick performs one scheduling pass: enumerate non-terminal jobs in
// creation order, re-evaluate each one's blockers, and launch whichever
// jobs clear all five checks. It returns the IDs of jobs launched this
// pass.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	records, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*core.JobRecord, len(records))
	var pending []*core.JobRecord
	table := lockmgr.NewTable()
	for _, r := range records {
		byID[r.ID] = r
		if r.Status == core.JobRunning {
			table.Seed(r.ID, r.Schedule.Locks)
		}
		if !r.Status.IsTerminal() {
			pending = append(pending, r)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	s.retryFailedJobs(ctx, records)

	result := &TickResult{}
	for _, job := range pending {
		launched, err := s.evaluateAndAdvance(ctx, job, byID, table)
		if err != nil {
			s.logger.Error("scheduler: tick step failed", "job_id", job.ID, "error", err)
			continue
		}
		if launched {
			result.Launched = append(result.Launched, job.ID)
		}
	}
	return result, nil
}

// evaluateAndAdvance runs the five checks for one job and, on a full
// pass, launches it. On a blocker it persists the job's new status (and,
// for non-terminal waits, the reason) via the job store.
func (s *Scheduler) evaluateAndAdvance(ctx context.Context, job *core.JobRecord, byID map[string]*core.JobRecord, table *lockmgr.Table) (bool, error) {
	outcome := s.evaluate(ctx, job, byID, table)

	switch outcome.action {
	case actionLaunch:
		return s.launch(ctx, job)
	case actionWait, actionBlock:
		status := outcome.waitStatus
		if outcome.action == actionBlock {
			status = outcome.blockedStatus
		}
		_, err := s.store.UpdateJobRecord(ctx, job.ID, func(r *core.JobRecord) error {
			if err := r.Transition(status); err != nil {
				return err
			}
			r.Schedule.WaitReason = outcome.reason
			return nil
		})
		return false, err
	case actionNone:
		return false, nil
	}
	return false, nil
}

func (s *Scheduler) launch(ctx context.Context, job *core.JobRecord) (bool, error) {
	updated, err := s.store.UpdateJobRecord(ctx, job.ID, func(r *core.JobRecord) error {
		return r.Transition(core.JobRunning)
	})
	if err != nil {
		return false, err
	}

	cwd := s.projectRoot
	if updated.Metadata.WorktreePath != "" {
		cwd = updated.Metadata.WorktreePath
	}
	pid, err := s.launcher.Launch(ctx, updated, cwd)
	if err != nil {
		s.logger.Error("scheduler: failed to launch job", "job_id", job.ID, "error", err)
		_ = s.store.FinalizeJob(ctx, job.ID, core.JobFailed, 1, "", map[string]string{})
		return false, nil
	}

	now := time.Now()
	_, err = s.store.UpdateJobRecord(ctx, job.ID, func(r *core.JobRecord) error {
		r.PID = &pid
		r.StartedAt = &now
		return nil
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("scheduler: launched job", "job_id", job.ID, "pid", pid)
	return true, nil
}

// Run starts the follow-mode tick loop: it calls Tick on every interval
// until the context is cancelled or Stop is called. It blocks until the
// loop exits.
func (s *Scheduler) Run(ctx context.Context) error {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler: tick failed", "error", err)
			}
		}
	}
}

// Stop signals Run to exit and waits for it to do so.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
