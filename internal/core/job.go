package core

import (
	"fmt"
	"time"
)

// JobStatus is a value in the scheduler's finite state machine (spec.md §4.4).
type JobStatus string

const (
	JobQueued              JobStatus = "queued"
	JobWaitingOnDeps       JobStatus = "waiting_on_deps"
	JobWaitingOnApproval   JobStatus = "waiting_on_approval"
	JobWaitingOnLocks      JobStatus = "waiting_on_locks"
	JobRunning             JobStatus = "running"
	JobSucceeded           JobStatus = "succeeded"
	JobFailed              JobStatus = "failed"
	JobCancelled           JobStatus = "cancelled"
	JobBlockedByDependency JobStatus = "blocked_by_dependency"
	JobBlockedByApproval   JobStatus = "blocked_by_approval"
)

// IsTerminal reports whether status is a terminal state the job never
// leaves (spec.md §4.4).
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCancelled, JobBlockedByDependency, JobBlockedByApproval:
		return true
	default:
		return false
	}
}

// jobStatusRank orders statuses for the monotonic-advance invariant
// (spec.md §3, Job record invariants). Terminal states share the highest
// rank since the FSM never transitions between them.
var jobStatusRank = map[JobStatus]int{
	JobQueued:              0,
	JobWaitingOnDeps:       1,
	JobWaitingOnApproval:   1,
	JobWaitingOnLocks:      1,
	JobRunning:             2,
	JobSucceeded:           3,
	JobFailed:              3,
	JobCancelled:           3,
	JobBlockedByDependency: 3,
	JobBlockedByApproval:   3,
}

// CanTransition reports whether moving from 'from' to 'to' respects the
// monotonic-advance invariant: rank must not decrease, and a terminal
// status can never be left.
func CanTransition(from, to JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	return jobStatusRank[to] >= jobStatusRank[from]
}

// PinnedHead is the exact (branch, oid) a job expects at launch time.
type PinnedHead struct {
	Branch string `json:"branch"`
	OID    string `json:"oid"`
}

// ApprovalState is the lifecycle of a manual gate on a job.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// Approval tracks whether a job requires, and has received, sign-off.
type Approval struct {
	Required bool          `json:"required"`
	State    ApprovalState `json:"state"`
}

// AfterDependency is a cross-job ordering constraint.
type AfterDependency struct {
	JobID  string           `json:"job_id"`
	Policy DependencyPolicy `json:"policy"`
}

// WaitReasonKind classifies why the scheduler declined to launch a job on
// its most recent tick.
type WaitReasonKind string

const (
	WaitReasonDependencyMissing WaitReasonKind = "dependency_missing"
	WaitReasonApprovalPending   WaitReasonKind = "approval_pending"
	WaitReasonLockBusy          WaitReasonKind = "lock_busy"
	WaitReasonPinnedHeadDrift   WaitReasonKind = "pinned_head_drift"
)

// WaitReason records the most recent reason a job is not yet running.
type WaitReason struct {
	Kind   WaitReasonKind `json:"kind"`
	Detail string         `json:"detail,omitempty"`
}

// Schedule holds everything the scheduler needs to evaluate and launch a job.
type Schedule struct {
	After        []AfterDependency `json:"after"`
	Dependencies []NeedDescriptor  `json:"dependencies"`
	// Artifacts lists what this job is expected to produce on success, so
	// the scheduler can tell a merely-pending producer apart from one
	// that was never queued at all when checking a sibling's Dependencies.
	Artifacts  []Artifact  `json:"artifacts"`
	Locks      []Lock      `json:"locks"`
	WaitReason *WaitReason `json:"wait_reason,omitempty"`
	PinnedHead *PinnedHead `json:"pinned_head,omitempty"`
	Approval   Approval    `json:"approval"`
	// Retry mirrors the originating node's retry policy so the scheduler
	// can re-queue a failed job without holding a reference to the
	// template it was minted from.
	Retry RetryPolicy `json:"retry"`
}

// CancelCleanupStatus records the outcome of removing an orphaned worktree
// on cancellation.
type CancelCleanupStatus string

const (
	CancelCleanupSucceeded CancelCleanupStatus = "succeeded"
	CancelCleanupFailed    CancelCleanupStatus = "failed"
	CancelCleanupSkipped   CancelCleanupStatus = "skipped"
)

// JobMetadata is the free-form bag of scope/plan/branch/agent bookkeeping
// attached to a job record (spec.md §6).
type JobMetadata struct {
	Scope             string   `json:"scope,omitempty"`
	Plan              string   `json:"plan,omitempty"`
	Branch            string   `json:"branch,omitempty"`
	Target            string   `json:"target,omitempty"`
	Revision          string   `json:"revision,omitempty"`
	WorktreeName      string   `json:"worktree_name,omitempty"`
	WorktreePath      string   `json:"worktree_path,omitempty"`
	AgentSelector     string   `json:"agent_selector,omitempty"`
	AgentBackend      string   `json:"agent_backend,omitempty"`
	AgentLabel        string   `json:"agent_label,omitempty"`
	AgentCommand      []string `json:"agent_command,omitempty"`
	AgentExitCode     *int     `json:"agent_exit_code,omitempty"`
	CancelCleanupStatus CancelCleanupStatus `json:"cancel_cleanup_status,omitempty"`
	CancelCleanupError  string              `json:"cancel_cleanup_error,omitempty"`
	// Attempt is the 1-indexed retry attempt counter. Retries mint a new
	// job record (DESIGN.md open-question decision) rather than mutating
	// this one, but the new record carries the incremented attempt number
	// and a pointer back to its predecessor.
	Attempt         int    `json:"attempt,omitempty"`
	RetriedFromJob  string `json:"retried_from_job,omitempty"`
	NodeID          string `json:"node_id,omitempty"`
}

// JobRecord is the mutable, persisted unit of scheduled work (spec.md §3).
type JobRecord struct {
	ID      string    `json:"id"`
	Status  JobStatus `json:"status"`
	Command []string  `json:"command"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	PID      *int `json:"pid,omitempty"`
	ExitCode *int `json:"exit_code,omitempty"`

	StdoutPath     string `json:"stdout_path"`
	StderrPath     string `json:"stderr_path"`
	SessionPath    string `json:"session_path,omitempty"`
	OutcomePath    string `json:"outcome_path,omitempty"`
	CommandPatch   string `json:"command_patch,omitempty"`
	SaveInputPatch string `json:"save_input_patch,omitempty"`

	Metadata JobMetadata `json:"metadata"`

	// ConfigSnapshot is opaque JSON captured at enqueue time so a job can
	// be replayed deterministically even if the live config later changes.
	ConfigSnapshot []byte `json:"config_snapshot,omitempty"`

	Schedule Schedule `json:"schedule"`
}

// NewJobRecord builds a job record in its initial Queued state.
func NewJobRecord(id string, command []string) *JobRecord {
	return &JobRecord{
		ID:         id,
		Status:     JobQueued,
		Command:    command,
		CreatedAt:  time.Now(),
		StdoutPath: fmt.Sprintf("%s/stdout.log", id),
		StderrPath: fmt.Sprintf("%s/stderr.log", id),
	}
}

// Transition moves the job to a new status, enforcing the monotonic-advance
// invariant.
func (j *JobRecord) Transition(to JobStatus) error {
	if !CanTransition(j.Status, to) {
		return ErrState("INVALID_TRANSITION", fmt.Sprintf("cannot transition job %s from %s to %s", j.ID, j.Status, to))
	}
	j.Status = to
	return nil
}

// Validate checks the job record invariants from spec.md §3.
func (j *JobRecord) Validate() error {
	if j.ID == "" {
		return ErrValidation("JOB_ID_REQUIRED", "job id cannot be empty")
	}
	if j.Status == JobSucceeded {
		if j.FinishedAt == nil {
			return ErrState("JOB_SUCCEEDED_MISSING_FINISHED_AT", fmt.Sprintf("job %s is succeeded without finished_at", j.ID))
		}
		if j.ExitCode == nil || *j.ExitCode != 0 {
			return ErrState("JOB_SUCCEEDED_BAD_EXIT_CODE", fmt.Sprintf("job %s is succeeded with non-zero exit code", j.ID))
		}
	}
	return nil
}

// IsTerminal reports whether the job has reached a terminal status.
func (j *JobRecord) IsTerminal() bool {
	return j.Status.IsTerminal()
}
