package scheduler

import (
	"context"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/jobstore"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/lockmgr"
)

type action int

const (
	actionNone action = iota
	actionLaunch
	actionWait
	actionBlock
)

type checkOutcome struct {
	action        action
	waitStatus    core.JobStatus
	blockedStatus core.JobStatus
	reason        *core.WaitReason
}

func waiting(kind core.WaitReasonKind, detail string, status core.JobStatus) checkOutcome {
	return checkOutcome{action: actionWait, waitStatus: status, reason: &core.WaitReason{Kind: kind, Detail: detail}}
}

func blocked(kind core.WaitReasonKind, detail string, status core.JobStatus) checkOutcome {
	return checkOutcome{action: actionBlock, blockedStatus: status, reason: &core.WaitReason{Kind: kind, Detail: detail}}
}

// evaluate runs the five-step blocker check from spec.md §4.4 against one
// job. byID indexes every job record in the store (terminal and not) so
// dependency and artifact-producer lookups can see the whole run.
func (s *Scheduler) evaluate(ctx context.Context, job *core.JobRecord, byID map[string]*core.JobRecord, table *lockmgr.Table) checkOutcome {
	if outcome, ok := s.checkDependencies(job, byID); ok {
		return outcome
	}
	if outcome, ok := s.checkArtifacts(job, byID); ok {
		return outcome
	}
	if outcome, ok := s.checkApproval(job); ok {
		return outcome
	}
	if outcome, ok := s.checkPinnedHead(ctx, job); ok {
		return outcome
	}
	if outcome, ok := s.checkLocks(job, table); ok {
		return outcome
	}
	return checkOutcome{action: actionLaunch}
}

// checkDependencies is step (a): schedule.after against each predecessor's
// current terminal status and policy.
func (s *Scheduler) checkDependencies(job *core.JobRecord, byID map[string]*core.JobRecord) (checkOutcome, bool) {
	for _, dep := range job.Schedule.After {
		predecessor, ok := byID[dep.JobID]
		if !ok {
			return blocked(core.WaitReasonDependencyMissing, "predecessor job "+dep.JobID+" not found", core.JobBlockedByDependency), true
		}
		if !predecessor.Status.IsTerminal() {
			return waiting(core.WaitReasonDependencyMissing, "waiting on predecessor "+dep.JobID, core.JobWaitingOnDeps), true
		}
		switch dep.Policy {
		case core.PolicySuccess:
			if predecessor.Status != core.JobSucceeded {
				return blocked(core.WaitReasonDependencyMissing, "predecessor "+dep.JobID+" did not succeed", core.JobBlockedByDependency), true
			}
		case core.PolicyFailure:
			if predecessor.Status != core.JobFailed {
				return blocked(core.WaitReasonDependencyMissing, "predecessor "+dep.JobID+" did not fail", core.JobBlockedByDependency), true
			}
		case core.PolicyAny:
			// Any terminal status satisfies this policy.
		}
	}
	return checkOutcome{}, false
}

// checkArtifacts is step (b): schedule.dependencies against marker-file
// existence, distinguishing "still-pending producer" from "no producer
// queued at all" by scanning every job's expected Schedule.Artifacts.
func (s *Scheduler) checkArtifacts(job *core.JobRecord, byID map[string]*core.JobRecord) (checkOutcome, bool) {
	for _, need := range job.Schedule.Dependencies {
		exists, err := jobstore.ArtifactMarkerExists(s.jobsRoot, need.Artifact)
		if err != nil {
			return blocked(core.WaitReasonDependencyMissing, "artifact check failed: "+err.Error(), core.JobBlockedByDependency), true
		}
		if exists {
			continue
		}
		if hasPendingProducer(need.Artifact, byID) {
			return waiting(core.WaitReasonDependencyMissing, "waiting on artifact "+need.Artifact.ID(), core.JobWaitingOnDeps), true
		}
		return blocked(core.WaitReasonDependencyMissing, "no producer queued for artifact "+need.Artifact.ID(), core.JobBlockedByDependency), true
	}
	return checkOutcome{}, false
}

func hasPendingProducer(artifact core.Artifact, byID map[string]*core.JobRecord) bool {
	for _, candidate := range byID {
		if candidate.Status.IsTerminal() && candidate.Status != core.JobSucceeded {
			continue
		}
		for _, produced := range candidate.Schedule.Artifacts {
			if produced.ID() == artifact.ID() {
				return true
			}
		}
	}
	return false
}

// checkApproval is step (c).
func (s *Scheduler) checkApproval(job *core.JobRecord) (checkOutcome, bool) {
	if !job.Schedule.Approval.Required {
		return checkOutcome{}, false
	}
	switch job.Schedule.Approval.State {
	case core.ApprovalRejected:
		return blocked(core.WaitReasonApprovalPending, "approval rejected", core.JobBlockedByApproval), true
	case core.ApprovalApproved:
		return checkOutcome{}, false
	default:
		return waiting(core.WaitReasonApprovalPending, "awaiting manual approval", core.JobWaitingOnApproval), true
	}
}

// checkPinnedHead is step (d): not terminal even when it blocks, since an
// upstream job may still land the expected commit.
func (s *Scheduler) checkPinnedHead(ctx context.Context, job *core.JobRecord) (checkOutcome, bool) {
	pinned := job.Schedule.PinnedHead
	if pinned == nil || pinned.Branch == "" {
		return checkOutcome{}, false
	}
	if s.gateway == nil {
		return checkOutcome{}, false
	}
	exists, err := s.gateway.BranchExists(ctx, pinned.Branch)
	if err != nil {
		return waiting(core.WaitReasonPinnedHeadDrift, "pinned head check failed: "+err.Error(), core.JobWaitingOnDeps), true
	}
	if !exists {
		return waiting(core.WaitReasonPinnedHeadDrift, "pinned branch "+pinned.Branch+" does not exist", core.JobWaitingOnDeps), true
	}
	head, err := s.gateway.BranchHead(ctx, pinned.Branch)
	if err != nil {
		return waiting(core.WaitReasonPinnedHeadDrift, "pinned head check failed: "+err.Error(), core.JobWaitingOnDeps), true
	}
	if head != pinned.OID {
		return waiting(core.WaitReasonPinnedHeadDrift, "pinned head drift", core.JobWaitingOnDeps), true
	}
	return checkOutcome{}, false
}

// checkLocks is step (e).
func (s *Scheduler) checkLocks(job *core.JobRecord, table *lockmgr.Table) (checkOutcome, bool) {
	if len(job.Schedule.Locks) == 0 {
		return checkOutcome{}, false
	}
	ok, key := table.TryAcquire(job.ID, job.Schedule.Locks)
	if !ok {
		return waiting(core.WaitReasonLockBusy, "lock busy: "+key, core.JobWaitingOnLocks), true
	}
	return checkOutcome{}, false
}
