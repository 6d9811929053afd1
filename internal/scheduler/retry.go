package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// retryFailedJobs re-queues every Failed job that still has retry budget
// left and whose backoff has elapsed (spec.md §4.4 "Retry"). A fresh job
// record is minted — Attempt incremented, RetriedFromJob pointing back at
// the failure — rather than mutating the failed record, which is
// terminal and so can never transition again.
func (s *Scheduler) retryFailedJobs(ctx context.Context, records []*core.JobRecord) {
	alreadyRetried := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Metadata.RetriedFromJob != "" {
			alreadyRetried[r.Metadata.RetriedFromJob] = true
		}
	}

	for _, r := range records {
		if r.Status != core.JobFailed || alreadyRetried[r.ID] {
			continue
		}
		if r.Metadata.Attempt >= r.Schedule.Retry.MaxAttempts {
			continue
		}
		if r.FinishedAt != nil {
			backoff := time.Duration(r.Schedule.Retry.BackoffSeconds) * time.Second
			if time.Since(*r.FinishedAt) < backoff {
				continue
			}
		}

		runID, err := s.findRunID(ctx, r.ID)
		if err != nil {
			s.logger.Error("scheduler: could not locate run for retry", "job_id", r.ID, "error", err)
			continue
		}

		attempt := r.Metadata.Attempt + 1
		newJob := core.NewJobRecord(fmt.Sprintf("%s-retry%d", r.ID, attempt), r.Command)
		newJob.Metadata = r.Metadata
		newJob.Metadata.Attempt = attempt
		newJob.Metadata.RetriedFromJob = r.ID
		newJob.Schedule = r.Schedule
		newJob.Schedule.WaitReason = nil

		if _, err := s.store.EnqueueRetryJob(ctx, runID, newJob); err != nil {
			s.logger.Error("scheduler: failed to enqueue retry job", "job_id", r.ID, "error", err)
			continue
		}
		s.logger.Info("scheduler: re-queued failed job", "job_id", r.ID, "retry_job_id", newJob.ID, "attempt", attempt)
	}
}

func (s *Scheduler) findRunID(ctx context.Context, jobID string) (string, error) {
	manifests, err := s.store.ListRunManifests(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range manifests {
		for _, id := range m.JobIDs {
			if id == jobID {
				return m.RunID, nil
			}
		}
	}
	return "", core.ErrNotFound("run for job", jobID)
}
