package jobstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/fsutil"
)

// JSONJobStore is the default core.JobStore backend: the literal on-disk
// layout from spec.md §4.3, one directory per job plus a runs/ manifest
// directory and an artifacts/ marker tree. Every mutation is a full-file
// atomic rewrite (fsutil.AtomicWriteFile), so a crash mid-write never
// leaves a torn job.json behind.
type JSONJobStore struct {
	jobsRoot        string
	worktreeRemover WorktreeRemover

	// mu serializes read-modify-write sequences (UpdateJobRecord,
	// FinalizeJob, CancelJobWithCleanup) against each other. The directory
	// layout gives every job its own file, so this need not be sharded
	// per-job; job stores are not expected to be hot enough to need that.
	mu sync.Mutex
}

// JSONJobStoreOption configures a JSONJobStore.
type JSONJobStoreOption func(*JSONJobStore)

// WithWorktreeRemover wires a WorktreeRemover into CancelJobWithCleanup.
func WithWorktreeRemover(remover WorktreeRemover) JSONJobStoreOption {
	return func(s *JSONJobStore) { s.worktreeRemover = remover }
}

// NewJSONJobStore creates the jobsRoot layout (runs/, artifacts/) if absent
// and returns a ready store.
func NewJSONJobStore(jobsRoot string, opts ...JSONJobStoreOption) (*JSONJobStore, error) {
	s := &JSONJobStore{jobsRoot: jobsRoot}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(jobsRoot, 0o755); err != nil {
		return nil, core.ErrExecution("JOBSTORE_INIT_FAILED", err.Error()).WithCause(err)
	}
	if err := os.MkdirAll(runsDir(jobsRoot), 0o755); err != nil {
		return nil, core.ErrExecution("JOBSTORE_INIT_FAILED", err.Error()).WithCause(err)
	}
	if err := os.MkdirAll(artifactsDir(jobsRoot), 0o755); err != nil {
		return nil, core.ErrExecution("JOBSTORE_INIT_FAILED", err.Error()).WithCause(err)
	}
	return s, nil
}

func (s *JSONJobStore) writeJobRecord(record *core.JobRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return core.ErrExecution("JOB_RECORD_ENCODE_FAILED", err.Error()).WithCause(err)
	}
	dir := jobDir(s.jobsRoot, record.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.ErrExecution("JOB_RECORD_DIR_FAILED", err.Error()).WithCause(err)
	}
	if err := fsutil.AtomicWriteFile(jobRecordPath(s.jobsRoot, record.ID), data, 0o644); err != nil {
		return core.ErrExecution("JOB_RECORD_WRITE_FAILED", err.Error()).WithCause(err)
	}
	return nil
}

func (s *JSONJobStore) readJobRecord(jobID string) (*core.JobRecord, error) {
	data, err := fsutil.ReadFileScoped(jobRecordPath(s.jobsRoot, jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNotFound("job", jobID)
		}
		return nil, core.ErrExecution("JOB_RECORD_READ_FAILED", err.Error()).WithCause(err)
	}
	var record core.JobRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, core.ErrState("JOB_RECORD_CORRUPT", "job "+jobID+": "+err.Error()).WithCause(err)
	}
	return &record, nil
}

// EnqueueWorkflowRun writes every job.json (one per template node) and then
// the run manifest, which is the commit point (spec.md §4.3): a crash
// between the two leaves orphaned job directories but no run manifest
// referencing them, so a reader never observes a half-minted run.
func (s *JSONJobStore) EnqueueWorkflowRun(ctx context.Context, runID string, tmpl *core.WorkflowTemplate, selector string, argv []string, jobs map[string]*core.JobRecord) (*core.RunManifest, error) {
	if tmpl == nil {
		return nil, core.ErrValidation("TEMPLATE_REQUIRED", "enqueue requires a resolved template")
	}
	if len(jobs) == 0 {
		return nil, core.ErrValidation("JOBS_REQUIRED", "enqueue requires at least one job record")
	}

	jobIDs := make([]string, 0, len(tmpl.Nodes))
	nodeIDToJobID := make(map[string]string, len(tmpl.Nodes))
	for _, node := range tmpl.Nodes {
		job, ok := jobs[node.ID]
		if !ok {
			return nil, core.ErrValidation("JOB_MISSING_FOR_NODE", "no job record supplied for node "+node.ID)
		}
		if len(job.Command) == 0 {
			job.Command = argv
		}
		if err := s.writeJobRecord(job); err != nil {
			return nil, err
		}
		jobIDs = append(jobIDs, job.ID)
		nodeIDToJobID[node.ID] = job.ID
	}

	manifest := &core.RunManifest{
		RunID:           runID,
		TemplateID:      tmpl.ID,
		TemplateVersion: tmpl.Version,
		Selector:        selector,
		JobIDs:          jobIDs,
		NodeIDToJobID:   nodeIDToJobID,
		EnqueuedAt:      time.Now(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, core.ErrExecution("RUN_MANIFEST_ENCODE_FAILED", err.Error()).WithCause(err)
	}
	if err := fsutil.AtomicWriteFile(runManifestPath(s.jobsRoot, runID), data, 0o644); err != nil {
		return nil, core.ErrExecution("RUN_MANIFEST_WRITE_FAILED", err.Error()).WithCause(err)
	}
	return manifest, nil
}

func (s *JSONJobStore) EnqueueRetryJob(ctx context.Context, runID string, job *core.JobRecord) (*core.RunManifest, error) {
	if job == nil || job.Metadata.NodeID == "" {
		return nil, core.ErrValidation("RETRY_JOB_INVALID", "retry job requires a node id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, err := s.ReadRunManifest(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := s.writeJobRecord(job); err != nil {
		return nil, err
	}
	manifest.JobIDs = append(manifest.JobIDs, job.ID)
	manifest.NodeIDToJobID[job.Metadata.NodeID] = job.ID

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, core.ErrExecution("RUN_MANIFEST_ENCODE_FAILED", err.Error()).WithCause(err)
	}
	if err := fsutil.AtomicWriteFile(runManifestPath(s.jobsRoot, runID), data, 0o644); err != nil {
		return nil, core.ErrExecution("RUN_MANIFEST_WRITE_FAILED", err.Error()).WithCause(err)
	}
	return manifest, nil
}

func (s *JSONJobStore) ReadRecord(ctx context.Context, jobID string) (*core.JobRecord, error) {
	return s.readJobRecord(jobID)
}

func (s *JSONJobStore) ListRecords(ctx context.Context) ([]*core.JobRecord, error) {
	entries, err := os.ReadDir(s.jobsRoot)
	if err != nil {
		return nil, core.ErrExecution("JOBSTORE_LIST_FAILED", err.Error()).WithCause(err)
	}

	records := make([]*core.JobRecord, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == runsDirName || entry.Name() == artifactsDirName {
			continue
		}
		record, err := s.readJobRecord(entry.Name())
		if err != nil {
			if core.IsCategory(err, core.ErrCatNotFound) {
				continue // job directory exists without a job.json; not yet committed
			}
			return nil, err
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (s *JSONJobStore) UpdateJobRecord(ctx context.Context, jobID string, mutate func(*core.JobRecord) error) (*core.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.readJobRecord(jobID)
	if err != nil {
		return nil, err
	}
	if err := mutate(record); err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.writeJobRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *JSONJobStore) FinalizeJob(ctx context.Context, jobID string, status core.JobStatus, exitCode int, sessionPath string, metadataDelta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.readJobRecord(jobID)
	if err != nil {
		return err
	}
	if err := record.Transition(status); err != nil {
		return err
	}
	now := time.Now()
	record.FinishedAt = &now
	record.ExitCode = &exitCode
	if sessionPath != "" {
		record.SessionPath = sessionPath
	}
	applyMetadataDelta(&record.Metadata, metadataDelta)

	if err := record.Validate(); err != nil {
		return err
	}
	if err := s.writeJobRecord(record); err != nil {
		return err
	}
	return s.writeOutcome(record)
}

func (s *JSONJobStore) writeOutcome(record *core.JobRecord) error {
	outcome := outcomeRecord{
		JobID:      record.ID,
		Status:     record.Status,
		ExitCode:   record.ExitCode,
		FinishedAt: record.FinishedAt,
		Metadata:   record.Metadata,
	}
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return core.ErrExecution("OUTCOME_ENCODE_FAILED", err.Error()).WithCause(err)
	}
	if err := fsutil.AtomicWriteFile(outcomePath(s.jobsRoot, record.ID), data, 0o644); err != nil {
		return core.ErrExecution("OUTCOME_WRITE_FAILED", err.Error()).WithCause(err)
	}
	return nil
}

func (s *JSONJobStore) GCJobs(ctx context.Context, olderThan int64) (int, error) {
	entries, err := os.ReadDir(s.jobsRoot)
	if err != nil {
		return 0, core.ErrExecution("JOBSTORE_LIST_FAILED", err.Error()).WithCause(err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == runsDirName || entry.Name() == artifactsDirName {
			continue
		}
		record, err := s.readJobRecord(entry.Name())
		if err != nil {
			continue // unreadable/partial job directory; leave it for manual inspection
		}
		if !record.IsTerminal() {
			continue
		}
		if record.CreatedAt.Unix() >= olderThan {
			continue
		}
		if err := os.RemoveAll(jobDir(s.jobsRoot, record.ID)); err != nil {
			return removed, core.ErrExecution("JOBSTORE_GC_FAILED", err.Error()).WithCause(err)
		}
		removed++
	}
	return removed, nil
}

func (s *JSONJobStore) CancelJobWithCleanup(ctx context.Context, jobID string, cleanupEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.readJobRecord(jobID)
	if err != nil {
		return err
	}
	if record.IsTerminal() {
		return nil
	}

	if record.PID != nil {
		if err := signalProcess(*record.PID); err != nil {
			return core.ErrExecution("CANCEL_SIGNAL_FAILED", err.Error()).WithCause(err)
		}
	}

	if err := record.Transition(core.JobCancelled); err != nil {
		return err
	}
	now := time.Now()
	record.FinishedAt = &now
	exitCode := 143
	record.ExitCode = &exitCode

	status, cleanupErr := s.cleanupWorktree(ctx, record, cleanupEnabled)
	record.Metadata.CancelCleanupStatus = status
	if cleanupErr != nil {
		record.Metadata.CancelCleanupError = cleanupErr.Error()
	}

	if err := s.writeJobRecord(record); err != nil {
		return err
	}
	return s.writeOutcome(record)
}

func (s *JSONJobStore) cleanupWorktree(ctx context.Context, record *core.JobRecord, cleanupEnabled bool) (core.CancelCleanupStatus, error) {
	if !cleanupEnabled || record.Metadata.WorktreeName == "" {
		return core.CancelCleanupSkipped, nil
	}
	if s.worktreeRemover == nil {
		return core.CancelCleanupSkipped, nil
	}
	if err := s.worktreeRemover(ctx, record.Metadata.WorktreeName); err != nil {
		return core.CancelCleanupFailed, err
	}
	return core.CancelCleanupSucceeded, nil
}

func (s *JSONJobStore) ReadRunManifest(ctx context.Context, runID string) (*core.RunManifest, error) {
	data, err := fsutil.ReadFileScoped(runManifestPath(s.jobsRoot, runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNotFound("run", runID)
		}
		return nil, core.ErrExecution("RUN_MANIFEST_READ_FAILED", err.Error()).WithCause(err)
	}
	var manifest core.RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, core.ErrState("RUN_MANIFEST_CORRUPT", "run "+runID+": "+err.Error()).WithCause(err)
	}
	return &manifest, nil
}

func (s *JSONJobStore) ListRunManifests(ctx context.Context) ([]*core.RunManifest, error) {
	entries, err := os.ReadDir(runsDir(s.jobsRoot))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, core.ErrExecution("RUNS_LIST_FAILED", err.Error()).WithCause(err)
	}

	manifests := make([]*core.RunManifest, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		runID := entry.Name()[:len(entry.Name())-len(".json")]
		manifest, err := s.ReadRunManifest(ctx, runID)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, manifest)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].EnqueuedAt.After(manifests[j].EnqueuedAt)
	})
	return manifests, nil
}

// outcomeRecord is the terminal-transition snapshot written to
// <job_id>/outcome.json (spec.md §4.3 layout).
type outcomeRecord struct {
	JobID      string           `json:"job_id"`
	Status     core.JobStatus   `json:"status"`
	ExitCode   *int             `json:"exit_code,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Metadata   core.JobMetadata `json:"metadata"`
}

// applyMetadataDelta merges a free-form string-keyed delta onto the typed
// JobMetadata struct. Unrecognized keys are ignored rather than rejected:
// callers (executors) only ever send keys this store knows about, and a
// forward-compatible executor sending a new key should not break finalize.
func applyMetadataDelta(m *core.JobMetadata, delta map[string]string) {
	for key, value := range delta {
		switch key {
		case "scope":
			m.Scope = value
		case "plan":
			m.Plan = value
		case "branch":
			m.Branch = value
		case "target":
			m.Target = value
		case "revision":
			m.Revision = value
		case "worktree_name":
			m.WorktreeName = value
		case "worktree_path":
			m.WorktreePath = value
		case "agent_selector":
			m.AgentSelector = value
		case "agent_backend":
			m.AgentBackend = value
		case "agent_label":
			m.AgentLabel = value
		case "node_id":
			m.NodeID = value
		case "cancel_cleanup_status":
			m.CancelCleanupStatus = core.CancelCleanupStatus(value)
		case "cancel_cleanup_error":
			m.CancelCleanupError = value
		case "retried_from_job":
			m.RetriedFromJob = value
		}
	}
}
