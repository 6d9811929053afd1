package jobstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/fsutil"

	_ "modernc.org/sqlite"
)

//go:embed migrations/0001_job_store_schema.sql
var schemaV1 string

// SQLiteJobStore is the alternate core.JobStore backend: job records and
// run manifests live as JSON-blob rows in a SQLite database (indexed by
// status and created_at for fast listing), while stdout/stderr logs and
// patch files stay plain files under jobsRoot — executors open those paths
// directly regardless of which backend is configured.
type SQLiteJobStore struct {
	jobsRoot        string
	dbPath          string
	db              *sql.DB
	worktreeRemover WorktreeRemover

	maxRetries    int
	baseRetryWait time.Duration

	mu sync.Mutex
}

// SQLiteJobStoreOption configures a SQLiteJobStore.
type SQLiteJobStoreOption func(*SQLiteJobStore)

// WithSQLiteWorktreeRemover wires a WorktreeRemover into CancelJobWithCleanup.
func WithSQLiteWorktreeRemover(remover WorktreeRemover) SQLiteJobStoreOption {
	return func(s *SQLiteJobStore) { s.worktreeRemover = remover }
}

// NewSQLiteJobStore opens (creating if absent) a SQLite database at dbPath
// and runs pending migrations. jobsRoot still governs where per-job log and
// patch files live.
func NewSQLiteJobStore(jobsRoot, dbPath string, opts ...SQLiteJobStoreOption) (*SQLiteJobStore, error) {
	s := &SQLiteJobStore{
		jobsRoot:      jobsRoot,
		dbPath:        dbPath,
		maxRetries:    5,
		baseRetryWait: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(jobsRoot, 0o755); err != nil {
		return nil, core.ErrExecution("JOBSTORE_INIT_FAILED", err.Error()).WithCause(err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, core.ErrExecution("JOBSTORE_DB_OPEN_FAILED", err.Error()).WithCause(err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *SQLiteJobStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteJobStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return core.ErrExecution("JOBSTORE_MIGRATE_FAILED", err.Error()).WithCause(err)
	}
	var version int
	_ = s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if version >= 1 {
		return nil
	}
	if _, err := s.db.Exec(schemaV1); err != nil {
		return core.ErrExecution("JOBSTORE_MIGRATE_FAILED", "applying schema v1: "+err.Error()).WithCause(err)
	}
	if _, err := s.db.Exec(`INSERT INTO schema_migrations(version) VALUES (1)`); err != nil {
		return core.ErrExecution("JOBSTORE_MIGRATE_FAILED", err.Error()).WithCause(err)
	}
	return nil
}

// retryWrite retries a write operation on SQLITE_BUSY with exponential
// backoff, matching the single-writer-connection discipline SQLite needs
// under WAL mode.
func (s *SQLiteJobStore) retryWrite(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := fn(); err != nil {
			if isSQLiteBusy(err) {
				lastErr = err
				if attempt < s.maxRetries {
					wait := s.baseRetryWait * time.Duration(1<<attempt)
					select {
					case <-ctx.Done():
						return core.ErrTimeout(operation + ": " + ctx.Err().Error())
					case <-time.After(wait):
						continue
					}
				}
			}
			return core.ErrExecution("JOBSTORE_WRITE_FAILED", operation+": "+err.Error()).WithCause(err)
		}
		return nil
	}
	return core.ErrExecution("JOBSTORE_WRITE_FAILED", operation+": max retries exceeded").WithCause(lastErr)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}

func (s *SQLiteJobStore) putJobRecord(ctx context.Context, record *core.JobRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return core.ErrExecution("JOB_RECORD_ENCODE_FAILED", err.Error()).WithCause(err)
	}
	return s.retryWrite(ctx, "put job record", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO job_records (job_id, status, created_at, data) VALUES (?, ?, ?, ?)
			ON CONFLICT(job_id) DO UPDATE SET status = excluded.status, data = excluded.data
		`, record.ID, string(record.Status), record.CreatedAt.Unix(), string(data))
		return err
	})
}

func (s *SQLiteJobStore) getJobRecord(ctx context.Context, jobID string) (*core.JobRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM job_records WHERE job_id = ?`, jobID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("job", jobID)
	}
	if err != nil {
		return nil, core.ErrExecution("JOB_RECORD_READ_FAILED", err.Error()).WithCause(err)
	}
	var record core.JobRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, core.ErrState("JOB_RECORD_CORRUPT", "job "+jobID+": "+err.Error()).WithCause(err)
	}
	return &record, nil
}

// EnqueueWorkflowRun writes every job row and then the run manifest row
// inside a single transaction — the SQLite analogue of "job.json files
// before the run manifest; the manifest write is the commit point"
// (spec.md §4.3): if the process dies mid-transaction, SQLite rolls the
// whole thing back rather than leaving partial rows.
func (s *SQLiteJobStore) EnqueueWorkflowRun(ctx context.Context, runID string, tmpl *core.WorkflowTemplate, selector string, argv []string, jobs map[string]*core.JobRecord) (*core.RunManifest, error) {
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
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return nil, core.ErrExecution("RUN_MANIFEST_ENCODE_FAILED", err.Error()).WithCause(err)
	}

	txErr := s.retryWrite(ctx, "enqueue workflow run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for _, node := range tmpl.Nodes {
			job := jobs[node.ID]
			data, err := json.Marshal(job)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO job_records (job_id, status, created_at, data) VALUES (?, ?, ?, ?)
			`, job.ID, string(job.Status), job.CreatedAt.Unix(), string(data)); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_manifests (run_id, enqueued_at, data) VALUES (?, ?, ?)
		`, manifest.RunID, manifest.EnqueuedAt.Unix(), string(manifestData)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if txErr != nil {
		return nil, txErr
	}
	return manifest, nil
}

func (s *SQLiteJobStore) EnqueueRetryJob(ctx context.Context, runID string, job *core.JobRecord) (*core.RunManifest, error) {
	if job == nil || job.Metadata.NodeID == "" {
		return nil, core.ErrValidation("RETRY_JOB_INVALID", "retry job requires a node id")
	}

	var manifest *core.RunManifest
	txErr := s.retryWrite(ctx, "enqueue retry job", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var manifestData string
		if err := tx.QueryRowContext(ctx, `SELECT data FROM run_manifests WHERE run_id = ?`, runID).Scan(&manifestData); err != nil {
			if err == sql.ErrNoRows {
				return core.ErrNotFound("run", runID)
			}
			return err
		}
		manifest = &core.RunManifest{}
		if err := json.Unmarshal([]byte(manifestData), manifest); err != nil {
			return core.ErrState("RUN_MANIFEST_CORRUPT", "run "+runID+": "+err.Error()).WithCause(err)
		}
		manifest.JobIDs = append(manifest.JobIDs, job.ID)
		manifest.NodeIDToJobID[job.Metadata.NodeID] = job.ID

		jobData, err := json.Marshal(job)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO job_records (job_id, status, created_at, data) VALUES (?, ?, ?, ?)
		`, job.ID, string(job.Status), job.CreatedAt.Unix(), string(jobData)); err != nil {
			return err
		}

		newManifestData, err := json.Marshal(manifest)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE run_manifests SET data = ? WHERE run_id = ?`, string(newManifestData), runID); err != nil {
			return err
		}
		return tx.Commit()
	})
	if txErr != nil {
		return nil, txErr
	}
	return manifest, nil
}

func (s *SQLiteJobStore) ReadRecord(ctx context.Context, jobID string) (*core.JobRecord, error) {
	return s.getJobRecord(ctx, jobID)
}

func (s *SQLiteJobStore) ListRecords(ctx context.Context) ([]*core.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM job_records ORDER BY created_at DESC`)
	if err != nil {
		return nil, core.ErrExecution("JOBSTORE_LIST_FAILED", err.Error()).WithCause(err)
	}
	defer rows.Close()

	var records []*core.JobRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, core.ErrExecution("JOBSTORE_LIST_FAILED", err.Error()).WithCause(err)
		}
		var record core.JobRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, core.ErrState("JOB_RECORD_CORRUPT", err.Error()).WithCause(err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

func (s *SQLiteJobStore) UpdateJobRecord(ctx context.Context, jobID string, mutate func(*core.JobRecord) error) (*core.JobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getJobRecord(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := mutate(record); err != nil {
		return nil, err
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.putJobRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SQLiteJobStore) FinalizeJob(ctx context.Context, jobID string, status core.JobStatus, exitCode int, sessionPath string, metadataDelta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getJobRecord(ctx, jobID)
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
	if err := s.putJobRecord(ctx, record); err != nil {
		return err
	}
	return s.writeOutcomeFile(record)
}

// writeOutcomeFile still writes the plain outcome.json file under the
// job's log directory, matching the layout executors and `vizier jobs show`
// read regardless of which backend persists the authoritative job record.
func (s *SQLiteJobStore) writeOutcomeFile(record *core.JobRecord) error {
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
	dir := jobDir(s.jobsRoot, record.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.ErrExecution("OUTCOME_DIR_FAILED", err.Error()).WithCause(err)
	}
	if err := fsutil.AtomicWriteFile(outcomePath(s.jobsRoot, record.ID), data, 0o644); err != nil {
		return core.ErrExecution("OUTCOME_WRITE_FAILED", err.Error()).WithCause(err)
	}
	return nil
}

func (s *SQLiteJobStore) GCJobs(ctx context.Context, olderThan int64) (int, error) {
	var jobIDs []string
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id FROM job_records
		WHERE created_at < ? AND status IN (?, ?, ?, ?, ?)
	`, olderThan,
		string(core.JobSucceeded), string(core.JobFailed), string(core.JobCancelled),
		string(core.JobBlockedByDependency), string(core.JobBlockedByApproval))
	if err != nil {
		return 0, core.ErrExecution("JOBSTORE_GC_FAILED", err.Error()).WithCause(err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, core.ErrExecution("JOBSTORE_GC_FAILED", err.Error()).WithCause(err)
		}
		jobIDs = append(jobIDs, id)
	}
	rows.Close()

	removed := 0
	for _, id := range jobIDs {
		err := s.retryWrite(ctx, "gc job", func() error {
			_, err := s.db.ExecContext(ctx, `DELETE FROM job_records WHERE job_id = ?`, id)
			return err
		})
		if err != nil {
			return removed, err
		}
		_ = os.RemoveAll(jobDir(s.jobsRoot, id))
		removed++
	}
	return removed, nil
}

func (s *SQLiteJobStore) CancelJobWithCleanup(ctx context.Context, jobID string, cleanupEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getJobRecord(ctx, jobID)
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

	if err := s.putJobRecord(ctx, record); err != nil {
		return err
	}
	return s.writeOutcomeFile(record)
}

func (s *SQLiteJobStore) cleanupWorktree(ctx context.Context, record *core.JobRecord, cleanupEnabled bool) (core.CancelCleanupStatus, error) {
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

func (s *SQLiteJobStore) ReadRunManifest(ctx context.Context, runID string) (*core.RunManifest, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM run_manifests WHERE run_id = ?`, runID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound("run", runID)
	}
	if err != nil {
		return nil, core.ErrExecution("RUN_MANIFEST_READ_FAILED", err.Error()).WithCause(err)
	}
	var manifest core.RunManifest
	if err := json.Unmarshal([]byte(data), &manifest); err != nil {
		return nil, core.ErrState("RUN_MANIFEST_CORRUPT", "run "+runID+": "+err.Error()).WithCause(err)
	}
	return &manifest, nil
}

func (s *SQLiteJobStore) ListRunManifests(ctx context.Context) ([]*core.RunManifest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM run_manifests ORDER BY enqueued_at DESC`)
	if err != nil {
		return nil, core.ErrExecution("RUNS_LIST_FAILED", err.Error()).WithCause(err)
	}
	defer rows.Close()

	var manifests []*core.RunManifest
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, core.ErrExecution("RUNS_LIST_FAILED", err.Error()).WithCause(err)
		}
		var manifest core.RunManifest
		if err := json.Unmarshal([]byte(data), &manifest); err != nil {
			return nil, core.ErrState("RUN_MANIFEST_CORRUPT", err.Error()).WithCause(err)
		}
		manifests = append(manifests, &manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].EnqueuedAt.After(manifests[j].EnqueuedAt)
	})
	return manifests, rows.Err()
}
