package jobstore

import (
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Options configures job store construction regardless of backend.
type Options struct {
	// WorktreeRemover is wired into CancelJobWithCleanup.
	WorktreeRemover WorktreeRemover
	// SQLiteDBPath overrides the default <jobsRoot>/jobs.db path used by
	// the sqlite backend.
	SQLiteDBPath string
}

// NewJobStore creates a core.JobStore rooted at jobsRoot. Supported
// backends: "json" (default, the literal spec.md §4.3 directory layout)
// and "sqlite" (modernc.org/sqlite, job records as indexed JSON rows).
func NewJobStore(backend, jobsRoot string) (core.JobStore, error) {
	return NewJobStoreWithOptions(backend, jobsRoot, Options{})
}

// NewJobStoreWithOptions is NewJobStore with backend-specific wiring.
func NewJobStoreWithOptions(backend, jobsRoot string, opts Options) (core.JobStore, error) {
	switch normalizeBackend(backend) {
	case "json":
		var jsonOpts []JSONJobStoreOption
		if opts.WorktreeRemover != nil {
			jsonOpts = append(jsonOpts, WithWorktreeRemover(opts.WorktreeRemover))
		}
		return NewJSONJobStore(jobsRoot, jsonOpts...)
	case "sqlite":
		dbPath := opts.SQLiteDBPath
		if dbPath == "" {
			dbPath = filepath.Join(jobsRoot, "jobs.db")
		}
		var sqliteOpts []SQLiteJobStoreOption
		if opts.WorktreeRemover != nil {
			sqliteOpts = append(sqliteOpts, WithSQLiteWorktreeRemover(opts.WorktreeRemover))
		}
		return NewSQLiteJobStore(jobsRoot, dbPath, sqliteOpts...)
	default:
		return nil, core.ErrValidation("JOBSTORE_BACKEND_UNSUPPORTED", "unsupported job store backend: "+backend+" (supported: json, sqlite)")
	}
}

func normalizeBackend(backend string) string {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend == "" {
		return "json"
	}
	return backend
}
