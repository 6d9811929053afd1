package jobstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/fsutil"
)

// ArtifactMarker is the payload written at the artifact's marker path once
// a job produces it. Its presence is what the scheduler's artifact check
// (spec.md §4.4 step 2b) tests for.
type ArtifactMarker struct {
	Artifact   core.Artifact `json:"artifact"`
	JobID      string        `json:"job_id"`
	ProducedAt time.Time     `json:"produced_at"`
}

// WriteArtifactMarker records that jobID produced artifact, creating parent
// directories as needed.
func WriteArtifactMarker(jobsRoot string, artifact core.Artifact, jobID string) error {
	marker := ArtifactMarker{Artifact: artifact, JobID: jobID, ProducedAt: time.Now()}
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return core.ErrExecution("ARTIFACT_MARKER_ENCODE_FAILED", err.Error()).WithCause(err)
	}
	path := ArtifactMarkerPath(jobsRoot, artifact, jobID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.ErrExecution("ARTIFACT_MARKER_DIR_FAILED", err.Error()).WithCause(err)
	}
	if err := fsutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return core.ErrExecution("ARTIFACT_MARKER_WRITE_FAILED", err.Error()).WithCause(err)
	}
	return nil
}

// ArtifactMarkerExists reports whether some job has already produced the
// artifact, scanning every producer directory under the artifact's type /
// hash-prefix bucket. A given artifact ID may legitimately be produced by
// more than one job across retries, so this checks for any marker at all
// rather than one tied to a specific job id.
func ArtifactMarkerExists(jobsRoot string, artifact core.Artifact) (bool, error) {
	dir := filepath.Dir(ArtifactMarkerPath(jobsRoot, artifact, "*"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, core.ErrExecution("ARTIFACT_MARKER_SCAN_FAILED", err.Error()).WithCause(err)
	}
	return len(entries) > 0, nil
}
