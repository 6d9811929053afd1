// Package jobstore persists workflow runs and job records under
// <project_root>/.vizier/jobs/ (spec.md §4.3). Two backends implement the
// same core.JobStore contract: a JSON backend that is the literal directory
// layout described by the spec (the default), and a SQLite backend that
// stores the same records in a database file for callers that need fast
// listing/filtering over large job histories.
package jobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

const (
	jobFileName        = "job.json"
	outcomeFileName    = "outcome.json"
	commandPatchName   = "command.patch"
	saveInputPatchName = "save_input.patch"
	runsDirName        = "runs"
	artifactsDirName   = "artifacts"
)

func jobDir(jobsRoot, jobID string) string {
	return filepath.Join(jobsRoot, jobID)
}

func jobRecordPath(jobsRoot, jobID string) string {
	return filepath.Join(jobDir(jobsRoot, jobID), jobFileName)
}

func outcomePath(jobsRoot, jobID string) string {
	return filepath.Join(jobDir(jobsRoot, jobID), outcomeFileName)
}

func commandPatchPath(jobsRoot, jobID string) string {
	return filepath.Join(jobDir(jobsRoot, jobID), commandPatchName)
}

func saveInputPatchPath(jobsRoot, jobID string) string {
	return filepath.Join(jobDir(jobsRoot, jobID), saveInputPatchName)
}

func runsDir(jobsRoot string) string {
	return filepath.Join(jobsRoot, runsDirName)
}

func runManifestPath(jobsRoot, runID string) string {
	return filepath.Join(runsDir(jobsRoot), runID+".json")
}

func artifactsDir(jobsRoot string) string {
	return filepath.Join(jobsRoot, artifactsDirName)
}

// ArtifactMarkerPath returns the canonical marker path for an artifact a
// job produced (spec.md §4.3 layout): artifacts/<type>/<hashprefix>/<job_id>.json.
// Executors and the scheduler both call this directly; marker files are
// plain files under both job store backends since they are checked by the
// scheduler's tick loop without going through JobStore at all.
func ArtifactMarkerPath(jobsRoot string, artifact core.Artifact, producingJobID string) string {
	id := artifact.ID()
	sum := sha256.Sum256([]byte(id))
	hashPrefix := hex.EncodeToString(sum[:])[:8]
	return filepath.Join(artifactsDir(jobsRoot), artifact.Type(), hashPrefix, producingJobID+".json")
}
