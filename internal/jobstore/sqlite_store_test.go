package jobstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/jobstore"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/testutil"
)

func TestSQLiteJobStore_EnqueueReadUpdateFinalize(t *testing.T) {
	ctx := context.Background()
	root := testutil.TempDir(t)
	dbPath := filepath.Join(root, "jobs.db")
	store, err := jobstore.NewSQLiteJobStore(root, dbPath)
	testutil.AssertNoError(t, err)
	defer store.Close()

	tmpl := &core.WorkflowTemplate{ID: "release", Version: "v1", Nodes: []core.Node{
		{ID: "gate", Kind: core.NodeKindBuiltin, Uses: "cap.cicd.gate"},
	}}
	job := core.NewJobRecord("gate-job", nil)
	manifest, err := store.EnqueueWorkflowRun(ctx, "run-1", tmpl, "release", []string{"vizier", "run", "release"}, map[string]*core.JobRecord{"gate": job})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, manifest.JobIDs[0], "gate-job")

	record, err := store.ReadRecord(ctx, "gate-job")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, record.Status, core.JobQueued)

	_, err = store.UpdateJobRecord(ctx, "gate-job", func(r *core.JobRecord) error {
		return r.Transition(core.JobRunning)
	})
	testutil.AssertNoError(t, err)

	err = store.FinalizeJob(ctx, "gate-job", core.JobSucceeded, 0, "", map[string]string{"node_id": "gate"})
	testutil.AssertNoError(t, err)

	final, err := store.ReadRecord(ctx, "gate-job")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, final.Status, core.JobSucceeded)
	testutil.AssertEqual(t, final.Metadata.NodeID, "gate")

	readManifest, err := store.ReadRunManifest(ctx, "run-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, readManifest.TemplateID, "release")

	manifests, err := store.ListRunManifests(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, manifests, 1)
}

func TestSQLiteJobStore_GCJobsRemovesOnlyTerminal(t *testing.T) {
	ctx := context.Background()
	root := testutil.TempDir(t)
	store, err := jobstore.NewSQLiteJobStore(root, filepath.Join(root, "jobs.db"))
	testutil.AssertNoError(t, err)
	defer store.Close()

	tmpl := &core.WorkflowTemplate{ID: "t", Version: "v1", Nodes: []core.Node{
		{ID: "a", Kind: core.NodeKindShell, Uses: "cap.env.shell.command.run"},
	}}
	job := core.NewJobRecord("job-a", nil)
	_, err = store.EnqueueWorkflowRun(ctx, "run-1", tmpl, "t", nil, map[string]*core.JobRecord{"a": job})
	testutil.AssertNoError(t, err)

	removed, err := store.GCJobs(ctx, 0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, removed, 0)

	err = store.FinalizeJob(ctx, "job-a", core.JobSucceeded, 0, "", nil)
	testutil.AssertNoError(t, err)

	removed, err = store.GCJobs(ctx, job.CreatedAt.Unix()+3600)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, removed, 1)

	_, err = store.ReadRecord(ctx, "job-a")
	testutil.AssertError(t, err)
}
