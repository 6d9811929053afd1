package core

import "context"

// =============================================================================
// RepoGateway port (C1)
// =============================================================================

// RepoGateway is the contract every repo primitive in spec.md §4.1 is built
// from. Implementations (internal/repo) never invoke a shell; every
// operation fails with a typed *DomainError rather than aborting the
// process.
type RepoGateway interface {
	// Diff / staging
	GetDiff(ctx context.Context, base string, exclude []string) (string, error)
	Stage(ctx context.Context, paths []string) error
	StageAll(ctx context.Context) error
	StagePathsAllowMissing(ctx context.Context, paths []string) error
	Unstage(ctx context.Context, paths []string) error
	CommitStaged(ctx context.Context, message string, allowEmpty bool) (string, error)

	// Worktrees
	AddWorktreeForBranch(ctx context.Context, name, path, branch string) error
	RemoveWorktree(ctx context.Context, name string, force bool) error

	// Merge / squash / cherry-pick
	PrepareMerge(ctx context.Context, sourceBranch string) (MergeOutcome, error)
	CommitReadyMerge(ctx context.Context, outcome MergeOutcome, message string) (string, error)
	CommitSquashedMerge(ctx context.Context, outcome MergeOutcome, message string) (string, error)
	CommitInProgressMerge(ctx context.Context, message string) (string, error)
	BuildSquashPlan(ctx context.Context, sourceBranch string) (SquashPlan, error)
	ApplyCherryPickSequence(ctx context.Context, startHead string, commits []string, favor string, mainline *int) (CherryPickOutcome, error)

	// Remote
	PushCurrentBranch(ctx context.Context, remote string) error

	// Release
	LatestReachableReleaseTag(ctx context.Context) (string, bool, error)
	CommitsSinceReleaseTag(ctx context.Context, tag string) ([]CommitInfo, error)
	BuildReleaseNotes(ctx context.Context, tag string, commits []CommitInfo) (ReleaseNotes, error)

	// State inspection, used by C6 preconditions and the worktree-apply pipeline.
	State(ctx context.Context) (RepoState, error)
	IsClean(ctx context.Context) (bool, error)
	CurrentBranch(ctx context.Context) (string, error)
	BranchHead(ctx context.Context, branch string) (string, error)
	BranchExists(ctx context.Context, branch string) (bool, error)
	TagExists(ctx context.Context, name string) (bool, error)

	// Release rollback primitives.
	CreateAnnotatedTag(ctx context.Context, name, message string) error
	DeleteTag(ctx context.Context, name string) error
	ResetBranchHard(ctx context.Context, branch, oid string) error
	ForceCheckout(ctx context.Context, branch string) error

	// Worktree-apply pipeline support.
	CreateBranchAt(ctx context.Context, name, oid string) error
	DeleteBranch(ctx context.Context, name string) error
	ApplyPatch(ctx context.Context, patch []byte, binary bool) error
	CherryPickCommit(ctx context.Context, oid string) error
	CherryPickAbort(ctx context.Context) error
}

// CommitInfo is a single commit in a release range or squash plan walk.
type CommitInfo struct {
	OID        string
	ParentOIDs []string
	Subject    string
	Body       string
}

// =============================================================================
// Agent port — the subprocess contract (spec.md §1, §4.5)
// =============================================================================

// AgentLaunchOptions configures one agent subprocess invocation.
type AgentLaunchOptions struct {
	Prompt       string
	Model        string
	ReasoningEffort string
	WorkDir      string
	Env          map[string]string
	EventHandler AgentEventHandler
}

// AgentResult is everything the core observes about a finished agent run:
// exit status and captured stdio. Richer output (narrative authorship,
// tool-call transcripts) belongs to the agent subprocess's own collaborator,
// not the core (spec.md §1).
type AgentResult struct {
	ExitCode    int
	Stdout      string
	Stderr      string
	SessionPath string
}

// AgentRunner launches the configured agent subprocess in a prepared
// worktree and streams structured progress events as they arrive.
type AgentRunner interface {
	Name() string
	Launch(ctx context.Context, opts AgentLaunchOptions) (*AgentResult, error)
}

// =============================================================================
// Job store port (C3) — internal/jobstore implements this.
// =============================================================================

// JobStore is the persistence contract the scheduler and executors use.
type JobStore interface {
	EnqueueWorkflowRun(ctx context.Context, runID string, tmpl *WorkflowTemplate, selector string, argv []string, jobs map[string]*JobRecord) (*RunManifest, error)
	// EnqueueRetryJob adds a single extra job to an already-enqueued run:
	// the scheduler's response to a Failed job with remaining retry
	// attempts (spec.md §4.4 "Retry"). job.Metadata.RetriedFromJob and
	// job.Metadata.NodeID must already be set by the caller; the run
	// manifest's NodeIDToJobID entry for that node is updated to point
	// at the new job.
	EnqueueRetryJob(ctx context.Context, runID string, job *JobRecord) (*RunManifest, error)
	ReadRecord(ctx context.Context, jobID string) (*JobRecord, error)
	ListRecords(ctx context.Context) ([]*JobRecord, error)
	UpdateJobRecord(ctx context.Context, jobID string, mutate func(*JobRecord) error) (*JobRecord, error)
	FinalizeJob(ctx context.Context, jobID string, status JobStatus, exitCode int, sessionPath string, metadataDelta map[string]string) error
	GCJobs(ctx context.Context, olderThan int64) (int, error)
	CancelJobWithCleanup(ctx context.Context, jobID string, cleanupEnabled bool) error
	ReadRunManifest(ctx context.Context, runID string) (*RunManifest, error)
	ListRunManifests(ctx context.Context) ([]*RunManifest, error)
}
