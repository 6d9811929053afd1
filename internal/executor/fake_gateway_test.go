package executor_test

import (
	"context"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// fakeGateway is a minimal in-memory stand-in for core.RepoGateway, used
// across this package's tests. Embedding the nil interface means any
// method a test doesn't override panics if called, which surfaces
// unexpected gateway usage immediately.
type fakeGateway struct {
	core.RepoGateway

	branches map[string]string // name -> oid
	worktrees map[string]string // name -> path
	staged   []string
	commits  []string
	diffs    map[string]string // base -> diff text

	mergeOutcome core.MergeOutcome
	squashPlan   core.SquashPlan
	cherryPick   core.CherryPickOutcome

	applyPatchCalls []string
	resetCalls      []string
	cherryPickCalls []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		branches:  map[string]string{},
		worktrees: map[string]string{},
		diffs:     map[string]string{},
	}
}

func (g *fakeGateway) CreateBranchAt(ctx context.Context, name, oid string) error {
	g.branches[name] = oid
	return nil
}

func (g *fakeGateway) DeleteBranch(ctx context.Context, name string) error {
	delete(g.branches, name)
	return nil
}

func (g *fakeGateway) AddWorktreeForBranch(ctx context.Context, name, path, branch string) error {
	g.worktrees[name] = path
	return nil
}

func (g *fakeGateway) RemoveWorktree(ctx context.Context, name string, force bool) error {
	delete(g.worktrees, name)
	return nil
}

func (g *fakeGateway) BranchHead(ctx context.Context, branch string) (string, error) {
	return g.branches[branch], nil
}

func (g *fakeGateway) BranchExists(ctx context.Context, branch string) (bool, error) {
	_, ok := g.branches[branch]
	return ok, nil
}

func (g *fakeGateway) ResetBranchHard(ctx context.Context, branch, oid string) error {
	g.resetCalls = append(g.resetCalls, branch+"@"+oid)
	g.branches[branch] = oid
	return nil
}

func (g *fakeGateway) ApplyPatch(ctx context.Context, patch []byte, binary bool) error {
	g.applyPatchCalls = append(g.applyPatchCalls, string(patch))
	return nil
}

func (g *fakeGateway) CherryPickCommit(ctx context.Context, oid string) error {
	g.cherryPickCalls = append(g.cherryPickCalls, oid)
	return nil
}

func (g *fakeGateway) CherryPickAbort(ctx context.Context) error {
	return nil
}

func (g *fakeGateway) GetDiff(ctx context.Context, base string, exclude []string) (string, error) {
	return g.diffs[base], nil
}

func (g *fakeGateway) Stage(ctx context.Context, paths []string) error {
	g.staged = append(g.staged, paths...)
	return nil
}

func (g *fakeGateway) StageAll(ctx context.Context) error {
	g.staged = append(g.staged, "*")
	return nil
}

func (g *fakeGateway) CommitStaged(ctx context.Context, message string, allowEmpty bool) (string, error) {
	g.commits = append(g.commits, message)
	return "commit-oid", nil
}

func (g *fakeGateway) PrepareMerge(ctx context.Context, sourceBranch string) (core.MergeOutcome, error) {
	return g.mergeOutcome, nil
}

func (g *fakeGateway) CommitReadyMerge(ctx context.Context, outcome core.MergeOutcome, message string) (string, error) {
	g.commits = append(g.commits, message)
	return "merge-oid", nil
}

func (g *fakeGateway) CommitSquashedMerge(ctx context.Context, outcome core.MergeOutcome, message string) (string, error) {
	g.commits = append(g.commits, message)
	return "squash-oid", nil
}

func (g *fakeGateway) CommitInProgressMerge(ctx context.Context, message string) (string, error) {
	g.commits = append(g.commits, message)
	return "in-progress-oid", nil
}

func (g *fakeGateway) BuildSquashPlan(ctx context.Context, sourceBranch string) (core.SquashPlan, error) {
	return g.squashPlan, nil
}

func (g *fakeGateway) ApplyCherryPickSequence(ctx context.Context, startHead string, commits []string, favor string, mainline *int) (core.CherryPickOutcome, error) {
	return g.cherryPick, nil
}

type fakeAgent struct {
	name   string
	result *core.AgentResult
	err    error
	calls  []core.AgentLaunchOptions
}

func (a *fakeAgent) Name() string { return a.name }

func (a *fakeAgent) Launch(ctx context.Context, opts core.AgentLaunchOptions) (*core.AgentResult, error) {
	a.calls = append(a.calls, opts)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}
