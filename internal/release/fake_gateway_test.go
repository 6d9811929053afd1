package release_test

import (
	"context"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// fakeGateway is a minimal in-memory stand-in for core.RepoGateway.
// Embedding the nil interface means any unoverridden method panics if
// called, surfacing unexpected gateway usage immediately.
type fakeGateway struct {
	core.RepoGateway

	state  core.RepoState
	clean  bool
	branch string
	heads  map[string]string
	tags   map[string]bool

	lastTag    string
	hasLastTag bool
	commits    []core.CommitInfo
	notes      core.ReleaseNotes

	commitErr  error
	commitOID  string
	tagErr     error
	deleteTagErr error
	resetErr   error
	checkoutErr error

	commitCalls    []string
	createdTags    []string
	deletedTags    []string
	resetCalls     []string
	checkoutCalls  []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		state:  core.RepoStateClean,
		clean:  true,
		branch: "main",
		heads:  map[string]string{"main": "start-oid"},
		tags:   map[string]bool{},
	}
}

func (g *fakeGateway) State(ctx context.Context) (core.RepoState, error) { return g.state, nil }
func (g *fakeGateway) IsClean(ctx context.Context) (bool, error)         { return g.clean, nil }
func (g *fakeGateway) CurrentBranch(ctx context.Context) (string, error) { return g.branch, nil }
func (g *fakeGateway) BranchHead(ctx context.Context, branch string) (string, error) {
	return g.heads[branch], nil
}

func (g *fakeGateway) LatestReachableReleaseTag(ctx context.Context) (string, bool, error) {
	return g.lastTag, g.hasLastTag, nil
}

func (g *fakeGateway) CommitsSinceReleaseTag(ctx context.Context, tag string) ([]core.CommitInfo, error) {
	return g.commits, nil
}

func (g *fakeGateway) BuildReleaseNotes(ctx context.Context, tag string, commits []core.CommitInfo) (core.ReleaseNotes, error) {
	return g.notes, nil
}

func (g *fakeGateway) TagExists(ctx context.Context, name string) (bool, error) {
	return g.tags[name], nil
}

func (g *fakeGateway) CommitStaged(ctx context.Context, message string, allowEmpty bool) (string, error) {
	if g.commitErr != nil {
		return "", g.commitErr
	}
	g.commitCalls = append(g.commitCalls, message)
	oid := g.commitOID
	if oid == "" {
		oid = "release-commit-oid"
	}
	g.heads[g.branch] = oid
	return oid, nil
}

func (g *fakeGateway) CreateAnnotatedTag(ctx context.Context, name, message string) error {
	if g.tagErr != nil {
		return g.tagErr
	}
	g.tags[name] = true
	g.createdTags = append(g.createdTags, name)
	return nil
}

func (g *fakeGateway) DeleteTag(ctx context.Context, name string) error {
	if g.deleteTagErr != nil {
		return g.deleteTagErr
	}
	delete(g.tags, name)
	g.deletedTags = append(g.deletedTags, name)
	return nil
}

func (g *fakeGateway) ResetBranchHard(ctx context.Context, branch, oid string) error {
	if g.resetErr != nil {
		return g.resetErr
	}
	g.resetCalls = append(g.resetCalls, branch+"@"+oid)
	g.heads[branch] = oid
	return nil
}

func (g *fakeGateway) ForceCheckout(ctx context.Context, branch string) error {
	if g.checkoutErr != nil {
		return g.checkoutErr
	}
	g.checkoutCalls = append(g.checkoutCalls, branch)
	return nil
}
