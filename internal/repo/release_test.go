package repo_test

import (
	"context"
	"testing"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/repo"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/testutil"
)

func TestParseReleaseVersionTag(t *testing.T) {
	v, err := repo.ParseReleaseVersionTag("v1.2.3")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v.Major, 1)
	testutil.AssertEqual(t, v.Minor, 2)
	testutil.AssertEqual(t, v.Patch, 3)
}

func TestParseReleaseVersionTag_Invalid(t *testing.T) {
	cases := []string{"1.2.3", "v1.2", "v1.2.x", ""}
	for _, tc := range cases {
		if _, err := repo.ParseReleaseVersionTag(tc); err == nil {
			t.Errorf("expected error for tag %q", tc)
		}
	}
}

func TestLatestReachableReleaseTag_None(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")

	client := newClient(t, gitRepo)
	tag, ok, err := client.LatestReachableReleaseTag(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, ok, "expected no release tag")
	testutil.AssertEqual(t, tag, "")
}

func TestLatestReachableReleaseTag_PicksHighest(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateTag("v1.0.0")
	gitRepo.WriteFile("b.txt", "b")
	gitRepo.Commit("feat: add b")
	gitRepo.CreateTag("v1.1.0")

	client := newClient(t, gitRepo)
	tag, ok, err := client.LatestReachableReleaseTag(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, ok, "expected a release tag")
	testutil.AssertEqual(t, tag, "v1.1.0")
}

func TestCommitsSinceReleaseTag(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateTag("v1.0.0")
	gitRepo.WriteFile("b.txt", "b")
	gitRepo.Commit("feat: add b")
	gitRepo.WriteFile("c.txt", "c")
	gitRepo.Commit("fix: correct c")

	client := newClient(t, gitRepo)
	commits, err := client.CommitsSinceReleaseTag(context.Background(), "v1.0.0")
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, commits, 2)
}

func TestClassifyCommit(t *testing.T) {
	cases := []struct {
		subject string
		body    string
		bump    core.ReleaseBump
		section string
	}{
		{"feat: add widget", "feat: add widget", core.BumpMinor, "Features"},
		{"fix: correct bug", "fix: correct bug", core.BumpPatch, "Fixes/Performance"},
		{"perf: speed up loop", "perf: speed up loop", core.BumpPatch, "Fixes/Performance"},
		{"chore: tidy", "chore: tidy", core.BumpNone, "Other"},
		{"feat!: break api", "feat!: break api", core.BumpMajor, "Breaking Changes"},
		{"fix: patch", "fix: patch\n\nBREAKING CHANGE: removes flag", core.BumpMajor, "Breaking Changes"},
	}
	for _, tc := range cases {
		bump, section := repo.ClassifyCommit(tc.subject, tc.body)
		if bump != tc.bump || section != tc.section {
			t.Errorf("ClassifyCommit(%q) = (%v, %v), want (%v, %v)", tc.subject, bump, section, tc.bump, tc.section)
		}
	}
}

func TestBuildReleaseNotes(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.WriteFile("b.txt", "b")
	gitRepo.Commit("feat: add b")
	gitRepo.WriteFile("c.txt", "c")
	gitRepo.Commit("fix: correct c")

	client := newClient(t, gitRepo)
	ctx := context.Background()
	commits, err := client.CommitsSinceReleaseTag(ctx, "")
	testutil.AssertNoError(t, err)

	notes, err := client.BuildReleaseNotes(ctx, "v1.0.0", commits)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, notes.Version, "v1.0.0")

	if _, ok := notes.Sections["Features"]; !ok {
		t.Fatal("expected a Features section")
	}
	if _, ok := notes.Sections["Fixes/Performance"]; !ok {
		t.Fatal("expected a Fixes/Performance section")
	}
}
