package repo_test

import (
	"context"
	"testing"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/testutil"
)

func TestPrepareMerge_Ready(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateBranch("feature")
	gitRepo.WriteFile("feature.txt", "feature content")
	gitRepo.Commit("add feature")
	gitRepo.Checkout("main")

	client := newClient(t, gitRepo)
	ctx := context.Background()

	outcome, err := client.PrepareMerge(ctx, "feature")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(outcome.Kind), "ready")

	oid, err := client.CommitReadyMerge(ctx, outcome, "merge feature")
	testutil.AssertNoError(t, err)
	if oid == "" {
		t.Fatal("expected non-empty merge commit oid")
	}
}

func TestPrepareMerge_Conflicted(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("shared.txt", "base\n")
	gitRepo.Commit("initial")
	gitRepo.CreateBranch("feature")
	gitRepo.WriteFile("shared.txt", "feature change\n")
	gitRepo.Commit("feature edit")
	gitRepo.Checkout("main")
	gitRepo.WriteFile("shared.txt", "main change\n")
	gitRepo.Commit("main edit")

	client := newClient(t, gitRepo)
	ctx := context.Background()

	outcome, err := client.PrepareMerge(ctx, "feature")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(outcome.Kind), "conflicted")
	testutil.AssertLen(t, outcome.Files, 1)

	clean, err := client.IsClean(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, clean, "merge --abort should leave repo clean")
}

func TestPrepareMerge_RepoNotClean(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateBranch("feature")
	gitRepo.Checkout("main")
	gitRepo.WriteFile("dirty.txt", "uncommitted")

	client := newClient(t, gitRepo)
	_, err := client.PrepareMerge(context.Background(), "feature")
	testutil.AssertError(t, err)
}

func TestBuildSquashPlan_LinearHistory(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateBranch("feature")
	gitRepo.WriteFile("b.txt", "b")
	gitRepo.Commit("commit 1")
	gitRepo.WriteFile("c.txt", "c")
	gitRepo.Commit("commit 2")
	gitRepo.Checkout("main")

	client := newClient(t, gitRepo)
	plan, err := client.BuildSquashPlan(context.Background(), "feature")
	testutil.AssertNoError(t, err)
	testutil.AssertLen(t, plan.CommitsToApply, 2)
	testutil.AssertFalse(t, plan.Ambiguous, "linear history should not be ambiguous")
	if plan.MainlineParentIdx != nil {
		t.Fatalf("expected nil mainline index for linear history, got %v", *plan.MainlineParentIdx)
	}
}

func TestApplyCherryPickSequence_Completed(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateBranch("feature")
	gitRepo.WriteFile("b.txt", "b")
	oid := gitRepo.Commit("add b")
	gitRepo.Checkout("main")

	client := newClient(t, gitRepo)
	ctx := context.Background()
	head, err := client.BranchHead(ctx, "main")
	testutil.AssertNoError(t, err)

	outcome, err := client.ApplyCherryPickSequence(ctx, head, []string{oid}, "", nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(outcome.Kind), "completed")
	testutil.AssertLen(t, outcome.Applied, 1)
}

func TestApplyCherryPickSequence_HeadMoved(t *testing.T) {
	gitRepo := testutil.NewGitRepo(t)
	gitRepo.WriteFile("a.txt", "a")
	gitRepo.Commit("initial")
	gitRepo.CreateBranch("feature")
	gitRepo.WriteFile("b.txt", "b")
	oid := gitRepo.Commit("add b")
	gitRepo.Checkout("main")

	client := newClient(t, gitRepo)
	ctx := context.Background()
	staleHead, err := client.BranchHead(ctx, "main")
	testutil.AssertNoError(t, err)

	gitRepo.WriteFile("c.txt", "c")
	gitRepo.Commit("moves head")

	_, err = client.ApplyCherryPickSequence(ctx, staleHead, []string{oid}, "", nil)
	testutil.AssertError(t, err)
}
