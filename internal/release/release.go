// Package release implements the release transaction of spec.md §4.6:
// plan a semver bump from Conventional Commits history, act (commit +
// annotated tag + gate script), and roll the transaction back atomically
// if the gate script fails.
package release

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/logging"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/repo"
)

// Options configures one release invocation (spec.md §6, `vizier release`).
type Options struct {
	ForcedBump      *core.ReleaseBump
	DryRun          bool
	NoTag           bool
	ReleaseScript   string
	NoReleaseScript bool
	MaxCommits      int
}

// Plan is the computed release plan, ready to act on or print as a dry run.
type Plan struct {
	LastTag      string
	HasLastTag   bool
	BaseVersion  core.SemVer
	AutoBump     core.ReleaseBump
	SelectedBump core.ReleaseBump
	ForcedBump   *core.ReleaseBump
	NextVersion  core.SemVer
	TargetTag    string
	Commits      []core.CommitInfo
	Notes        core.ReleaseNotes
	// Overflow is how many releasable commits were trimmed from Notes by
	// Options.MaxCommits.
	Overflow int
}

// RollbackOutcome records what a failed release's rollback actually
// managed to undo, so the caller can print manual-recovery instructions
// when it didn't fully succeed.
type RollbackOutcome struct {
	TagRemoved       *bool
	BranchRestored   bool
	WorktreeRestored bool
	Errors           []string
}

// Succeeded reports whether every rollback sub-step completed cleanly.
func (o RollbackOutcome) Succeeded() bool {
	return len(o.Errors) == 0 &&
		(o.TagRemoved == nil || *o.TagRemoved) &&
		o.BranchRestored &&
		o.WorktreeRestored
}

// transaction captures what Execute needs to roll back (spec.md §4.6 step 4).
type transaction struct {
	startHead     string
	branchName    string
	createdCommit string
	createdTag    *string
}

// Result is the outcome of Execute.
type Result struct {
	Outcome          string // "noop", "dry_run", "completed", "failed"
	CommitOID        string
	TagCreated       bool
	TargetTag        string
	ScriptRan        bool
	ScriptExitCode   int
	Rollback         *RollbackOutcome
	RecoveryCommands []string
}

// Runner executes the release transaction against a RepoGateway.
type Runner struct {
	Gateway     core.RepoGateway
	ProjectRoot string
	Shell       string
	Logger      *logging.Logger
}

func (r *Runner) shell() string {
	if r.Shell != "" {
		return r.Shell
	}
	return "/bin/sh"
}

func (r *Runner) logger() *logging.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logging.NewNop()
}

// releaseStateMessages mirrors the preconditions check of spec.md §4.6
// step 1: release is refused while the repo is mid any other git
// operation.
var releaseStateMessages = map[core.RepoState]string{
	core.RepoStateMerging:       "cannot release while a merge is in progress",
	core.RepoStateRebasing:      "cannot release while a rebase is in progress",
	core.RepoStateBisecting:     "cannot release while a bisect is in progress",
	core.RepoStateCherryPicking: "cannot release while a cherry-pick is in progress",
	core.RepoStateReverting:     "cannot release while a revert is in progress",
}

// Plan computes the release plan: latest reachable tag, commits since,
// the Conventional-Commits-derived bump, and the rendered release notes
// (spec.md §4.6 steps 1-2).
func (r *Runner) Plan(ctx context.Context, opts Options) (*Plan, error) {
	state, err := r.Gateway.State(ctx)
	if err != nil {
		return nil, err
	}
	if state != core.RepoStateClean {
		message := releaseStateMessages[state]
		if message == "" {
			message = fmt.Sprintf("cannot release while repo is in state %s", state)
		}
		return nil, core.ErrState("RELEASE_PRECONDITION_FAILED", message)
	}

	branch, err := r.Gateway.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		return nil, core.ErrState("RELEASE_DETACHED_HEAD", "cannot release from detached HEAD; checkout a branch first")
	}

	clean, err := r.Gateway.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, core.ErrState("RELEASE_DIRTY_WORKTREE", "working tree must be clean (modulo .vizier/{jobs,sessions,tmp,tmp-worktrees}) to release")
	}

	lastTag, hasTag, err := r.Gateway.LatestReachableReleaseTag(ctx)
	if err != nil {
		return nil, err
	}
	commits, err := r.Gateway.CommitsSinceReleaseTag(ctx, lastTag)
	if err != nil {
		return nil, err
	}

	baseVersion := core.SemVer{}
	if hasTag {
		baseVersion, err = repo.ParseReleaseVersionTag(lastTag)
		if err != nil {
			return nil, core.ErrValidation("RELEASE_TAG_INVALID", err.Error())
		}
	}

	autoBump := repo.DeriveReleaseBump(commits)
	selectedBump := autoBump
	if opts.ForcedBump != nil {
		selectedBump = core.MaxBump(autoBump, *opts.ForcedBump)
	}
	nextVersion := baseVersion.Bump(selectedBump)
	targetTag := nextVersion.String()

	notes, err := r.Gateway.BuildReleaseNotes(ctx, targetTag, commits)
	if err != nil {
		return nil, err
	}
	overflow := 0
	if opts.MaxCommits > 0 {
		overflow = trimReleaseNotes(&notes, opts.MaxCommits)
	}

	return &Plan{
		LastTag:      lastTag,
		HasLastTag:   hasTag,
		BaseVersion:  baseVersion,
		AutoBump:     autoBump,
		SelectedBump: selectedBump,
		ForcedBump:   opts.ForcedBump,
		NextVersion:  nextVersion,
		TargetTag:    targetTag,
		Commits:      commits,
		Notes:        notes,
		Overflow:     overflow,
	}, nil
}

// trimReleaseNotes caps the total number of bullet lines across all
// sections at max, in releaseSectionOrder priority, returning how many
// were dropped.
func trimReleaseNotes(notes *core.ReleaseNotes, max int) int {
	order := []string{"Breaking Changes", "Features", "Fixes/Performance", "Other"}
	remaining := max
	overflow := 0
	for _, section := range order {
		lines := notes.Sections[section]
		if len(lines) <= remaining {
			remaining -= len(lines)
			continue
		}
		overflow += len(lines) - remaining
		notes.Sections[section] = lines[:remaining]
		remaining = 0
	}
	return overflow
}

// Execute runs the release transaction's Act step and, on gate-script
// failure, rolls it back atomically (spec.md §4.6 steps 3-6).
func (r *Runner) Execute(ctx context.Context, plan *Plan, opts Options) (*Result, error) {
	if plan.SelectedBump == core.BumpNone {
		return &Result{Outcome: "noop"}, nil
	}

	exists, err := r.Gateway.TagExists(ctx, plan.TargetTag)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, core.ErrState("RELEASE_TAG_EXISTS", fmt.Sprintf("target release tag %s already exists; choose a different bump or remove the tag", plan.TargetTag))
	}

	if opts.DryRun {
		return &Result{Outcome: "dry_run", TargetTag: plan.TargetTag}, nil
	}

	branch, err := r.Gateway.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	startHead, err := r.Gateway.BranchHead(ctx, branch)
	if err != nil {
		return nil, err
	}

	commitOID, err := r.Gateway.CommitStaged(ctx, r.buildCommitMessage(plan), true)
	if err != nil {
		return nil, err
	}
	r.logger().Info("release: committed", "tag", plan.TargetTag, "commit", commitOID, "bump", string(plan.SelectedBump))

	txn := transaction{startHead: startHead, branchName: branch, createdCommit: commitOID}

	tagCreated := false
	if !opts.NoTag {
		if exists, err := r.Gateway.TagExists(ctx, plan.TargetTag); err != nil {
			return nil, err
		} else if exists {
			return nil, core.ErrState("RELEASE_TAG_EXISTS", fmt.Sprintf("target release tag %s already exists; release commit created but tagging aborted", plan.TargetTag))
		}
		if err := r.Gateway.CreateAnnotatedTag(ctx, plan.TargetTag, r.buildTagAnnotation(plan)); err != nil {
			return nil, err
		}
		tagCreated = true
		txn.createdTag = &plan.TargetTag
	}

	result := &Result{
		Outcome:    "completed",
		CommitOID:  commitOID,
		TagCreated: tagCreated,
		TargetTag:  plan.TargetTag,
	}

	script := opts.ReleaseScript
	if opts.NoReleaseScript {
		script = ""
	}
	if script == "" {
		return result, nil
	}

	exitCode, runErr := r.runReleaseScript(ctx, script, plan, commitOID, tagCreated)
	result.ScriptRan = true
	result.ScriptExitCode = exitCode
	if runErr == nil && exitCode == 0 {
		return result, nil
	}

	r.logger().Error("release: gate script failed, rolling back", "tag", plan.TargetTag, "exit_code", exitCode)
	rollback := r.rollback(ctx, txn)
	result.Outcome = "failed"
	result.Rollback = &rollback
	result.RecoveryCommands = buildRecoveryCommands(txn)

	if rollback.Succeeded() {
		return result, core.ErrExecution("RELEASE_SCRIPT_FAILED", fmt.Sprintf("release script failed (exit %d); release commit/tag rolled back", exitCode))
	}
	return result, core.ErrExecution("RELEASE_ROLLBACK_INCOMPLETE", fmt.Sprintf("release script failed (exit %d); rollback incomplete; see recovery commands", exitCode))
}

func (r *Runner) runReleaseScript(ctx context.Context, script string, plan *Plan, commitOID string, tagCreated bool) (int, error) {
	tag := ""
	if tagCreated {
		tag = plan.TargetTag
	}
	cmd := exec.CommandContext(ctx, r.shell(), "-c", script)
	cmd.Dir = r.ProjectRoot
	cmd.Env = append(os.Environ(),
		"VIZIER_RELEASE_VERSION="+plan.NextVersion.String(),
		"VIZIER_RELEASE_TAG="+tag,
		"VIZIER_RELEASE_COMMIT="+commitOID,
		"VIZIER_RELEASE_RANGE="+commitRangeLabel(plan),
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), fmt.Errorf("release script exited %d", exitErr.ExitCode())
		}
		return -1, fmt.Errorf("release script failed to start: %w", err)
	}
	return 0, nil
}

// rollback undoes a release transaction: delete the created tag, reset
// the branch ref to start_head, and force-checkout the branch so the
// worktree matches (spec.md §4.6 step 6).
func (r *Runner) rollback(ctx context.Context, txn transaction) RollbackOutcome {
	var outcome RollbackOutcome

	if txn.createdTag != nil {
		if err := r.Gateway.DeleteTag(ctx, *txn.createdTag); err != nil {
			failed := false
			outcome.TagRemoved = &failed
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to delete tag %s: %s", *txn.createdTag, err))
		} else {
			ok := true
			outcome.TagRemoved = &ok
		}
	}

	if err := r.Gateway.ResetBranchHard(ctx, txn.branchName, txn.startHead); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to reset branch %s to %s: %s", txn.branchName, txn.startHead, err))
	} else {
		outcome.BranchRestored = true
	}

	if err := r.Gateway.ForceCheckout(ctx, txn.branchName); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("failed to checkout branch %s during rollback: %s", txn.branchName, err))
	} else {
		outcome.WorktreeRestored = true
	}

	return outcome
}

func buildRecoveryCommands(txn transaction) []string {
	commands := []string{
		fmt.Sprintf("git checkout %s", txn.branchName),
		fmt.Sprintf("git reset --hard %s", txn.startHead),
	}
	if txn.createdTag != nil {
		commands = append(commands, fmt.Sprintf("git tag -d %s", *txn.createdTag))
	}
	return commands
}

func commitRangeLabel(plan *Plan) string {
	if plan.HasLastTag {
		return plan.LastTag + "..HEAD"
	}
	return "<repo-root>..HEAD"
}

func releasableCommitCount(commits []core.CommitInfo) int {
	count := 0
	for _, commit := range commits {
		bump, _ := repo.ClassifyCommit(commit.Subject, commit.Body)
		if bump != core.BumpNone {
			count++
		}
	}
	return count
}

func (r *Runner) buildCommitMessage(plan *Plan) string {
	var body strings.Builder
	fmt.Fprintf(&body, "Previous version: v%d.%d.%d\n", plan.BaseVersion.Major, plan.BaseVersion.Minor, plan.BaseVersion.Patch)
	fmt.Fprintf(&body, "New version: %s\n", plan.NextVersion.String())
	fmt.Fprintf(&body, "Bump: %s\n", plan.SelectedBump)
	fmt.Fprintf(&body, "Commit range: %s\n", commitRangeLabel(plan))
	fmt.Fprintf(&body, "Commits scanned: %d\n", len(plan.Commits))
	fmt.Fprintf(&body, "Releasable commits: %d\n\n", releasableCommitCount(plan.Commits))
	body.WriteString("Release Notes:\n")
	body.WriteString(renderNotesMarkdown(plan.Notes))
	return fmt.Sprintf("chore(release): %s\n\n%s", plan.NextVersion.String(), body.String())
}

func (r *Runner) buildTagAnnotation(plan *Plan) string {
	return fmt.Sprintf(
		"Release %s\n\nFrom: v%d.%d.%d\nBump: %s\nCommits scanned: %d\nReleasable commits: %d",
		plan.TargetTag, plan.BaseVersion.Major, plan.BaseVersion.Minor, plan.BaseVersion.Patch,
		plan.SelectedBump, len(plan.Commits), releasableCommitCount(plan.Commits),
	)
}

func renderNotesMarkdown(notes core.ReleaseNotes) string {
	order := []string{"Breaking Changes", "Features", "Fixes/Performance", "Other"}
	var out strings.Builder
	any := false
	for _, section := range order {
		lines := notes.Sections[section]
		if len(lines) == 0 {
			continue
		}
		any = true
		fmt.Fprintf(&out, "%s:\n", section)
		for _, line := range lines {
			fmt.Fprintf(&out, "  - %s\n", line)
		}
	}
	if !any {
		return "- No release notes entries\n"
	}
	return out.String()
}
