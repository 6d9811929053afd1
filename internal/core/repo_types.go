package core

import "fmt"

// RepoState classifies whether the working tree is mid some other git
// operation (merge/rebase/bisect/cherry-pick/revert), used by release
// preconditions and by the worktree-apply pipeline.
type RepoState string

const (
	RepoStateClean        RepoState = "clean"
	RepoStateMerging      RepoState = "merging"
	RepoStateRebasing     RepoState = "rebasing"
	RepoStateBisecting    RepoState = "bisecting"
	RepoStateCherryPicking RepoState = "cherry_picking"
	RepoStateReverting    RepoState = "reverting"
)

// MergeOutcomeKind discriminates PrepareMerge's result.
type MergeOutcomeKind string

const (
	MergeReady      MergeOutcomeKind = "ready"
	MergeConflicted MergeOutcomeKind = "conflicted"
)

// MergeOutcome is the tagged-union result of prepare_merge (spec.md §4.1).
type MergeOutcome struct {
	Kind   MergeOutcomeKind
	Head   string
	Source string
	Tree   string   // populated when Kind == MergeReady
	Files  []string // populated when Kind == MergeConflicted
}

// MergeReadyResult builds a Ready outcome.
func MergeReadyResult(head, source, tree string) MergeOutcome {
	return MergeOutcome{Kind: MergeReady, Head: head, Source: source, Tree: tree}
}

// MergeConflictedResult builds a Conflicted outcome.
func MergeConflictedResult(head, source string, files []string) MergeOutcome {
	return MergeOutcome{Kind: MergeConflicted, Head: head, Source: source, Files: files}
}

// SquashPlan is the result of build_squash_plan (spec.md §4.1).
type SquashPlan struct {
	CommitsToApply     []string
	MainlineParentIdx  *int // nil when not applicable (no multi-parent commits)
	Ambiguous          bool
}

// CherryPickOutcomeKind discriminates apply_cherry_pick_sequence's result.
type CherryPickOutcomeKind string

const (
	CherryPickCompleted   CherryPickOutcomeKind = "completed"
	CherryPickConflicted  CherryPickOutcomeKind = "conflicted"
)

// CherryPickOutcome is the tagged-union result of
// apply_cherry_pick_sequence (spec.md §4.1).
type CherryPickOutcome struct {
	Kind      CherryPickOutcomeKind
	Applied   []string
	Remaining []string // populated when Kind == CherryPickConflicted
	Files     []string // populated when Kind == CherryPickConflicted
}

// CredentialStrategy names one step of the fixed push-credential attempt
// order (spec.md §4.1).
type CredentialStrategy string

const (
	CredentialHelper        CredentialStrategy = "credential_helper"
	CredentialSSHEd25519    CredentialStrategy = "ssh_ed25519"
	CredentialSSHRSA        CredentialStrategy = "ssh_rsa"
	CredentialUsernameOnly  CredentialStrategy = "username_only"
	CredentialDefault       CredentialStrategy = "default"
)

// CredentialOutcomeKind classifies one attempt's result.
type CredentialOutcomeKind string

const (
	CredentialSuccess CredentialOutcomeKind = "success"
	CredentialFailure CredentialOutcomeKind = "failure"
	CredentialSkipped CredentialOutcomeKind = "skipped"
)

// CredentialAttempt records one strategy's outcome in the push credential
// plan's attempt log.
type CredentialAttempt struct {
	Strategy CredentialStrategy     `json:"strategy"`
	Outcome  CredentialOutcomeKind  `json:"outcome"`
	Message  string                 `json:"message,omitempty"`
}

// PushErrorKind discriminates push_current_branch's failure modes.
type PushErrorKind string

const (
	PushErrorAuth    PushErrorKind = "auth"
	PushErrorGeneral PushErrorKind = "general"
)

// PushError is the typed error raised by push_current_branch.
type PushError struct {
	Kind     PushErrorKind
	Remote   string
	URL      string
	Scheme   string
	Attempts []CredentialAttempt
	Message  string
}

func (e *PushError) Error() string {
	if e.Kind == PushErrorAuth {
		return fmt.Sprintf("push to %s failed: all credential strategies exhausted (%d attempts)", e.Remote, len(e.Attempts))
	}
	return fmt.Sprintf("push to %s failed: %s", e.Remote, e.Message)
}

// ReleaseBump is the semver component a release bumps.
type ReleaseBump string

const (
	BumpNone  ReleaseBump = "none"
	BumpPatch ReleaseBump = "patch"
	BumpMinor ReleaseBump = "minor"
	BumpMajor ReleaseBump = "major"
)

// bumpRank orders bumps for max(auto, forced) selection (spec.md §4.6 step 2).
var bumpRank = map[ReleaseBump]int{
	BumpNone:  0,
	BumpPatch: 1,
	BumpMinor: 2,
	BumpMajor: 3,
}

// MaxBump returns the higher-priority of two bumps.
func MaxBump(a, b ReleaseBump) ReleaseBump {
	if bumpRank[b] > bumpRank[a] {
		return b
	}
	return a
}

// SemVer is a parsed `vMAJOR.MINOR.PATCH` release tag.
type SemVer struct {
	Major, Minor, Patch int
}

// String renders the tag as `vMAJOR.MINOR.PATCH`.
func (v SemVer) String() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bump applies a release bump, returning the next version.
func (v SemVer) Bump(b ReleaseBump) SemVer {
	switch b {
	case BumpMajor:
		return SemVer{Major: v.Major + 1, Minor: 0, Patch: 0}
	case BumpMinor:
		return SemVer{Major: v.Major, Minor: v.Minor + 1, Patch: 0}
	case BumpPatch:
		return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return v
	}
}

// ReleaseNotes is the rendered markdown-shaped preview of a release.
type ReleaseNotes struct {
	Version  string
	Sections map[string][]string // section heading -> bullet lines, e.g. "Features" -> [...]
}
