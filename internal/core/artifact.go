package core

import (
	"fmt"
	"strings"
)

// ArtifactKind discriminates the artifact descriptor sum type (spec.md §3).
type ArtifactKind string

const (
	ArtifactPlanBranch    ArtifactKind = "plan_branch"
	ArtifactPlanDoc       ArtifactKind = "plan_doc"
	ArtifactPlanCommits   ArtifactKind = "plan_commits"
	ArtifactTargetBranch  ArtifactKind = "target_branch"
	ArtifactMergeSentinel ArtifactKind = "merge_sentinel"
	ArtifactAskSavePatch  ArtifactKind = "ask_save_patch"
	ArtifactCustom        ArtifactKind = "custom"
)

// Artifact is the sum-type descriptor produced/consumed by workflow nodes.
// Only the fields relevant to Kind are populated; the zero value of the
// others is ignored.
type Artifact struct {
	Kind   ArtifactKind `json:"kind"`
	Slug   string       `json:"slug,omitempty"`   // PlanBranch, PlanDoc, PlanCommits, MergeSentinel
	Branch string       `json:"branch,omitempty"` // PlanBranch, PlanDoc, PlanCommits, TargetBranch
	Name   string       `json:"name,omitempty"`   // TargetBranch
	JobID  string       `json:"job_id,omitempty"` // AskSavePatch
	TypeID string       `json:"type_id,omitempty"` // Custom
	Key    string        `json:"key,omitempty"`     // Custom
}

// PlanBranchArtifact constructs a PlanBranch descriptor.
func PlanBranchArtifact(slug, branch string) Artifact {
	return Artifact{Kind: ArtifactPlanBranch, Slug: slug, Branch: branch}
}

// PlanDocArtifact constructs a PlanDoc descriptor.
func PlanDocArtifact(slug, branch string) Artifact {
	return Artifact{Kind: ArtifactPlanDoc, Slug: slug, Branch: branch}
}

// PlanCommitsArtifact constructs a PlanCommits descriptor.
func PlanCommitsArtifact(slug, branch string) Artifact {
	return Artifact{Kind: ArtifactPlanCommits, Slug: slug, Branch: branch}
}

// TargetBranchArtifact constructs a TargetBranch descriptor.
func TargetBranchArtifact(name string) Artifact {
	return Artifact{Kind: ArtifactTargetBranch, Name: name}
}

// MergeSentinelArtifact constructs a MergeSentinel descriptor.
func MergeSentinelArtifact(slug string) Artifact {
	return Artifact{Kind: ArtifactMergeSentinel, Slug: slug}
}

// AskSavePatchArtifact constructs an AskSavePatch descriptor.
func AskSavePatchArtifact(jobID string) Artifact {
	return Artifact{Kind: ArtifactAskSavePatch, JobID: jobID}
}

// CustomArtifact constructs a Custom descriptor.
func CustomArtifact(typeID, key string) Artifact {
	return Artifact{Kind: ArtifactCustom, TypeID: typeID, Key: key}
}

// OperationOutputArtifact builds the synthetic default artifact every node
// emits on success (spec.md §4.2 step 8).
func OperationOutputArtifact(nodeID string) Artifact {
	return CustomArtifact("operation_output", nodeID)
}

// ID returns the canonical string form of the descriptor, used as the
// marker file key under .vizier/jobs/artifacts/<type>/<hashprefix>/ and as
// the audit JSON representation.
func (a Artifact) ID() string {
	switch a.Kind {
	case ArtifactPlanBranch:
		return fmt.Sprintf("plan_branch:%s:%s", a.Slug, a.Branch)
	case ArtifactPlanDoc:
		return fmt.Sprintf("plan_doc:%s:%s", a.Slug, a.Branch)
	case ArtifactPlanCommits:
		return fmt.Sprintf("plan_commits:%s:%s", a.Slug, a.Branch)
	case ArtifactTargetBranch:
		return fmt.Sprintf("target_branch:%s", a.Name)
	case ArtifactMergeSentinel:
		return fmt.Sprintf("merge_sentinel:%s", a.Slug)
	case ArtifactAskSavePatch:
		return fmt.Sprintf("ask_save_patch:%s", a.JobID)
	case ArtifactCustom:
		return fmt.Sprintf("custom:%s:%s", a.TypeID, a.Key)
	default:
		return fmt.Sprintf("unknown:%s", a.Kind)
	}
}

// Type returns the type_id component alone, used for grouping in audit
// output (output_artifacts_by_outcome, the artifacts/<type>/ directory).
func (a Artifact) Type() string {
	parts := strings.SplitN(a.ID(), ":", 2)
	return parts[0]
}

// Validate checks artifact invariants.
func (a Artifact) Validate() error {
	switch a.Kind {
	case ArtifactPlanBranch, ArtifactPlanDoc, ArtifactPlanCommits:
		if a.Slug == "" || a.Branch == "" {
			return ErrValidation("ARTIFACT_FIELDS_REQUIRED", fmt.Sprintf("%s requires slug and branch", a.Kind))
		}
	case ArtifactTargetBranch:
		if a.Name == "" {
			return ErrValidation("ARTIFACT_FIELDS_REQUIRED", "target_branch requires name")
		}
	case ArtifactMergeSentinel:
		if a.Slug == "" {
			return ErrValidation("ARTIFACT_FIELDS_REQUIRED", "merge_sentinel requires slug")
		}
	case ArtifactAskSavePatch:
		if a.JobID == "" {
			return ErrValidation("ARTIFACT_FIELDS_REQUIRED", "ask_save_patch requires job_id")
		}
	case ArtifactCustom:
		if a.TypeID == "" || a.Key == "" {
			return ErrValidation("ARTIFACT_FIELDS_REQUIRED", "custom artifact requires type_id and key")
		}
	default:
		return ErrValidation("ARTIFACT_KIND_INVALID", fmt.Sprintf("unknown artifact kind: %s", a.Kind))
	}
	return nil
}

// ArtifactContract is a declared (type_id, version) pair a template may
// produce or consume (spec.md §3).
type ArtifactContract struct {
	TypeID  string `json:"type_id"`
	Version string `json:"version"`
}
