package cli

import (
	"sort"
	"strconv"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/template"
)

// AuditOptions is the parsed form of `vizier audit <selector> ...`.
type AuditOptions struct {
	Selector string
	Strict   bool
	Format   string
}

// AuditArtifactRef is one entry in AuditOutput's output-artifact lists: an
// artifact's canonical id plus the node that produces it.
type AuditArtifactRef struct {
	NodeID     string `json:"node_id"`
	ArtifactID string `json:"artifact_id"`
}

// AuditUntethered mirrors one template.UntetheredInput for the audit JSON
// payload.
type AuditUntethered struct {
	ArtifactID string   `json:"artifact_id"`
	Consumers  []string `json:"consumers"`
}

// AuditEffectiveLock is one node's effective lock set, rendered flat for
// the audit JSON payload.
type AuditEffectiveLock struct {
	NodeID string    `json:"node_id"`
	Key    string    `json:"key"`
	Mode   string    `json:"mode"`
}

// AuditOutput is the spec.md §6 `vizier audit` JSON schema.
type AuditOutput struct {
	Outcome                 string                  `json:"outcome"`
	WorkflowTemplateSelector string                 `json:"workflow_template_selector"`
	WorkflowTemplateID      string                  `json:"workflow_template_id"`
	WorkflowTemplateVersion string                  `json:"workflow_template_version"`
	NodeCount               int                     `json:"node_count"`
	OutputArtifacts         []AuditArtifactRef       `json:"output_artifacts"`
	OutputArtifactsByOutcome struct {
		Succeeded []AuditArtifactRef `json:"succeeded"`
		Failed    []AuditArtifactRef `json:"failed"`
	} `json:"output_artifacts_by_outcome"`
	Summary struct {
		UntetheredCount int  `json:"untethered_count"`
		HasUntethered   bool `json:"has_untethered"`
	} `json:"summary"`
	UntetheredInputs []AuditUntethered     `json:"untethered_inputs"`
	EffectiveLocks   []AuditEffectiveLock  `json:"effective_locks"`
}

// RunAudit runs the same queue-time preflight pipeline `vizier run` does,
// without ever enqueuing a job or writing a run manifest (spec.md §6:
// "Audit never writes a run manifest, never enqueues a job"), and renders
// the artifact/lock/untethered-input catalogue it computed.
func RunAudit(deps *Deps, opts AuditOptions) (*AuditOutput, error) {
	prepared, err := template.PrepareWorkflowTemplate(deps.ProjectRoot, opts.Selector, nil, nil, deps.Config)
	if err != nil {
		return nil, usageErrorFromPrepare(err)
	}

	out := &AuditOutput{
		Outcome:                  "ok",
		WorkflowTemplateSelector: prepared.Source.Selector,
		WorkflowTemplateID:       prepared.Template.ID,
		WorkflowTemplateVersion:  prepared.Template.Version,
		NodeCount:                len(prepared.Template.Nodes),
	}

	nodeIDs := make([]string, 0, len(prepared.Template.Nodes))
	for _, node := range prepared.Template.Nodes {
		nodeIDs = append(nodeIDs, node.ID)
	}
	sort.Strings(nodeIDs)

	for _, nodeID := range nodeIDs {
		na := prepared.Artifacts.ByNode[nodeID]
		for _, a := range na.Succeeded {
			ref := AuditArtifactRef{NodeID: nodeID, ArtifactID: a.ID()}
			out.OutputArtifacts = append(out.OutputArtifacts, ref)
			out.OutputArtifactsByOutcome.Succeeded = append(out.OutputArtifactsByOutcome.Succeeded, ref)
		}
		for _, a := range na.Failed {
			ref := AuditArtifactRef{NodeID: nodeID, ArtifactID: a.ID()}
			out.OutputArtifacts = append(out.OutputArtifacts, ref)
			out.OutputArtifactsByOutcome.Failed = append(out.OutputArtifactsByOutcome.Failed, ref)
		}
		opRef := AuditArtifactRef{NodeID: nodeID, ArtifactID: na.OperationOutput.ID()}
		out.OutputArtifacts = append(out.OutputArtifacts, opRef)
		out.OutputArtifactsByOutcome.Succeeded = append(out.OutputArtifactsByOutcome.Succeeded, opRef)

		for _, lock := range prepared.NodeLocks[nodeID] {
			out.EffectiveLocks = append(out.EffectiveLocks, AuditEffectiveLock{
				NodeID: nodeID, Key: lock.Key, Mode: string(lock.Mode),
			})
		}
	}

	out.Summary.UntetheredCount = prepared.Untethered.Summary.UntetheredCount
	out.Summary.HasUntethered = prepared.Untethered.Summary.HasUntethered
	for _, u := range prepared.Untethered.UntetheredInputs {
		out.UntetheredInputs = append(out.UntetheredInputs, AuditUntethered{
			ArtifactID: u.Artifact.ID(), Consumers: u.Consumers,
		})
	}

	if opts.Strict && out.Summary.HasUntethered {
		out.Outcome = "untethered"
		return out, &BlockedError{Message: "audit found " + strconv.Itoa(out.Summary.UntetheredCount) + " untethered input(s)"}
	}
	return out, nil
}
