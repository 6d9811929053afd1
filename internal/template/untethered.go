package template

import "github.com/hugo-lorenzo-mato/quorum-ai/internal/core"

// UntetheredInput is a `needs` entry no node in the template satisfies.
type UntetheredInput struct {
	Artifact  core.Artifact
	Consumers []string
}

// UntetheredSummary is the audit-facing rollup of UntetheredReport.
type UntetheredSummary struct {
	HasUntethered   bool
	UntetheredCount int
}

// UntetheredReport is the result of spec.md §4.2 step 9.
type UntetheredReport struct {
	Summary          UntetheredSummary
	UntetheredInputs []UntetheredInput
}

// isExternallyProvided reports whether an artifact kind is assumed to exist
// in the host repository independent of any node producing it. A
// target_branch names a branch that already exists before the workflow
// runs — it is an input to the template, not an output of any node — so it
// is never "untethered" even when no node declares it in produces.
func isExternallyProvided(a core.Artifact) bool {
	return a.Kind == core.ArtifactTargetBranch
}

// detectUntethered collects every `needs` artifact that is not produced by
// any node in the template and is not externally provided (spec.md §4.2
// step 9). Consumers are grouped by artifact ID, preserving node order.
func detectUntethered(tpl *core.WorkflowTemplate, enum ArtifactEnumeration) UntetheredReport {
	produced := allProducedArtifactIDs(enum)

	order := make([]string, 0)
	byID := make(map[string]*UntetheredInput)

	for _, node := range tpl.Nodes {
		for _, need := range node.Needs {
			artifact := need.Artifact
			if produced[artifact.ID()] || isExternallyProvided(artifact) {
				continue
			}
			entry, ok := byID[artifact.ID()]
			if !ok {
				entry = &UntetheredInput{Artifact: artifact}
				byID[artifact.ID()] = entry
				order = append(order, artifact.ID())
			}
			entry.Consumers = append(entry.Consumers, node.ID)
		}
	}

	inputs := make([]UntetheredInput, 0, len(order))
	for _, id := range order {
		inputs = append(inputs, *byID[id])
	}

	return UntetheredReport{
		Summary: UntetheredSummary{
			HasUntethered:   len(inputs) > 0,
			UntetheredCount: len(inputs),
		},
		UntetheredInputs: inputs,
	}
}
