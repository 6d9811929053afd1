package template

import "github.com/hugo-lorenzo-mato/quorum-ai/internal/core"

// NodeArtifacts is the artifact set one node contributes: its declared
// produces.succeeded/failed lists, plus the synthetic operation-output
// artifact every node emits on success regardless of what it declares
// (spec.md §4.2 step 8).
type NodeArtifacts struct {
	Succeeded       []core.Artifact
	Failed          []core.Artifact
	OperationOutput core.Artifact
}

// ArtifactEnumeration is the full per-node artifact catalogue for a prepared
// template, used by `vizier audit` and by untethered-input detection.
type ArtifactEnumeration struct {
	ByNode map[string]NodeArtifacts
}

// enumerateArtifacts builds the artifact catalogue for every node in the
// template (spec.md §4.2 step 8).
func enumerateArtifacts(tpl *core.WorkflowTemplate) ArtifactEnumeration {
	byNode := make(map[string]NodeArtifacts, len(tpl.Nodes))
	for _, node := range tpl.Nodes {
		na := NodeArtifacts{
			Succeeded:       node.Produces[core.OutcomeSucceeded],
			Failed:          node.Produces[core.OutcomeFailed],
			OperationOutput: core.OperationOutputArtifact(node.ID),
		}
		byNode[node.ID] = na
	}
	return ArtifactEnumeration{ByNode: byNode}
}

// allProducedArtifactIDs returns the set of artifact IDs produced by some
// node's succeeded-list, failed-list, or synthetic operation-output — used
// to test whether a `needs` entry is satisfied internally (spec.md §4.2
// step 9).
func allProducedArtifactIDs(enum ArtifactEnumeration) map[string]bool {
	produced := make(map[string]bool)
	for _, na := range enum.ByNode {
		for _, a := range na.Succeeded {
			produced[a.ID()] = true
		}
		for _, a := range na.Failed {
			produced[a.ID()] = true
		}
		produced[na.OperationOutput.ID()] = true
	}
	return produced
}
