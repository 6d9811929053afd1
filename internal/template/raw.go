// Package template implements the template model and queue-time preflight
// pipeline (spec.md §4.2): resolving a flow name to an on-disk workflow
// source, parsing it, mapping CLI inputs onto declared parameters, inlining
// plan-spec files, validating entrypoint inputs, inferring locks, enumerating
// artifacts, and detecting untethered needs.
package template

import (
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// rawTemplate is the on-disk shape of a workflow source file, decoded
// directly from TOML or HCL. The parser libraries do the grammar work; this
// struct only describes the table layout. Converting to core.WorkflowTemplate
// (toTemplate) is this package's job, not the parser's.
type rawTemplate struct {
	ID      string            `toml:"id" hcl:"id"`
	Version string            `toml:"version" hcl:"version"`
	Params  map[string]string `toml:"params" hcl:"params"`

	CLI struct {
		Positional []string          `toml:"positional" hcl:"positional"`
		Named      map[string]string `toml:"named" hcl:"named"`
	} `toml:"cli" hcl:"cli"`

	ArtifactContracts []rawArtifactContract `toml:"artifact_contracts" hcl:"artifact_contracts"`

	Nodes []rawNode `toml:"nodes" hcl:"nodes"`
}

type rawArtifactContract struct {
	TypeID  string `toml:"type_id" hcl:"type_id"`
	Version string `toml:"version" hcl:"version"`
}

type rawArtifact struct {
	Kind   string `toml:"kind" hcl:"kind"`
	Slug   string `toml:"slug" hcl:"slug"`
	Branch string `toml:"branch" hcl:"branch"`
	Name   string `toml:"name" hcl:"name"`
	JobID  string `toml:"job_id" hcl:"job_id"`
	TypeID string `toml:"type_id" hcl:"type_id"`
	Key    string `toml:"key" hcl:"key"`
}

func (a rawArtifact) toCore() core.Artifact {
	return core.Artifact{
		Kind:   core.ArtifactKind(a.Kind),
		Slug:   a.Slug,
		Branch: a.Branch,
		Name:   a.Name,
		JobID:  a.JobID,
		TypeID: a.TypeID,
		Key:    a.Key,
	}
}

type rawNeed struct {
	Artifact rawArtifact `toml:"artifact" hcl:"artifact"`
}

type rawProduces struct {
	Succeeded []rawArtifact `toml:"succeeded" hcl:"succeeded"`
	Failed    []rawArtifact `toml:"failed" hcl:"failed"`
}

type rawLock struct {
	Key  string `toml:"key" hcl:"key"`
	Mode string `toml:"mode" hcl:"mode"`
}

type rawRetry struct {
	MaxAttempts    int `toml:"max_attempts" hcl:"max_attempts"`
	BackoffSeconds int `toml:"backoff_seconds" hcl:"backoff_seconds"`
}

type rawOn struct {
	Succeeded []string `toml:"succeeded" hcl:"succeeded"`
	Failed    []string `toml:"failed" hcl:"failed"`
}

type rawNode struct {
	ID   string            `toml:"id" hcl:"id"`
	Kind string            `toml:"kind" hcl:"kind"`
	Uses string            `toml:"uses" hcl:"uses"`
	Args map[string]string `toml:"args" hcl:"args"`

	After []string `toml:"after" hcl:"after"`

	Needs    []rawNeed   `toml:"needs" hcl:"needs"`
	Produces rawProduces `toml:"produces" hcl:"produces"`
	Locks    []rawLock   `toml:"locks" hcl:"locks"`

	Preconditions []string `toml:"preconditions" hcl:"preconditions"`
	Gates         []string `toml:"gates" hcl:"gates"`

	Retry rawRetry `toml:"retry" hcl:"retry"`
	On    rawOn    `toml:"on" hcl:"on"`

	ApprovalRequired bool `toml:"approval_required" hcl:"approval_required"`
}

// InputSpec describes how CLI-level values map onto a template's declared
// parameters, mirroring the original `WorkflowTemplateInputSpec`: the
// declared param names, the positional-slot ordering, and named aliases.
type InputSpec struct {
	Params     []string
	Positional []string
	Named      map[string]string
}

func (t *rawTemplate) toTemplate() (core.WorkflowTemplate, InputSpec) {
	tpl := core.WorkflowTemplate{
		ID:      t.ID,
		Version: t.Version,
		Params:  t.Params,
		CLIInputs: core.CLIInputs{
			Positional: t.CLI.Positional,
			Aliases:    t.CLI.Named,
		},
	}
	for _, c := range t.ArtifactContracts {
		tpl.ArtifactContracts = append(tpl.ArtifactContracts, core.ArtifactContract{
			TypeID:  c.TypeID,
			Version: c.Version,
		})
	}
	for _, n := range t.Nodes {
		node := core.Node{
			ID:               n.ID,
			Kind:             core.NodeKind(n.Kind),
			Uses:             n.Uses,
			Args:             n.Args,
			After:            n.After,
			Preconditions:    n.Preconditions,
			Gates:            n.Gates,
			OnSucceeded:      n.On.Succeeded,
			OnFailed:         n.On.Failed,
			ApprovalRequired: n.ApprovalRequired,
			Retry: core.RetryPolicy{
				MaxAttempts:    n.Retry.MaxAttempts,
				BackoffSeconds: n.Retry.BackoffSeconds,
			},
		}
		for _, need := range n.Needs {
			node.Needs = append(node.Needs, core.NeedDescriptor{Artifact: need.Artifact.toCore()})
		}
		if len(n.Produces.Succeeded) > 0 || len(n.Produces.Failed) > 0 {
			node.Produces = map[core.NodeOutcome][]core.Artifact{}
			for _, a := range n.Produces.Succeeded {
				node.Produces[core.OutcomeSucceeded] = append(node.Produces[core.OutcomeSucceeded], a.toCore())
			}
			for _, a := range n.Produces.Failed {
				node.Produces[core.OutcomeFailed] = append(node.Produces[core.OutcomeFailed], a.toCore())
			}
		}
		for _, l := range n.Locks {
			node.Locks = append(node.Locks, core.Lock{Key: l.Key, Mode: core.LockMode(l.Mode)})
		}
		tpl.Nodes = append(tpl.Nodes, node)
	}

	paramNames := make([]string, 0, len(t.Params))
	for name := range t.Params {
		paramNames = append(paramNames, name)
	}
	spec := InputSpec{
		Params:     paramNames,
		Positional: t.CLI.Positional,
		Named:      t.CLI.Named,
	}
	return tpl, spec
}

// parseTemplateFile reads and decodes a workflow source file, dispatching on
// its extension. Only `.toml` and `.hcl` are recognized; any other extension
// (or none) is a validation error rather than a guess.
func parseTemplateFile(path string, data []byte) (core.WorkflowTemplate, InputSpec, error) {
	var raw rawTemplate

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return core.WorkflowTemplate{}, InputSpec{}, core.ErrValidation(
				"TEMPLATE_PARSE_FAILED",
				"failed to parse TOML workflow source "+path+": "+err.Error(),
			)
		}
	case ".hcl":
		if err := hcl.Unmarshal(data, &raw); err != nil {
			return core.WorkflowTemplate{}, InputSpec{}, core.ErrValidation(
				"TEMPLATE_PARSE_FAILED",
				"failed to parse HCL workflow source "+path+": "+err.Error(),
			)
		}
	default:
		return core.WorkflowTemplate{}, InputSpec{}, core.ErrValidation(
			"TEMPLATE_SOURCE_UNRECOGNIZED",
			"workflow source "+path+" has unrecognized extension "+ext+"; expected .toml or .hcl",
		)
	}

	tpl, spec := raw.toTemplate()
	return tpl, spec, nil
}
