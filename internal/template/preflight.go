package template

import (
	"os"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Prepared is the fully resolved result of PrepareWorkflowTemplate: the
// source the template was loaded from, the substituted template itself, the
// per-node effective lock set, the artifact catalogue, and the
// untethered-input report — everything `vizier audit` and job enqueue need.
type Prepared struct {
	Source     Source
	Template   core.WorkflowTemplate
	NodeLocks  map[string][]core.Lock
	Artifacts  ArtifactEnumeration
	Untethered UntetheredReport
}

// PrepareWorkflowTemplate runs the full queue-time preflight pipeline
// (spec.md §4.2): resolve the flow to a source and parse it, map CLI
// aliases and positional inputs onto declared parameters, substitute them
// into node args, inline any plan-spec file, validate entrypoint inputs,
// infer locks, enumerate artifacts, and detect untethered needs.
func PrepareWorkflowTemplate(
	projectRoot, flow string,
	positional []string,
	setValues []string,
	cfg *config.Config,
) (*Prepared, error) {
	source, err := resolveSource(projectRoot, flow, cfg)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(source.Path)
	if err != nil {
		return nil, core.ErrNotFound("workflow source", source.Path)
	}
	tpl, spec, err := parseTemplateFile(source.Path, data)
	if err != nil {
		return nil, err
	}

	overrides, err := parseSetOverrides(setValues)
	if err != nil {
		return nil, err
	}
	if err := applyNamedAliases(source.Selector, spec, overrides); err != nil {
		return nil, err
	}
	if err := applyPositionalInputs(source.Selector, spec, positional, overrides); err != nil {
		return nil, err
	}
	substituteParams(&tpl, overrides)

	if err := tpl.Validate(); err != nil {
		return nil, err
	}

	if err := validateEntrypointInputs(source, spec, &tpl); err != nil {
		return nil, err
	}

	if err := inlinePlanPersistSpecFiles(projectRoot, &tpl); err != nil {
		return nil, err
	}

	nodeLocks := inferLocks(&tpl)
	artifacts := enumerateArtifacts(&tpl)
	untethered := detectUntethered(&tpl, artifacts)

	return &Prepared{
		Source:     source,
		Template:   tpl,
		NodeLocks:  nodeLocks,
		Artifacts:  artifacts,
		Untethered: untethered,
	}, nil
}
