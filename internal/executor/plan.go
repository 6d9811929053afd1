package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// planFrontMatter is marshaled as the YAML block every persisted plan
// document opens with.
type planFrontMatter struct {
	PlanID string `yaml:"plan_id"`
	Plan   string `yaml:"plan"`
	Branch string `yaml:"branch"`
}

// planPersistExecutor runs cap.env.builtin.plan.persist: write the
// inlined spec text to .vizier/implementation-plans/<slug>.md with a YAML
// front matter block and commit it to the plan branch, emitting a
// PlanDoc artifact (spec.md §4.5).
type planPersistExecutor struct {
	deps Deps
}

func (e *planPersistExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	specText := node.Args["spec_text"]
	if specText == "" {
		if specFile := node.Args["spec_file"]; specFile != "" {
			data, err := os.ReadFile(specFile)
			if err != nil {
				return nil, core.ErrExecution("PLAN_SPEC_FILE_READ_FAILED", err.Error()).WithCause(err)
			}
			specText = string(data)
		}
	}
	if specText == "" {
		return nil, core.ErrValidation("PLAN_SPEC_TEXT_REQUIRED", "node "+node.ID+" has no spec text or file")
	}

	slug := job.Metadata.Plan
	if slug == "" {
		slug = node.ID
	}
	branch := job.Metadata.Branch
	if branch == "" {
		branch = fmt.Sprintf("vizier-plan-%s", slug)
	}

	frontMatter, err := yaml.Marshal(planFrontMatter{PlanID: job.ID, Plan: slug, Branch: branch})
	if err != nil {
		return nil, core.ErrExecution("PLAN_DOC_FRONT_MATTER_FAILED", err.Error()).WithCause(err)
	}

	doc := fmt.Sprintf(
		"---\n%s---\n\n## Operator Spec\n\n%s\n\n## Implementation Plan\n\n",
		frontMatter, specText,
	)

	path := filepath.Join(e.deps.ProjectRoot, ".vizier", "implementation-plans", slug+".md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, core.ErrExecution("PLAN_DOC_DIR_FAILED", err.Error()).WithCause(err)
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return nil, core.ErrExecution("PLAN_DOC_WRITE_FAILED", err.Error()).WithCause(err)
	}

	relPath := filepath.Join(".vizier", "implementation-plans", slug+".md")
	if err := e.deps.Gateway.Stage(ctx, []string{relPath}); err != nil {
		return nil, err
	}
	if _, err := e.deps.Gateway.CommitStaged(ctx, "vizier: persist implementation plan "+slug, false); err != nil {
		return nil, err
	}

	return &Result{
		ExitCode:      0,
		MetadataDelta: map[string]string{"plan": slug, "branch": branch},
		Artifacts:     []core.Artifact{core.PlanDocArtifact(slug, branch)},
	}, nil
}
