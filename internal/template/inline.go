package template

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

const planPersistCapability = "cap.env.builtin.plan.persist"

// inlinePlanPersistSpecFiles reads `spec_file` into `spec_text` for every
// cap.env.builtin.plan.persist node whose spec source is inline/stdin and
// whose spec_text is still empty (spec.md §4.2 step 5), so the job record
// captures a stable snapshot rather than a path that could change before the
// job runs.
func inlinePlanPersistSpecFiles(projectRoot string, tpl *core.WorkflowTemplate) error {
	for i := range tpl.Nodes {
		node := &tpl.Nodes[i]
		if node.Uses != planPersistCapability {
			continue
		}

		specSource := strings.ToLower(strings.TrimSpace(node.Args["spec_source"]))
		if specSource == "" {
			specSource = "inline"
		}
		if specSource != "inline" && specSource != "stdin" {
			continue
		}

		if strings.TrimSpace(node.Args["spec_text"]) != "" {
			continue
		}

		specFile := strings.TrimSpace(node.Args["spec_file"])
		if specFile == "" {
			continue
		}

		specPath := specFile
		if !filepath.IsAbs(specPath) {
			specPath = filepath.Join(projectRoot, specFile)
		}
		data, err := os.ReadFile(specPath)
		if err != nil {
			return core.ErrValidation("PLAN_SPEC_FILE_UNREADABLE",
				"workflow node `"+node.ID+"` could not read spec file `"+specPath+
					"` during queue-time validation: "+err.Error())
		}

		if node.Args == nil {
			node.Args = map[string]string{}
		}
		node.Args["spec_text"] = string(data)
	}
	return nil
}
