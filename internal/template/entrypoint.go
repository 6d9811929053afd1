package template

import (
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// executorRequiredArgKeys returns the "non-empty any-of" arg keys an
// executor descriptor requires at least one of, or nil if the capability has
// no entrypoint input requirement of its own (spec.md §4.2 step 6). Exact
// matches win; cap.agent.* and cap.merge.* are matched by prefix since every
// concrete agent/merge capability shares the same requirement.
func executorRequiredArgKeys(uses string) []string {
	if keys, ok := exactExecutorRequiredArgKeys[uses]; ok {
		return keys
	}
	switch {
	case strings.HasPrefix(uses, "cap.agent."):
		return []string{"prompt"}
	case strings.HasPrefix(uses, "cap.merge."):
		return []string{"source_branch"}
	default:
		return nil
	}
}

var exactExecutorRequiredArgKeys = map[string][]string{
	"cap.env.shell.command.run":        {"script"},
	"cap.env.builtin.worktree.prepare": {"purpose"},
	"cap.env.builtin.plan.persist":     {"spec_text", "spec_file"},
	"cap.save":                         {"patch_file", "patch_text"},
	"cap.review.checks":                nil,
	"cap.cicd.gate":                    nil,
}

// isMergeScopeNode reports whether a node's capability is under the
// cap.merge.* family — used by lock inference (step 7) as well as here.
func isMergeScopeNode(uses string) bool {
	return strings.HasPrefix(uses, "cap.merge.")
}

// validateEntrypointInputs implements spec.md §4.2 step 6: every node with
// no `after` edges and no incoming on.succeeded edge is an entrypoint; if its
// executor requires a non-empty any-of arg and none is supplied from a
// declared param, preflight fails with a structured "missing required input"
// error.
func validateEntrypointInputs(source Source, spec InputSpec, tpl *core.WorkflowTemplate) error {
	if len(tpl.Nodes) == 0 {
		return nil
	}

	incoming := tpl.IncomingOnSucceeded()
	declared := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		declared[p] = true
	}

	for _, node := range tpl.Nodes {
		if !node.HasNoPredecessors(incoming) {
			continue
		}

		requiredKeys := executorRequiredArgKeys(node.Uses)
		if len(requiredKeys) == 0 {
			continue
		}

		hasValue := false
		for _, key := range requiredKeys {
			if strings.TrimSpace(node.Args[key]) != "" {
				hasValue = true
				break
			}
		}
		if hasValue {
			continue
		}

		nodeArgKeys := make([]string, 0, len(requiredKeys))
		for _, key := range requiredKeys {
			if _, ok := node.Args[key]; ok {
				nodeArgKeys = append(nodeArgKeys, key)
			}
		}

		requiredInputs := make([]string, 0, len(nodeArgKeys))
		for _, key := range nodeArgKeys {
			if declared[key] {
				requiredInputs = append(requiredInputs, key)
			}
		}
		if len(requiredInputs) == 0 {
			if len(nodeArgKeys) == 0 {
				requiredInputs = append(requiredInputs, requiredKeys...)
			} else {
				requiredInputs = append(requiredInputs, nodeArgKeys...)
			}
		}
		sortByPositionalOrder(requiredInputs, spec.Positional)

		return buildEntrypointInputError(source, spec, requiredInputs)
	}

	return nil
}

func sortByPositionalOrder(keys []string, positional []string) {
	pos := make(map[string]int, len(positional))
	for i, p := range positional {
		pos[p] = i
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, iok := pos[keys[i]]
		pj, jok := pos[keys[j]]
		if !iok {
			pi = len(positional)
		}
		if !jok {
			pj = len(positional)
		}
		return pi < pj
	})
}

// buildEntrypointInputError renders the structured error text the CLI
// surfaces verbatim: an `error:` line, a `usage:` line, a canonical
// `example:`, optionally a distinct `example (positional):`, and a `hint:`.
func buildEntrypointInputError(source Source, spec InputSpec, requiredInputs []string) error {
	flowLabel := source.Selector
	if source.CommandAlias != nil {
		flowLabel = *source.CommandAlias
	}

	usageParams := orderedCLIParams(spec)
	if len(usageParams) == 0 {
		usageParams = dedupe(requiredInputs)
		sortByPositionalOrder(usageParams, spec.Positional)
	}

	usage := "vizier run " + flowLabel + " [--set <KEY=VALUE>]..."
	if len(usageParams) > 0 {
		flags := make([]string, 0, len(usageParams))
		for _, param := range usageParams {
			label := cliLabelForParam(spec, param)
			flags = append(flags, "[--"+kebabCase(label)+" <"+kebabCase(label)+">]")
		}
		usage = "vizier run " + flowLabel + " " + strings.Join(flags, " ")
	}

	namedExample := buildNamedExample(flowLabel, spec, usageParams)
	positionalExample := buildPositionalExample(flowLabel, spec)

	lines := []string{
		"error: missing required input for workflow `" + flowLabel + "`",
		"usage: " + usage,
		"example: " + namedExample,
	}
	if positionalExample != "" && positionalExample != namedExample {
		lines = append(lines, "example (positional): "+positionalExample)
	}
	lines = append(lines, "hint: vizier run "+flowLabel+" --help")

	return core.ErrValidation("MISSING_REQUIRED_INPUT", strings.Join(lines, "\n")).
		WithDetail("flow", flowLabel).
		WithDetail("required_inputs", requiredInputs).
		WithDetail("usage", usage)
}

func orderedCLIParams(spec InputSpec) []string {
	ordered := make([]string, 0, len(spec.Positional)+len(spec.Named)+len(spec.Params))
	seen := make(map[string]bool)
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			ordered = append(ordered, v)
		}
	}
	for _, p := range spec.Positional {
		add(p)
	}
	for _, target := range spec.Named {
		add(target)
	}
	for _, p := range spec.Params {
		add(p)
	}
	return ordered
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func preferredCLIAlias(spec InputSpec, param string) string {
	for alias, target := range spec.Named {
		if target == param {
			return alias
		}
	}
	return ""
}

func cliLabelForParam(spec InputSpec, param string) string {
	if alias := preferredCLIAlias(spec, param); alias != "" {
		return alias
	}
	return param
}

func kebabCase(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "_", "-")
}

func buildNamedExample(flowLabel string, spec InputSpec, orderedParams []string) string {
	if len(orderedParams) == 0 {
		return "vizier run " + flowLabel + " --set key=value"
	}

	parts := []string{"vizier run " + flowLabel}
	take := len(orderedParams)
	if take > 2 {
		take = 2
	}
	if take < 1 {
		take = 1
	}
	for _, param := range orderedParams[:take] {
		label := cliLabelForParam(spec, param)
		parts = append(parts, "--"+kebabCase(label)+" "+exampleValue(spec, param))
	}
	return strings.Join(parts, " ")
}

func buildPositionalExample(flowLabel string, spec InputSpec) string {
	if len(spec.Positional) == 0 {
		return ""
	}
	take := len(spec.Positional)
	if take > 2 {
		take = 2
	}
	values := make([]string, 0, take)
	for _, param := range spec.Positional[:take] {
		values = append(values, exampleValue(spec, param))
	}
	if len(values) == 0 {
		return ""
	}
	return "vizier run " + flowLabel + " " + strings.Join(values, " ")
}

func exampleValue(spec InputSpec, param string) string {
	label := strings.ToLower(cliLabelForParam(spec, param))
	switch {
	case strings.Contains(label, "file"), strings.Contains(label, "path"):
		return "LIBRARY.md"
	case strings.Contains(label, "name"), strings.Contains(label, "slug"):
		return "my-change"
	case strings.Contains(label, "target"):
		return "main"
	case strings.Contains(label, "branch"):
		return "draft/my-change"
	default:
		return "example-" + kebabCase(label)
	}
}
