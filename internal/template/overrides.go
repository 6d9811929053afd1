package template

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// parseSetOverrides parses `--set KEY=VALUE` entries into a map, last write
// wins for a repeated key.
func parseSetOverrides(values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			return nil, core.ErrValidation("SET_OVERRIDE_INVALID",
				"invalid --set value `"+raw+"`; expected KEY=VALUE")
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, core.ErrValidation("SET_OVERRIDE_INVALID",
				"invalid --set value `"+raw+"`; key cannot be empty")
		}
		out[key] = value
	}
	return out, nil
}

// applyNamedAliases renames override keys from a CLI alias to the declared
// parameter they target (spec.md §4.2 step 2), erroring on an unknown target
// or on a collision with an explicit `param=value` override.
func applyNamedAliases(selector string, spec InputSpec, overrides map[string]string) error {
	if len(spec.Named) == 0 {
		return nil
	}

	declared := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		declared[p] = true
	}

	type aliasTarget struct {
		alias  string
		target string
	}
	aliases := make([]aliasTarget, 0, len(spec.Named))
	for alias, target := range spec.Named {
		a := strings.ReplaceAll(strings.TrimSpace(alias), "-", "_")
		tgt := strings.TrimSpace(target)
		if a == "" {
			return core.ErrValidation("TEMPLATE_ALIAS_EMPTY",
				"workflow `"+selector+"` has an empty cli.named alias key")
		}
		if tgt == "" {
			return core.ErrValidation("TEMPLATE_ALIAS_EMPTY_TARGET",
				"workflow `"+selector+"` alias `"+a+"` has an empty cli.named target")
		}
		if !declared[tgt] {
			return core.ErrValidation("TEMPLATE_ALIAS_UNKNOWN_TARGET",
				"workflow `"+selector+"` alias `"+a+"` maps to unknown parameter `"+tgt+"`")
		}
		aliases = append(aliases, aliasTarget{alias: a, target: tgt})
	}
	// Deterministic order so collision errors are reproducible.
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].alias < aliases[j].alias })

	for _, at := range aliases {
		if at.alias == at.target {
			continue
		}
		value, ok := overrides[at.alias]
		if !ok {
			continue
		}
		if _, collides := overrides[at.target]; collides {
			return core.ErrValidation("TEMPLATE_PARAM_PROVIDED_MULTIPLE_WAYS",
				"workflow parameter `"+at.target+"` was provided multiple ways (`--"+
					strings.ReplaceAll(at.alias, "_", "-")+"` alias and explicit override)")
		}
		delete(overrides, at.alias)
		overrides[at.target] = value
	}
	return nil
}

// applyPositionalInputs zips positional CLI values into the declared
// positional parameter names (spec.md §4.2 step 3).
func applyPositionalInputs(selector string, spec InputSpec, positional []string, overrides map[string]string) error {
	if len(positional) == 0 {
		return nil
	}

	if len(spec.Positional) == 0 {
		return core.ErrValidation("TEMPLATE_NO_POSITIONAL_INPUTS",
			"workflow `"+selector+"` does not define positional inputs; use named flags "+
				"(for example `--param value`) or `--set key=value`")
	}
	if len(positional) > len(spec.Positional) {
		return core.ErrValidation("TEMPLATE_TOO_MANY_POSITIONAL_INPUTS",
			"workflow `"+selector+"` accepts at most "+strconv.Itoa(len(spec.Positional))+
				" positional input(s): "+strings.Join(spec.Positional, ", "))
	}

	declared := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		declared[p] = true
	}
	for _, key := range spec.Positional {
		if strings.TrimSpace(key) == "" {
			return core.ErrValidation("TEMPLATE_POSITIONAL_EMPTY",
				"workflow `"+selector+"` has an empty positional mapping entry")
		}
		if !declared[key] {
			return core.ErrValidation("TEMPLATE_POSITIONAL_UNKNOWN_PARAM",
				"workflow `"+selector+"` positional input `"+key+"` is not declared in params")
		}
	}

	for i, value := range positional {
		key := spec.Positional[i]
		if _, collides := overrides[key]; collides {
			return core.ErrValidation("TEMPLATE_PARAM_PROVIDED_MULTIPLE_WAYS",
				"workflow parameter `"+key+"` was provided multiple ways (positional input "+
					strconv.Itoa(i+1)+" and named override)")
		}
		overrides[key] = value
	}
	return nil
}

// substituteParams performs textual substitution of `{{param}}` markers in
// every node's args, using the resolved overrides falling back to the
// template's own default values (spec.md §4.2 step 4).
func substituteParams(tpl *core.WorkflowTemplate, overrides map[string]string) {
	resolved := make(map[string]string, len(tpl.Params))
	for name, def := range tpl.Params {
		resolved[name] = def
	}
	for name, value := range overrides {
		resolved[name] = value
	}

	for i := range tpl.Nodes {
		if len(tpl.Nodes[i].Args) == 0 {
			continue
		}
		substituted := make(map[string]string, len(tpl.Nodes[i].Args))
		for k, v := range tpl.Nodes[i].Args {
			substituted[k] = substituteOne(v, resolved)
		}
		tpl.Nodes[i].Args = substituted
	}
}

func substituteOne(value string, params map[string]string) string {
	for name, replacement := range params {
		value = strings.ReplaceAll(value, "{{"+name+"}}", replacement)
	}
	return value
}
