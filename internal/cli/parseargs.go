package cli

import (
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// ParseRunArgs parses the raw arguments following `vizier run` (spec.md
// §6: `vizier run <flow> [positional...] [--set KEY=VALUE]...
// [--<alias> VALUE]... [--follow] [--after <job_id>:<policy>]...
// [--require-approval|--no-require-approval] [--format text|json]`).
//
// Template-defined `--<alias>` flags are not knowable ahead of parsing the
// template (they come from the workflow source itself), so this does its
// own scan rather than relying on cobra's flag registration: any `--xxx`
// not matching a fixed engine flag is treated as an alias and folded into
// SetValues as "xxx=value", which PrepareWorkflowTemplate's alias
// resolution (internal/template/overrides.go) then maps onto the
// template's declared parameter.
func ParseRunArgs(args []string) (RunOptions, error) {
	opts := RunOptions{Format: FormatText}

	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			if opts.Flow == "" {
				opts.Flow = arg
			} else {
				opts.Positional = append(opts.Positional, arg)
			}
			i++
			continue
		}

		name, inlineValue, hasInline := strings.Cut(strings.TrimPrefix(arg, "--"), "=")

		takeValue := func() (string, error) {
			if hasInline {
				return inlineValue, nil
			}
			if i+1 >= len(args) {
				return "", runUsageError("flag --" + name + " requires a value")
			}
			i++
			return args[i], nil
		}

		switch name {
		case "follow":
			opts.Follow = true
		case "require-approval":
			t := true
			opts.RequireApproval = &t
		case "no-require-approval":
			f := false
			opts.RequireApproval = &f
		case "set":
			value, err := takeValue()
			if err != nil {
				return opts, err
			}
			opts.SetValues = append(opts.SetValues, value)
		case "format":
			value, err := takeValue()
			if err != nil {
				return opts, err
			}
			opts.Format = value
		case "after":
			value, err := takeValue()
			if err != nil {
				return opts, err
			}
			dep, err := parseAfterFlag(value)
			if err != nil {
				return opts, err
			}
			opts.ExtraAfter = append(opts.ExtraAfter, dep)
		default:
			value, err := takeValue()
			if err != nil {
				return opts, err
			}
			opts.SetValues = append(opts.SetValues, name+"="+value)
		}
		i++
	}

	if opts.Flow == "" {
		return opts, runUsageError("flow name is required")
	}
	if opts.Format != FormatText && opts.Format != FormatJSON {
		return opts, runUsageError("--format must be \"text\" or \"json\", got " + strconv.Quote(opts.Format))
	}
	return opts, nil
}

func parseAfterFlag(value string) (core.AfterDependency, error) {
	jobID, policy, ok := strings.Cut(value, ":")
	if !ok || jobID == "" || policy == "" {
		return core.AfterDependency{}, runUsageError("invalid --after value `" + value + "`; expected <job_id>:<policy>")
	}
	p := core.DependencyPolicy(policy)
	if !p.IsValid() {
		return core.AfterDependency{}, runUsageError("invalid --after policy `" + policy + "`; expected one of success, failure, any")
	}
	return core.AfterDependency{JobID: jobID, Policy: p}, nil
}

func runUsageError(message string) error {
	return NewUsageError(
		core.ErrValidation("RUN_ARGS_INVALID", message),
		"vizier run <flow> [positional...] [--set KEY=VALUE]... [--<alias> VALUE]... [--follow] [--after <job_id>:<policy>]... [--require-approval|--no-require-approval] [--format text|json]",
		"vizier run draft my-feature --set scope=backend --follow",
		"flags not recognized by the engine are treated as template aliases and forwarded as --set alias=value",
	)
}
