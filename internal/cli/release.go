package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/release"
)

// ReleaseOptions is the parsed form of `vizier release ...` (spec.md §6).
type ReleaseOptions struct {
	Major bool
	Minor bool
	Patch bool

	DryRun          bool
	NoTag           bool
	ReleaseScript   string
	NoReleaseScript bool
	Yes             bool
	MaxCommits      int
}

// toReleaseOptions translates the CLI's mutually-exclusive bump flags into
// release.Options' single *core.ReleaseBump.
func (o ReleaseOptions) toReleaseOptions() (release.Options, error) {
	var forced *core.ReleaseBump
	set := 0
	bump := func(b core.ReleaseBump) *core.ReleaseBump { return &b }
	if o.Major {
		forced = bump(core.BumpMajor)
		set++
	}
	if o.Minor {
		forced = bump(core.BumpMinor)
		set++
	}
	if o.Patch {
		forced = bump(core.BumpPatch)
		set++
	}
	if set > 1 {
		return release.Options{}, NewUsageError(
			core.ErrValidation("RELEASE_BUMP_CONFLICT", "at most one of --major, --minor, --patch may be given"),
			"vizier release [--major|--minor|--patch] [--dry-run] [--no-tag] [--release-script <cmd>|--no-release-script] [--yes] [--max-commits N]",
			"vizier release --minor --yes",
			"drop the extra bump flag; the release plan already auto-selects the Conventional-Commits-derived bump",
		)
	}
	return release.Options{
		ForcedBump:      forced,
		DryRun:          o.DryRun,
		NoTag:           o.NoTag,
		ReleaseScript:   o.ReleaseScript,
		NoReleaseScript: o.NoReleaseScript,
		MaxCommits:      o.MaxCommits,
	}, nil
}

// ReleaseOutput is what `vizier release` reports, rendered as text or JSON.
type ReleaseOutput struct {
	Plan   *release.Plan   `json:"plan"`
	Result *release.Result `json:"result,omitempty"`
	// Confirmed is false when the command stopped at the confirmation
	// prompt (dry-run implied) because the caller declined and did not
	// pass --yes.
	Confirmed bool `json:"confirmed"`
}

// RunRelease plans the release transaction and, unless DryRun or the
// caller declines confirmation, executes it (spec.md §4.6). confirm is
// called only when neither DryRun nor Yes is set, and only when the plan
// would actually create a release (bump != None); it reads from in and
// writes the prompt to out.
func RunRelease(ctx context.Context, deps *Deps, opts ReleaseOptions, in io.Reader, out io.Writer) (*ReleaseOutput, error) {
	releaseOpts, err := opts.toReleaseOptions()
	if err != nil {
		return nil, err
	}

	runner := &release.Runner{Gateway: deps.Gateway, ProjectRoot: deps.ProjectRoot, Shell: "", Logger: deps.Logger}

	plan, err := runner.Plan(ctx, releaseOpts)
	if err != nil {
		return nil, err
	}

	if plan.SelectedBump == core.BumpNone {
		return &ReleaseOutput{Plan: plan, Result: &release.Result{Outcome: "noop"}, Confirmed: true}, nil
	}

	if !opts.DryRun && !opts.Yes {
		confirmed, err := confirmRelease(plan, in, out)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			return &ReleaseOutput{Plan: plan, Confirmed: false}, nil
		}
	}

	result, err := runner.Execute(ctx, plan, releaseOpts)
	if err != nil {
		return &ReleaseOutput{Plan: plan, Result: result, Confirmed: true}, err
	}
	return &ReleaseOutput{Plan: plan, Result: result, Confirmed: true}, nil
}

func confirmRelease(plan *release.Plan, in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintf(out, "About to release %s (bump: %s). Continue? [y/N] ", plan.TargetTag, plan.SelectedBump)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
