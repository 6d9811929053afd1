package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// ParseReleaseVersionTag parses a `vMAJOR.MINOR.PATCH` release tag.
func ParseReleaseVersionTag(tagName string) (core.SemVer, error) {
	raw := strings.TrimSpace(tagName)
	version, ok := strings.CutPrefix(raw, "v")
	if !ok {
		return core.SemVer{}, fmt.Errorf("release tags must start with `v`")
	}
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return core.SemVer{}, fmt.Errorf("release tags must be `v<major>.<minor>.<patch>`")
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return core.SemVer{}, fmt.Errorf("invalid version component %q", p)
		}
		nums[i] = n
	}
	return core.SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// LatestReachableReleaseTag returns the highest-versioned `v*` tag
// reachable from HEAD, or ok=false when none exists.
func (c *Client) LatestReachableReleaseTag(ctx context.Context) (string, bool, error) {
	head, err := c.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", false, core.ErrState("DETACHED_HEAD", "HEAD is not on a branch")
	}

	out, err := c.run(ctx, "tag", "-l", "v*")
	if err != nil {
		return "", false, core.ErrExecution("GIT_TAG_LIST_FAILED", err.Error())
	}
	if strings.TrimSpace(out) == "" {
		return "", false, nil
	}

	type candidate struct {
		name string
		ver  core.SemVer
	}
	var best *candidate

	for _, name := range strings.Split(out, "\n") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		commit, err := c.run(ctx, "rev-list", "-n", "1", name)
		if err != nil {
			continue
		}
		if commit != head {
			if _, _, err := c.runWithOutput(ctx, "merge-base", "--is-ancestor", commit, head); err != nil {
				continue
			}
		}
		ver, err := ParseReleaseVersionTag(name)
		if err != nil {
			return "", false, core.ErrValidation("INVALID_RELEASE_TAG", fmt.Sprintf("invalid release tag %q: %s", name, err))
		}
		if best == nil || semverLess(best.ver, ver) {
			best = &candidate{name: name, ver: ver}
		}
	}

	if best == nil {
		return "", false, nil
	}
	return best.name, true, nil
}

func semverLess(a, b core.SemVer) bool {
	if a.Major != b.Major {
		return a.Major < b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor < b.Minor
	}
	return a.Patch < b.Patch
}

// CommitsSinceReleaseTag lists commits reachable from HEAD but not from
// tag, oldest-last (topological, HEAD first), the same ordering
// `git rev-list` produces by default.
func (c *Client) CommitsSinceReleaseTag(ctx context.Context, tag string) ([]core.CommitInfo, error) {
	args := []string{"rev-list", "--topo-order", "--parents"}
	if tag != "" {
		args = append(args, tag+"..HEAD")
	} else {
		args = append(args, "HEAD")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, core.ErrExecution("GIT_REV_LIST_FAILED", err.Error())
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}

	var commits []core.CommitInfo
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		oid := fields[0]
		subject, err := c.run(ctx, "log", "-1", "--format=%s", oid)
		if err != nil {
			return nil, core.ErrExecution("GIT_LOG_FAILED", err.Error())
		}
		if subject == "" {
			subject = "<no subject>"
		}
		body, err := c.run(ctx, "log", "-1", "--format=%B", oid)
		if err != nil {
			return nil, core.ErrExecution("GIT_LOG_FAILED", err.Error())
		}
		commits = append(commits, core.CommitInfo{
			OID:        oid,
			ParentOIDs: fields[1:],
			Subject:    subject,
			Body:       body,
		})
	}
	return commits, nil
}

func commitHeader(subject string) string {
	if idx := strings.Index(subject, ":"); idx >= 0 {
		return strings.TrimSpace(subject[:idx])
	}
	return strings.TrimSpace(subject)
}

func conventionalType(header string) string {
	if header == "" {
		return ""
	}
	withoutScope := header
	if idx := strings.Index(header, "("); idx >= 0 {
		withoutScope = header[:idx]
	}
	commitType := strings.TrimSuffix(strings.TrimSpace(withoutScope), "!")
	return strings.ToLower(strings.TrimSpace(commitType))
}

func commitIsBreaking(subject, body string) bool {
	header := commitHeader(subject)
	if strings.HasSuffix(header, "!") {
		return true
	}
	upper := strings.ToUpper(body)
	return strings.Contains(upper, "BREAKING CHANGE") || strings.Contains(upper, "BREAKING-CHANGE")
}

// ClassifyCommit maps a commit to its release-bump weight and release-notes
// section, following Conventional Commits prefixes (feat/fix/perf) plus a
// "BREAKING CHANGE" footer or `!` header marker.
func ClassifyCommit(subject, body string) (core.ReleaseBump, string) {
	if commitIsBreaking(subject, body) {
		return core.BumpMajor, "Breaking Changes"
	}
	switch conventionalType(commitHeader(subject)) {
	case "feat":
		return core.BumpMinor, "Features"
	case "fix", "perf":
		return core.BumpPatch, "Fixes/Performance"
	default:
		return core.BumpNone, "Other"
	}
}

// DeriveReleaseBump folds ClassifyCommit's bump over every commit,
// returning the highest bump any single commit calls for.
func DeriveReleaseBump(commits []core.CommitInfo) core.ReleaseBump {
	bump := core.BumpNone
	for _, commit := range commits {
		candidate, _ := ClassifyCommit(commit.Subject, commit.Body)
		bump = core.MaxBump(bump, candidate)
	}
	return bump
}

var releaseSectionOrder = []string{"Breaking Changes", "Features", "Fixes/Performance", "Other"}

// BuildReleaseNotes renders commits into the fixed-order release-notes
// sections (Breaking Changes, Features, Fixes/Performance, Other), one
// bullet per commit as "subject (short sha)".
func (c *Client) BuildReleaseNotes(ctx context.Context, tag string, commits []core.CommitInfo) (core.ReleaseNotes, error) {
	sections := make(map[string][]string, len(releaseSectionOrder))
	for _, name := range releaseSectionOrder {
		sections[name] = nil
	}

	for _, commit := range commits {
		_, section := ClassifyCommit(commit.Subject, commit.Body)
		short := commit.OID
		if len(short) > 7 {
			short = short[:7]
		}
		sections[section] = append(sections[section], fmt.Sprintf("%s (%s)", commit.Subject, short))
	}

	for _, name := range releaseSectionOrder {
		if sections[name] == nil {
			delete(sections, name)
		}
	}

	return core.ReleaseNotes{Version: tag, Sections: sections}, nil
}
