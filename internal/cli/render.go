package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// FormatJSON and FormatText are the two `--format` values spec.md §6
// accepts for `run` and `audit`.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Status colors mirror the teacher's TUI palette so a job/run status reads
// the same whether a developer is watching it in the dashboard or the
// terminal. headerStyle bolds the summary line every text renderer opens
// with.
var (
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorWarning = lipgloss.Color("#F59E0B")
	colorMuted   = lipgloss.Color("#9CA3AF")

	headerStyle = lipgloss.NewStyle().Bold(true)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case "succeeded", "completed", "ok":
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case "failed", "cancelled", "untethered":
		return lipgloss.NewStyle().Foreground(colorError)
	case "blocked", "waiting_on_approval", "waiting_on_deps":
		return lipgloss.NewStyle().Foreground(colorWarning)
	default:
		return lipgloss.NewStyle().Foreground(colorMuted)
	}
}

// renderReleaseNotesMarkdown builds the release notes as Markdown and runs
// them through glamour's terminal renderer, the same library the teacher's
// chat view uses to render agent output, so a release summary looks the
// same whether it lands in a terminal or is piped into a changelog file.
// Section order is alphabetical, since core.ReleaseNotes.Sections is a
// map and render output must be deterministic.
func renderReleaseNotesMarkdown(sections map[string][]string) string {
	names := make([]string, 0, len(sections))
	for name, lines := range sections {
		if len(lines) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var md strings.Builder
	for _, name := range names {
		fmt.Fprintf(&md, "### %s\n\n", name)
		for _, line := range sections[name] {
			fmt.Fprintf(&md, "- %s\n", line)
		}
		md.WriteString("\n")
	}
	if md.Len() == 0 {
		return ""
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md.String()
	}
	rendered, err := renderer.Render(md.String())
	if err != nil {
		return md.String()
	}
	return rendered
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderRun writes a RunOutput in the requested format.
func RenderRun(w io.Writer, out *RunOutput, format string) error {
	if format == FormatJSON {
		return renderJSON(w, out)
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("run %s (template %s@%s)", out.RunID, out.TemplateID, out.TemplateVersion)))
	for _, nodeID := range sortedNodeIDs(out.NodeIDToJobID) {
		fmt.Fprintf(w, "  %s -> %s\n", nodeID, out.NodeIDToJobID[nodeID])
	}
	if out.Followed {
		for _, jobID := range sortedJobIDs(out.Statuses) {
			status := out.Statuses[jobID]
			fmt.Fprintf(w, "  %s: %s\n", jobID, statusStyle(status).Render(status))
		}
	}
	return nil
}

func sortedNodeIDs(m map[string]string) []string {
	return sortedJobIDs(m)
}

// RenderAudit writes an AuditOutput in the requested format.
func RenderAudit(w io.Writer, out *AuditOutput, format string) error {
	if format == FormatJSON {
		return renderJSON(w, out)
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("audit %s (template %s@%s, %d node(s)): ",
		out.WorkflowTemplateSelector, out.WorkflowTemplateID, out.WorkflowTemplateVersion, out.NodeCount))+
		statusStyle(out.Outcome).Render(out.Outcome))
	fmt.Fprintf(w, "output artifacts: %d\n", len(out.OutputArtifacts))
	for _, ref := range out.OutputArtifacts {
		fmt.Fprintf(w, "  %s <- %s\n", ref.ArtifactID, ref.NodeID)
	}
	fmt.Fprintf(w, "effective locks: %d\n", len(out.EffectiveLocks))
	for _, l := range out.EffectiveLocks {
		fmt.Fprintf(w, "  %s: %s (%s)\n", l.NodeID, l.Key, l.Mode)
	}
	if out.Summary.HasUntethered {
		fmt.Fprintf(w, "untethered inputs: %d\n", out.Summary.UntetheredCount)
		for _, u := range out.UntetheredInputs {
			fmt.Fprintf(w, "  %s needed by %v\n", u.ArtifactID, u.Consumers)
		}
	}
	return nil
}

// RenderRelease writes a ReleaseOutput in the requested format.
func RenderRelease(w io.Writer, out *ReleaseOutput, format string) error {
	if format == FormatJSON {
		return renderJSON(w, out)
	}
	plan := out.Plan
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("release plan: %s -> %s (bump: %s)", plan.LastTag, plan.TargetTag, plan.SelectedBump)))
	fmt.Fprint(w, renderReleaseNotesMarkdown(plan.Notes.Sections))
	if !out.Confirmed {
		fmt.Fprintln(w, "release cancelled: confirmation declined")
		return nil
	}
	if out.Result == nil {
		return nil
	}
	fmt.Fprintf(w, "outcome: %s\n", statusStyle(out.Result.Outcome).Render(out.Result.Outcome))
	if out.Result.Outcome == "completed" || out.Result.Outcome == "failed" {
		fmt.Fprintf(w, "commit: %s\n", out.Result.CommitOID)
		if out.Result.TagCreated {
			fmt.Fprintf(w, "tag: %s\n", out.Result.TargetTag)
		}
	}
	if out.Result.Outcome == "failed" && out.Result.Rollback != nil {
		fmt.Fprintf(w, "rollback succeeded: %v\n", out.Result.Rollback.Succeeded())
		for _, cmd := range out.Result.RecoveryCommands {
			fmt.Fprintf(w, "  recovery: %s\n", cmd)
		}
	}
	return nil
}
