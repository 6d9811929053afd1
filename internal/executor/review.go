package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// reviewCheckResult is one line of a review report: a single configured
// command's outcome.
type reviewCheckResult struct {
	Command    string `json:"command"`
	ExitCode   int    `json:"exit_code"`
	DurationMS int64  `json:"duration_ms"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// reviewChecksExecutor runs cap.review.checks: each newline-separated
// entry of args.commands in sequence inside the prepared worktree,
// stopping at the first failure, and persists the full report as a
// review_report artifact (spec.md §4.5).
type reviewChecksExecutor struct {
	deps Deps
}

func (e *reviewChecksExecutor) Execute(ctx context.Context, job *core.JobRecord, node core.Node) (*Result, error) {
	raw := node.Args["commands"]
	if raw == "" {
		return nil, core.ErrValidation("REVIEW_COMMANDS_REQUIRED", "node "+node.ID+" has no commands")
	}
	var commands []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			commands = append(commands, line)
		}
	}
	if len(commands) == 0 {
		return nil, core.ErrValidation("REVIEW_COMMANDS_REQUIRED", "node "+node.ID+" has no non-blank commands")
	}

	cwd := e.deps.ProjectRoot
	if job.Metadata.WorktreePath != "" {
		cwd = job.Metadata.WorktreePath
	}

	var results []reviewCheckResult
	overallExit := 0
	for _, command := range commands {
		start := time.Now()
		cmd := exec.CommandContext(ctx, e.deps.shell(), "-c", command)
		cmd.Dir = cwd
		cmd.Env = os.Environ()
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		exitCode := 0
		if err := cmd.Run(); err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return nil, core.ErrExecution("REVIEW_CHECK_LAUNCH_FAILED", err.Error()).WithCause(err)
			}
		}
		results = append(results, reviewCheckResult{
			Command:    command,
			ExitCode:   exitCode,
			DurationMS: time.Since(start).Milliseconds(),
			Stdout:     stdout.String(),
			Stderr:     stderr.String(),
		})
		if exitCode != 0 {
			overallExit = exitCode
			break
		}
	}

	reportJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, core.ErrExecution("REVIEW_REPORT_MARSHAL_FAILED", err.Error()).WithCause(err)
	}
	reportPath := filepath.Join(e.deps.JobsRoot, job.ID, "review_report.json")
	if err := os.MkdirAll(filepath.Dir(reportPath), 0o755); err != nil {
		return nil, core.ErrExecution("REVIEW_REPORT_DIR_FAILED", err.Error()).WithCause(err)
	}
	if err := os.WriteFile(reportPath, reportJSON, 0o644); err != nil {
		return nil, core.ErrExecution("REVIEW_REPORT_WRITE_FAILED", err.Error()).WithCause(err)
	}

	result := &Result{
		ExitCode: overallExit,
		MetadataDelta: map[string]string{
			"review_report": filepath.Join(job.ID, "review_report.json"),
			"checks_run":    strconv.Itoa(len(results)),
		},
	}
	if overallExit == 0 {
		result.Artifacts = append(result.Artifacts, core.CustomArtifact("review_report", node.ID))
	}
	return result, nil
}
