package scheduler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Launcher starts the child process for a job that cleared all five
// checks. Implementations must not block on the child's completion: the
// child (or its own harvester) calls FinalizeJob when it exits.
type Launcher interface {
	Launch(ctx context.Context, job *core.JobRecord, cwd string) (pid int, err error)
}

// ProcessLauncher launches jobs as detached OS child processes, replaying
// job.Command with a trailing "--background-job-id <id>" so the child
// knows which record to finalize on exit (spec.md §4.4 step 3).
type ProcessLauncher struct {
	jobsRoot string
}

// NewProcessLauncher builds a ProcessLauncher that writes a job's stdout
// and stderr under jobsRoot, following the paths already recorded on its
// JobRecord.
func NewProcessLauncher(jobsRoot string) *ProcessLauncher {
	return &ProcessLauncher{jobsRoot: jobsRoot}
}

// Launch starts job.Command as a detached child process, appending
// "--background-job-id <job.ID>" to the replayed argv. It returns the
// child's PID immediately; a background goroutine reaps the process so
// it never becomes a zombie, without the caller waiting on it.
func (l *ProcessLauncher) Launch(ctx context.Context, job *core.JobRecord, cwd string) (int, error) {
	if len(job.Command) == 0 {
		return 0, core.ErrValidation("JOB_COMMAND_EMPTY", "job "+job.ID+" has no command to launch")
	}

	argv := append(append([]string{}, job.Command...), "--background-job-id", job.ID)

	stdoutPath := filepath.Join(l.jobsRoot, job.StdoutPath)
	stderrPath := filepath.Join(l.jobsRoot, job.StderrPath)
	if err := os.MkdirAll(filepath.Dir(stdoutPath), 0o755); err != nil {
		return 0, core.ErrExecution("JOB_LOG_DIR_FAILED", err.Error()).WithCause(err)
	}

	stdout, err := os.Create(stdoutPath)
	if err != nil {
		return 0, core.ErrExecution("JOB_STDOUT_CREATE_FAILED", err.Error()).WithCause(err)
	}
	stderr, err := os.Create(stderrPath)
	if err != nil {
		_ = stdout.Close()
		return 0, core.ErrExecution("JOB_STDERR_CREATE_FAILED", err.Error()).WithCause(err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return 0, core.ErrExecution("JOB_LAUNCH_FAILED", err.Error()).WithCause(err)
	}

	go func() {
		_ = cmd.Wait()
		_ = stdout.Close()
		_ = stderr.Close()
	}()

	return cmd.Process.Pid, nil
}
