package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Exit codes (spec.md §6, engine-level).
const (
	ExitSuccess  = 0
	ExitFailure  = 1
	ExitBlocked  = 10
	ExitCanceled = 143
)

// UsageError augments a *core.DomainError with the usage/example/hint
// triple spec.md §7's user/input-error taxonomy calls for. Handlers build
// one when a flag or argument is malformed; every other error taxonomy
// (repo precondition, scheduling blocker, executor failure, rollback) is
// rendered from its plain *core.DomainError instead.
type UsageError struct {
	*core.DomainError
	Usage   string
	Example string
	Hint    string
}

// NewUsageError wraps a domain error with CLI usage guidance.
func NewUsageError(base *core.DomainError, usage, example, hint string) *UsageError {
	return &UsageError{DomainError: base, Usage: usage, Example: example, Hint: hint}
}

// RenderError writes the spec.md §7 structured error block to w: always an
// `error:` line, plus `usage:`/`example:`/`hint:` lines when the error
// carries that guidance (UsageError) or not when it's a plain domain/repo
// error.
func RenderError(w io.Writer, err error) {
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(w, "error: %s\n", usageErr.Message)
		if usageErr.Usage != "" {
			fmt.Fprintf(w, "usage: %s\n", usageErr.Usage)
		}
		if usageErr.Example != "" {
			fmt.Fprintf(w, "example: %s\n", usageErr.Example)
		}
		if usageErr.Hint != "" {
			fmt.Fprintf(w, "hint: %s\n", usageErr.Hint)
		}
		return
	}

	var domainErr *core.DomainError
	if errors.As(err, &domainErr) {
		fmt.Fprintf(w, "error: %s\n", domainErr.Message)
		if suggestion, ok := domainErr.Details["did_you_mean"]; ok {
			fmt.Fprintf(w, "hint: did you mean %q?\n", suggestion)
		}
		return
	}

	fmt.Fprintf(w, "error: %s\n", err.Error())
}

// ExitCodeForError maps an error to the spec.md §6 engine-level exit code.
// BlockedError and CancelledError are sentinels handlers return explicitly
// for the two non-1 cases (blocked-terminal-state / cancelled-job); every
// other error is the generic "unexpected failure" exit 1.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return ExitBlocked
	}
	var cancelled *CancelledError
	if errors.As(err, &cancelled) {
		return ExitCanceled
	}
	return ExitFailure
}

// BlockedError signals that a command terminated in the spec.md §6 exit-10
// "blocked" condition: the scheduler settled with a Blocked* job, `audit
// --strict` found untethered inputs, or `clean` was refused by a safety
// guard.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string { return e.Message }

// CancelledError signals a job-cancelled condition (exit 143).
type CancelledError struct {
	Message string
}

func (e *CancelledError) Error() string { return e.Message }
