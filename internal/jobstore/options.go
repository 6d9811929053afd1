package jobstore

import "context"

// WorktreeRemover removes a named worktree. CancelJobWithCleanup calls this
// when a cancelled job recorded a worktree name and cleanup is enabled; the
// job store has no RepoGateway of its own (spec.md §4.3 scopes it to
// persistence), so the caller wires in whichever gateway instance it is
// already holding.
type WorktreeRemover func(ctx context.Context, name string) error
