// Package lockmgr implements the scheduler's in-memory lock table
// (spec.md §4.4 step e). Locks live only for the duration of one tick
// sequence: a Table is built fresh each tick, seeded with whatever the
// currently Running jobs already hold, and then offered to queued jobs
// in creation order. The acquisition rule mirrors core.Lock.Conflicts:
// exclusive conflicts with anything, shared coexists with shared only.
package lockmgr

import (
	"sync"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Table is a per-tick lock table. It is not safe for use across ticks;
// callers build a new Table at the start of every Tick call.
type Table struct {
	mu    sync.Mutex
	holds map[string]*heldLock
}

type heldLock struct {
	mode    core.LockMode
	holders map[string]bool
}

// NewTable returns an empty lock table.
func NewTable() *Table {
	return &Table{holds: make(map[string]*heldLock)}
}

// Seed force-registers locks already held by a running job, without
// conflict checking. Used to prime the table with in-flight work before
// evaluating newly eligible jobs.
func (t *Table) Seed(jobID string, locks []core.Lock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range locks {
		t.acquireLocked(jobID, l)
	}
}

// TryAcquire attempts to acquire every lock in locks on behalf of jobID,
// all-or-nothing. On success it registers the holder and returns
// (true, ""). On the first conflicting lock it registers nothing and
// returns (false, conflictingKey).
func (t *Table) TryAcquire(jobID string, locks []core.Lock) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, l := range locks {
		if existing, ok := t.holds[l.Key]; ok && !existing.holders[jobID] {
			if existing.mode == core.LockExclusive || l.Mode == core.LockExclusive {
				return false, l.Key
			}
		}
	}
	for _, l := range locks {
		t.acquireLocked(jobID, l)
	}
	return true, ""
}

func (t *Table) acquireLocked(jobID string, l core.Lock) {
	existing, ok := t.holds[l.Key]
	if !ok {
		t.holds[l.Key] = &heldLock{mode: l.Mode, holders: map[string]bool{jobID: true}}
		return
	}
	existing.holders[jobID] = true
	if l.Mode == core.LockExclusive {
		existing.mode = core.LockExclusive
	}
}

// Release drops every lock held by jobID, freeing keys with no remaining
// holders. Callers use this when a job turns out not to need the locks
// it provisionally held (e.g. a later check in the same tick blocks it).
func (t *Table) Release(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, h := range t.holds {
		if h.holders[jobID] {
			delete(h.holders, jobID)
			if len(h.holders) == 0 {
				delete(t.holds, key)
			}
		}
	}
}

// Holders returns the job IDs currently holding key, for diagnostics.
func (t *Table) Holders(key string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.holds[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(h.holders))
	for id := range h.holders {
		out = append(out, id)
	}
	return out
}
