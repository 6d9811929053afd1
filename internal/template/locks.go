package template

import "github.com/hugo-lorenzo-mato/quorum-ai/internal/core"

var branchArgKeys = []string{"branch", "target_branch", "source_branch"}

// inferLocks computes the effective lock set for every node (spec.md §4.2
// step 7): explicit `locks` win outright; otherwise branch-ish args
// contribute exclusive `branch:<value>` locks (both source and target for
// merge-scope nodes), and a shell node with no branch-ish args at all falls
// back to the whole-repo `repo_serial` exclusive lock.
func inferLocks(tpl *core.WorkflowTemplate) map[string][]core.Lock {
	effective := make(map[string][]core.Lock, len(tpl.Nodes))
	for _, node := range tpl.Nodes {
		if len(node.Locks) > 0 {
			effective[node.ID] = append([]core.Lock(nil), node.Locks...)
			continue
		}
		effective[node.ID] = inferNodeLocks(node)
	}
	return effective
}

func inferNodeLocks(node core.Node) []core.Lock {
	var locks []core.Lock
	seen := make(map[string]bool)
	addBranchLock := func(branch string) {
		if branch == "" {
			return
		}
		key := core.BranchLockKey(branch)
		if seen[key] {
			return
		}
		seen[key] = true
		locks = append(locks, core.Lock{Key: key, Mode: core.LockExclusive})
	}

	if isMergeScopeNode(node.Uses) {
		addBranchLock(node.Args["source_branch"])
		addBranchLock(node.Args["target_branch"])
		if len(locks) > 0 {
			return locks
		}
	}

	for _, key := range branchArgKeys {
		addBranchLock(node.Args[key])
	}
	if len(locks) > 0 {
		return locks
	}

	if node.Kind == core.NodeKindShell {
		return []core.Lock{{Key: core.RepoSerialLockKey, Mode: core.LockExclusive}}
	}
	return nil
}
