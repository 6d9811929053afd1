package template

import (
	"testing"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/testutil"
)

func TestInferLocks_ShellWithoutBranchArgsGetsRepoSerial(t *testing.T) {
	tpl := &core.WorkflowTemplate{
		Nodes: []core.Node{
			{ID: "build", Kind: core.NodeKindShell, Uses: "cap.env.shell.command.run", Args: map[string]string{"script": "make"}},
		},
	}
	locks := inferLocks(tpl)
	testutil.AssertLen(t, locks["build"], 1)
	testutil.AssertEqual(t, locks["build"][0].Key, core.RepoSerialLockKey)
	testutil.AssertEqual(t, string(locks["build"][0].Mode), string(core.LockExclusive))
}

func TestInferLocks_MergeNodeLocksSourceAndTarget(t *testing.T) {
	tpl := &core.WorkflowTemplate{
		Nodes: []core.Node{
			{
				ID: "merge", Kind: core.NodeKindBuiltin, Uses: "cap.merge.apply",
				Args: map[string]string{"source_branch": "feature", "target_branch": "main"},
			},
		},
	}
	locks := inferLocks(tpl)
	testutil.AssertLen(t, locks["merge"], 2)
}

func TestInferLocks_ExplicitLocksSuppressInference(t *testing.T) {
	tpl := &core.WorkflowTemplate{
		Nodes: []core.Node{
			{
				ID: "merge", Kind: core.NodeKindBuiltin, Uses: "cap.merge.apply",
				Args:  map[string]string{"source_branch": "feature", "target_branch": "main"},
				Locks: []core.Lock{{Key: "custom", Mode: core.LockShared}},
			},
		},
	}
	locks := inferLocks(tpl)
	testutil.AssertLen(t, locks["merge"], 1)
	testutil.AssertEqual(t, locks["merge"][0].Key, "custom")
}

func TestInferLocks_BuiltinWithoutBranchArgsGetsNone(t *testing.T) {
	tpl := &core.WorkflowTemplate{
		Nodes: []core.Node{
			{ID: "gate", Kind: core.NodeKindBuiltin, Uses: "cap.cicd.gate", Args: map[string]string{}},
		},
	}
	locks := inferLocks(tpl)
	testutil.AssertLen(t, locks["gate"], 0)
}
