package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/fsutil"
)

// initDirs are the directories `vizier init` seeds under .vizier/,
// recovered from original_source's workspace bootstrap (jobs, sessions,
// tmp, tmp-worktrees, implementation-plans).
var initDirs = []string{
	".vizier/jobs",
	".vizier/sessions",
	".vizier/tmp",
	".vizier/tmp-worktrees",
	".vizier/implementation-plans",
}

// InitOutput reports what InitWorkspace actually did, so the CLI can
// render "already satisfied" versus "initialized" without a second pass.
type InitOutput struct {
	ProjectRoot      string   `json:"project_root"`
	ConfigPath       string   `json:"config_path"`
	CreatedDirs      []string `json:"created_dirs"`
	WroteConfig      bool     `json:"wrote_config"`
	AlreadySatisfied bool     `json:"already_satisfied"`
}

// InitWorkspace idempotently seeds a project's .vizier/ workspace: every
// directory in initDirs plus a default config.toml if one isn't already
// present. A second call with the same projectRoot creates nothing and
// reports AlreadySatisfied.
func InitWorkspace(projectRoot string, force bool) (*InitOutput, error) {
	out := &InitOutput{ProjectRoot: projectRoot}
	out.ConfigPath = filepath.Join(projectRoot, ".vizier", "config.toml")

	for _, dir := range initDirs {
		full := filepath.Join(projectRoot, dir)
		if _, err := os.Stat(full); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(full, 0o750); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
		out.CreatedDirs = append(out.CreatedDirs, dir)
	}

	if _, err := os.Stat(out.ConfigPath); err == nil && !force {
		out.AlreadySatisfied = len(out.CreatedDirs) == 0
		return out, nil
	} else if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err := fsutil.AtomicWriteFile(out.ConfigPath, []byte(config.DefaultConfigTOML), 0o600); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}
	out.WroteConfig = true
	return out, nil
}
