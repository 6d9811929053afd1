package config

// DefaultConfigTOML contains the default configuration written by `vizier init`
// into .vizier/config.toml. Values not specified by a project override here
// use the same defaults set in Loader.setDefaults.
const DefaultConfigTOML = `# Vizier configuration
# Values not specified here use sensible defaults.

[log]
level = "info"
format = "auto"
file = ""

[jobs]
backend = "json"
root = ".vizier/jobs"
gc_after = "168h"
tick_interval_ms = 500

[git]
remote = "origin"
worktree_dir = ".vizier/worktrees"
cleanup_on_cancel = true
command_timeout = "2m"

[agents]
default = "claude"

[agents.agents.claude]
path = "claude"
model = ""
reasoning_effort = ""

[release]
tag = true
max_commits = 500
require_clean = true

[review]
checks = []
auto_resolve = false
max_auto_resolve_attempts = 3

[commands]
`
