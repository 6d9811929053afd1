package config

// Config holds all engine configuration, loaded from .vizier/config.toml,
// environment variables (VIZIER_*), and CLI flags, in that precedence
// order (internal/config/loader.go).
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Git     GitConfig     `mapstructure:"git"`
	Agents  AgentsConfig  `mapstructure:"agents"`
	Release ReleaseConfig `mapstructure:"release"`
	Review  ReviewConfig  `mapstructure:"review"`

	// Commands maps a flow alias (e.g. "draft", "approve") to a template
	// source selector, per spec.md §6 "config.commands.<alias>".
	Commands map[string]string `mapstructure:"commands"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// JobsConfig configures the job store (C3).
type JobsConfig struct {
	// Backend selects the persistence backend: "json" (default, one
	// directory per job id) or "sqlite" (internal/jobstore/sqlite.go).
	Backend string `mapstructure:"backend"`
	// Root is the jobs directory, normally <project_root>/.vizier/jobs.
	Root string `mapstructure:"root"`
	// GCAfter is a duration string; terminal jobs older than this are
	// eligible for gc_jobs.
	GCAfter string `mapstructure:"gc_after"`
	// TickIntervalMS is the follow-mode sleep between scheduler ticks.
	TickIntervalMS int `mapstructure:"tick_interval_ms"`
}

// GitConfig configures the repo gateway and worktree pipeline.
type GitConfig struct {
	Remote          string `mapstructure:"remote"`
	WorktreeDir     string `mapstructure:"worktree_dir"`
	CleanupOnCancel bool   `mapstructure:"cleanup_on_cancel"`
	CommandTimeout  string `mapstructure:"command_timeout"`
}

// AgentsConfig configures the agent subprocess selector (cap.agent.*).
type AgentsConfig struct {
	Default string                 `mapstructure:"default"`
	Agents  map[string]AgentConfig `mapstructure:"agents"`
}

// AgentConfig configures one agent backend.
type AgentConfig struct {
	Path            string `mapstructure:"path"`
	Model           string `mapstructure:"model"`
	ReasoningEffort string `mapstructure:"reasoning_effort"`
}

// ReleaseConfig configures the release transaction (C6).
type ReleaseConfig struct {
	Script       string `mapstructure:"script"`
	Tag          bool   `mapstructure:"tag"`
	MaxCommits   int    `mapstructure:"max_commits"`
	RequireClean bool   `mapstructure:"require_clean"`
}

// ReviewConfig configures cap.review.checks and cap.cicd.gate executors.
type ReviewConfig struct {
	Checks        []string `mapstructure:"checks"`
	CICDScript    string   `mapstructure:"cicd_script"`
	AutoResolve   bool     `mapstructure:"auto_resolve"`
	MaxAutoResolveAttempts int `mapstructure:"max_auto_resolve_attempts"`
}
