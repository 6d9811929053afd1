package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

const msgInvalidReasoningEffort = "invalid reasoning effort (valid: none, minimal, low, medium, high, xhigh, max)"

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateJobs(&cfg.Jobs)
	v.validateGit(&cfg.Git)
	v.validateAgents(&cfg.Agents)
	v.validateRelease(&cfg.Release)
	v.validateReview(&cfg.Review)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	validLevels := map[string]bool{
		core.LogDebug: true, core.LogInfo: true, core.LogWarn: true, core.LogError: true,
	}
	if !validLevels[cfg.Level] {
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		core.LogFormatAuto: true, core.LogFormatText: true, core.LogFormatJSON: true,
	}
	if !validFormats[cfg.Format] {
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateJobs(cfg *JobsConfig) {
	validBackends := map[string]bool{
		core.StoreBackendJSON: true, core.StoreBackendSQLite: true,
	}
	if !validBackends[cfg.Backend] {
		v.addError("jobs.backend", cfg.Backend, "must be one of: json, sqlite")
	}

	if strings.TrimSpace(cfg.Root) == "" {
		v.addError("jobs.root", cfg.Root, "jobs root directory required")
	}

	if _, err := time.ParseDuration(cfg.GCAfter); err != nil {
		v.addError("jobs.gc_after", cfg.GCAfter, "invalid duration format")
	}

	if cfg.TickIntervalMS <= 0 {
		v.addError("jobs.tick_interval_ms", cfg.TickIntervalMS, "must be positive")
	}
}

func (v *Validator) validateGit(cfg *GitConfig) {
	if strings.TrimSpace(cfg.Remote) == "" {
		v.addError("git.remote", cfg.Remote, "remote name required")
	}
	if strings.TrimSpace(cfg.WorktreeDir) == "" {
		v.addError("git.worktree_dir", cfg.WorktreeDir, "worktree directory required")
	}
	if _, err := time.ParseDuration(cfg.CommandTimeout); err != nil {
		v.addError("git.command_timeout", cfg.CommandTimeout, "invalid duration format")
	}
}

func (v *Validator) validateAgents(cfg *AgentsConfig) {
	if !core.IsValidAgent(cfg.Default) {
		v.addError("agents.default", cfg.Default, "unknown agent")
	}
	if _, ok := cfg.Agents[cfg.Default]; !ok {
		v.addError("agents.default", cfg.Default, "default agent has no agents.agents.<name> entry")
	}

	for name, ac := range cfg.Agents {
		if !core.IsValidAgent(name) {
			v.addError("agents.agents."+name, name, "unknown agent")
			continue
		}
		v.validateAgent("agents.agents."+name, &ac)
	}
}

func (v *Validator) validateAgent(prefix string, cfg *AgentConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		v.addError(prefix+".path", cfg.Path, "path required")
	}
	if cfg.ReasoningEffort != "" && !core.IsValidReasoningEffort(cfg.ReasoningEffort) {
		v.addError(prefix+".reasoning_effort", cfg.ReasoningEffort, msgInvalidReasoningEffort)
	}
}

func (v *Validator) validateRelease(cfg *ReleaseConfig) {
	if cfg.MaxCommits < 0 {
		v.addError("release.max_commits", cfg.MaxCommits, "must be non-negative")
	}
}

func (v *Validator) validateReview(cfg *ReviewConfig) {
	if cfg.MaxAutoResolveAttempts < 0 {
		v.addError("review.max_auto_resolve_attempts", cfg.MaxAutoResolveAttempts, "must be non-negative")
	}
	if cfg.AutoResolve && cfg.MaxAutoResolveAttempts == 0 {
		v.addError("review.max_auto_resolve_attempts", cfg.MaxAutoResolveAttempts, "must be > 0 when auto_resolve is enabled")
	}
}

// ValidateConfig is a convenience function that creates a validator and validates config.
func ValidateConfig(cfg *Config) error {
	v := NewValidator()
	return v.Validate(cfg)
}
