// Package core provides centralized constants and shared types for the
// workflow-and-job execution engine. All packages import from here to keep
// agent identifiers, reasoning efforts, and backend names consistent.
package core

// Agent identifiers for the cap.agent.* capability family.
const (
	AgentClaude   = "claude"
	AgentGemini   = "gemini"
	AgentCodex    = "codex"
	AgentCopilot  = "copilot"
	AgentOpenCode = "opencode"
)

// Agents is the ordered list of all supported agent backends.
var Agents = []string{
	AgentClaude,
	AgentGemini,
	AgentCodex,
	AgentCopilot,
	AgentOpenCode,
}

// ValidAgents is a map for O(1) agent validation.
var ValidAgents = map[string]bool{
	AgentClaude:   true,
	AgentGemini:   true,
	AgentCodex:    true,
	AgentCopilot:  true,
	AgentOpenCode: true,
}

// IsValidAgent checks if the given agent backend name is valid.
func IsValidAgent(agent string) bool {
	return ValidAgents[agent]
}

// Codex reasoning effort levels (via -c model_reasoning_effort="level").
var CodexReasoningEfforts = []string{"minimal", "low", "medium", "high", "xhigh"}

var ValidCodexReasoningEfforts = map[string]bool{
	"minimal": true,
	"low":     true,
	"medium":  true,
	"high":    true,
	"xhigh":   true,
}

// Claude effort levels (via CLAUDE_CODE_EFFORT_LEVEL env var).
var ClaudeReasoningEfforts = []string{"low", "medium", "high", "max"}

var ValidClaudeReasoningEfforts = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
	"max":    true,
}

// AllReasoningEfforts is the union of all valid effort values across agents.
var AllReasoningEfforts = []string{"minimal", "low", "medium", "high", "xhigh", "max"}

var ValidReasoningEfforts = map[string]bool{
	"minimal": true,
	"low":     true,
	"medium":  true,
	"high":    true,
	"xhigh":   true,
	"max":     true,
}

// IsValidReasoningEffort checks if the given reasoning effort is valid for any agent.
func IsValidReasoningEffort(effort string) bool {
	return ValidReasoningEfforts[effort]
}

// AgentsWithReasoning lists agent backends that support extended reasoning effort.
var AgentsWithReasoning = []string{
	AgentClaude,
	AgentCodex,
}

// SupportsReasoning checks if an agent backend supports reasoning effort configuration.
func SupportsReasoning(agent string) bool {
	for _, a := range AgentsWithReasoning {
		if a == agent {
			return true
		}
	}
	return false
}

// Log levels for the structured logger (internal/logging).
const (
	LogDebug = "debug"
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)

// LogLevels is the ordered list of log levels.
var LogLevels = []string{LogDebug, LogInfo, LogWarn, LogError}

// Log formats for the structured logger.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogFormats is the ordered list of log formats.
var LogFormats = []string{LogFormatAuto, LogFormatText, LogFormatJSON}

// Job store backends (C3).
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// StoreBackends is the ordered list of job store backends.
var StoreBackends = []string{StoreBackendJSON, StoreBackendSQLite}

// Merge strategies used by the repo gateway's prepare/commit merge operations.
const (
	MergeStrategyMerge  = "merge"
	MergeStrategySquash = "squash"
	MergeStrategyRebase = "rebase"
)

// MergeStrategies is the ordered list of merge strategies.
var MergeStrategies = []string{MergeStrategyMerge, MergeStrategySquash, MergeStrategyRebase}

// Commit modes used by the worktree-apply pipeline (spec.md §4.5).
const (
	CommitModeAutoCommit    = "auto_commit"
	CommitModeHoldForReview = "hold_for_review"
)
