package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v              *viper.Viper
	configFile     string
	envPrefix      string
	projectDir     string     // Resolved project root directory (set by Load)
	projectDirHint string     // Optional: override project root directory for path resolution
	resolvePaths   bool       // Whether to resolve relative paths to absolute on Load
	mu             sync.Mutex // Protects concurrent access to viper operations
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:            viper.New(),
		envPrefix:    "VIZIER",
		resolvePaths: true,
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:            v,
		envPrefix:    "VIZIER",
		resolvePaths: true,
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithProjectDir provides a project root directory hint for resolving relative paths.
func (l *Loader) WithProjectDir(path string) *Loader {
	l.projectDirHint = path
	return l
}

// WithResolvePaths controls whether relative paths are resolved to absolute paths on Load().
func (l *Loader) WithResolvePaths(resolve bool) *Loader {
	l.resolvePaths = resolve
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (VIZIER_*)
// 3. Project config (.vizier/config.toml)
// 4. Defaults
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("toml")
		l.v.AddConfigPath(".vizier")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// No project config present; defaults + env + flags still apply.
		case errors.Is(err, os.ErrNotExist):
			// Explicit config file path does not exist: fall back to defaults.
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	projectDir := ""
	if configPath := l.v.ConfigFileUsed(); configPath != "" {
		if absConfigPath, err := filepath.Abs(configPath); err == nil {
			configDir := filepath.Dir(absConfigPath)
			if filepath.Base(configDir) == ".vizier" {
				projectDir = filepath.Dir(configDir)
			} else {
				projectDir = configDir
			}
		}
	}
	if projectDir == "" {
		projectDir, _ = os.Getwd()
	}
	if strings.TrimSpace(l.projectDirHint) != "" {
		projectDir = l.projectDirHint
	}
	l.projectDir = projectDir
	if l.resolvePaths {
		l.resolveAbsolutePaths(&cfg, projectDir)
	}

	return &cfg, nil
}

// ProjectDir returns the resolved project root directory, the directory
// containing the .vizier/ config folder (or CWD as fallback). Available
// after Load() has been called.
func (l *Loader) ProjectDir() string {
	return l.projectDir
}

// resolveAbsolutePaths converts relative paths in the config to absolute
// paths relative to baseDir, so vizier behaves the same regardless of the
// directory it was invoked from.
func (l *Loader) resolveAbsolutePaths(cfg *Config, baseDir string) {
	if cfg.Jobs.Root != "" {
		cfg.Jobs.Root = resolvePathRelativeTo(cfg.Jobs.Root, baseDir)
	}
	if cfg.Git.WorktreeDir != "" {
		cfg.Git.WorktreeDir = resolvePathRelativeTo(cfg.Git.WorktreeDir, baseDir)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = resolvePathRelativeTo(cfg.Log.File, baseDir)
	}
}

// resolvePathRelativeTo converts a relative path to an absolute path using
// baseDir as the base. Paths already absolute are returned unchanged.
func resolvePathRelativeTo(path, baseDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if len(path) > 0 && (path[0] == '/' || path[0] == '\\') {
		return path
	}
	return filepath.Join(baseDir, path)
}

// setDefaults configures default values, mirroring DefaultConfigTOML.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("jobs.backend", core.StoreBackendJSON)
	l.v.SetDefault("jobs.root", ".vizier/jobs")
	l.v.SetDefault("jobs.gc_after", "168h")
	l.v.SetDefault("jobs.tick_interval_ms", 500)

	l.v.SetDefault("git.remote", "origin")
	l.v.SetDefault("git.worktree_dir", ".vizier/worktrees")
	l.v.SetDefault("git.cleanup_on_cancel", true)
	l.v.SetDefault("git.command_timeout", "2m")

	l.v.SetDefault("agents.default", core.AgentClaude)

	l.v.SetDefault("release.tag", true)
	l.v.SetDefault("release.max_commits", 500)
	l.v.SetDefault("release.require_clean", true)

	l.v.SetDefault("review.auto_resolve", false)
	l.v.SetDefault("review.max_auto_resolve_attempts", 3)
}

// ConfigFile returns the config file path if one was used.
func (l *Loader) ConfigFile() string {
	if l.configFile != "" {
		return l.configFile
	}
	return l.v.ConfigFileUsed()
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// IsSet checks if a key has been set.
func (l *Loader) IsSet(key string) bool {
	return l.v.IsSet(key)
}

// AllSettings returns all settings as a map.
func (l *Loader) AllSettings() map[string]interface{} {
	return l.v.AllSettings()
}
