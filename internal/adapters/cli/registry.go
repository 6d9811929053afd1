package cli

import (
	"fmt"
	"sync"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// AgentFactory creates a core.AgentRunner from adapter configuration.
type AgentFactory func(cfg AgentConfig) (core.AgentRunner, error)

// Registry builds and caches the agent backends a workflow run can select
// between. Exactly one backend is picked per cap.agent.* node (spec.md
// §4.5) — the registry's job is resolving a name to a ready-to-launch
// core.AgentRunner, not fanning a prompt out across several of them.
type Registry struct {
	factories map[string]AgentFactory
	agents    map[string]core.AgentRunner
	configs   map[string]AgentConfig
	mu        sync.RWMutex
}

// NewRegistry creates a registry with the five built-in backends registered.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]AgentFactory),
		agents:    make(map[string]core.AgentRunner),
		configs:   make(map[string]AgentConfig),
	}
	r.RegisterFactory(core.AgentClaude, NewClaudeAdapter)
	r.RegisterFactory(core.AgentGemini, NewGeminiAdapter)
	r.RegisterFactory(core.AgentCodex, NewCodexAdapter)
	r.RegisterFactory(core.AgentCopilot, NewCopilotAdapter)
	r.RegisterFactory(core.AgentOpenCode, NewOpenCodeAdapter)
	return r
}

// RegisterFactory registers a factory for an agent backend name.
func (r *Registry) RegisterFactory(name string, factory AgentFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Configure sets the launch configuration for a backend, dropping any
// already-built instance so the next Get rebuilds it with the new config.
func (r *Registry) Configure(name string, cfg AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = cfg
	delete(r.agents, name)
}

// Get returns the named backend, building and caching it on first use.
func (r *Registry) Get(name string) (core.AgentRunner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if agent, ok := r.agents[name]; ok {
		return agent, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, core.ErrNotFound("agent", name)
	}

	cfg, ok := r.configs[name]
	if !ok {
		cfg = AgentConfig{Name: name, Path: name}
	}

	agent, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating agent %s: %w", name, err)
	}

	r.agents[name] = agent
	return agent, nil
}

// List returns the names of all registered backend factories.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Has reports whether a backend factory is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// NewRunnerFromConfig builds the core.AgentRunner for a run's default agent
// backend (config.AgentsConfig.Default), applying any per-backend overrides
// from config.AgentsConfig.Agents. This is the composition root's single
// entrypoint for wiring executor.Deps.Agent.
func NewRunnerFromConfig(cfg config.AgentsConfig) (core.AgentRunner, error) {
	if !core.IsValidAgent(cfg.Default) {
		return nil, core.ErrValidation("UNKNOWN_AGENT_BACKEND", "unknown agent backend: "+cfg.Default)
	}
	registry := NewRegistry()
	if ac, ok := cfg.Agents[cfg.Default]; ok {
		registry.Configure(cfg.Default, AgentConfig{
			Name:            cfg.Default,
			Path:            ac.Path,
			Model:           ac.Model,
			ReasoningEffort: ac.ReasoningEffort,
		})
	}
	return registry.Get(cfg.Default)
}
