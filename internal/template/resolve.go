package template

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/quorum-ai/internal/config"
	"github.com/hugo-lorenzo-mato/quorum-ai/internal/core"
)

// workflowsDir is the directory, relative to a project root, that holds
// workflow source files when a flow name is not itself a path.
const workflowsDir = ".vizier/workflows"

// recognizedExtensions is the order in which bare flow names are probed for
// a matching source file.
var recognizedExtensions = []string{".toml", ".hcl"}

// Source is the resolved workflow source selected by a flow name (spec.md
// §4.2 step 1): either a direct alias configured under `commands.<alias>`,
// or a bare selector resolved against `.vizier/workflows/`.
type Source struct {
	// Selector is the name used to look the template up (the flow argument
	// as given, or the config-mapped target).
	Selector string
	// Path is the absolute on-disk path to the resolved workflow source.
	Path string
	// CommandAlias is the flow name the caller passed, when it differs from
	// Selector because `config.Commands` mapped it — nil when the flow
	// argument was used directly as the selector.
	CommandAlias *string
}

// resolveSource maps a flow argument to an on-disk workflow source, per
// spec.md §4.2 step 1: first consult `cfg.Commands` for an alias, then
// resolve the resulting selector against `.vizier/workflows/<selector>` (or
// a path given directly).
func resolveSource(projectRoot, flow string, cfg *config.Config) (Source, error) {
	if flow == "" {
		return Source{}, core.ErrValidation("FLOW_REQUIRED", "flow name cannot be empty")
	}

	selector := flow
	var alias *string
	if cfg != nil {
		if mapped, ok := cfg.Commands[flow]; ok && mapped != "" {
			flowCopy := flow
			alias = &flowCopy
			selector = mapped
		}
	}

	path, err := locateSourceFile(projectRoot, selector)
	if err != nil {
		return Source{}, err
	}

	return Source{Selector: selector, Path: path, CommandAlias: alias}, nil
}

// locateSourceFile finds the file a selector points at. A selector with a
// recognized extension is treated as a path (relative to project_root unless
// already absolute); a bare selector is probed under .vizier/workflows/ with
// each recognized extension in turn.
func locateSourceFile(projectRoot, selector string) (string, error) {
	if ext := filepath.Ext(selector); ext != "" {
		path := selector
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", core.ErrNotFound("workflow source", path)
		}
		return path, nil
	}

	base := filepath.Join(projectRoot, workflowsDir, selector)
	for _, ext := range recognizedExtensions {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	err := core.ErrNotFound("workflow source", selector)
	if suggestion, ok := suggestFlowName(projectRoot, selector); ok {
		err = err.WithDetail("did_you_mean", suggestion)
	}
	return "", err
}

// suggestFlowName fuzzy-matches selector against the names available under
// .vizier/workflows/ so an unknown-flow error can offer a "did you mean"
// hint instead of a bare not-found.
func suggestFlowName(projectRoot, selector string) (string, bool) {
	entries, err := os.ReadDir(filepath.Join(projectRoot, workflowsDir))
	if err != nil {
		return "", false
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		for _, recognized := range recognizedExtensions {
			if ext == recognized {
				names = append(names, strings.TrimSuffix(name, ext))
				break
			}
		}
	}
	matches := fuzzy.Find(selector, names)
	if len(matches) == 0 {
		return "", false
	}
	return matches[0].Str, true
}
