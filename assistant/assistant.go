// Package assistant loads file-based voice assistant configurations and
// assembles them into vendor API request payloads.
package assistant

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ensemble/config"
)

// Config is a complete assistant configuration loaded from its directory.
type Config struct {
	Name         string
	BasePath     string
	Config       map[string]any
	SystemPrompt string
	FirstMessage string
	// Schemas holds every document from schemas/, keyed by file stem.
	Schemas map[string]any
	// Tools holds every document from tools/, keyed by file stem, with all
	// shared-tool references already resolved and inlined.
	Tools map[string]map[string]any
}

// Loader reads assistant configurations from a base directory. Each
// assistant lives in its own subdirectory:
//
//	<base>/<name>/assistant.yaml
//	<base>/<name>/prompts/system.md
//	<base>/<name>/prompts/first_message.md
//	<base>/<name>/schemas/*.yaml
//	<base>/<name>/tools/*.yaml
type Loader struct {
	BaseDir string
	// ProjectRoot anchors $ref paths in tool documents. When empty it is
	// discovered by walking up from BaseDir looking for a .git directory.
	ProjectRoot string
}

func NewLoader(baseDir string) *Loader {
	return &Loader{BaseDir: baseDir}
}

func (l *Loader) projectRoot() string {
	if l.ProjectRoot != "" {
		return l.ProjectRoot
	}
	return config.FindProjectRoot(l.BaseDir)
}

// Load reads the named assistant, applying the environment overlay to
// assistant.yaml and resolving shared-tool references in every tool
// document.
func (l *Loader) Load(name, environment string) (*Config, error) {
	basePath := filepath.Join(l.BaseDir, name)
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("assistant directory not found: %s", basePath)
	}

	cfg, err := config.LoadConfigFile(filepath.Join(basePath, "assistant.yaml"), environment)
	if err != nil {
		return nil, fmt.Errorf("assistant '%s': %w", name, err)
	}

	systemPrompt, err := loadTextFile(filepath.Join(basePath, "prompts", "system.md"))
	if err != nil {
		return nil, fmt.Errorf("assistant '%s': %w", name, err)
	}
	firstMessage, err := loadTextFile(filepath.Join(basePath, "prompts", "first_message.md"))
	if err != nil {
		return nil, fmt.Errorf("assistant '%s': %w", name, err)
	}

	schemas, err := config.LoadDir(filepath.Join(basePath, "schemas"))
	if err != nil {
		return nil, fmt.Errorf("assistant '%s': %w", name, err)
	}

	tools, err := l.loadTools(filepath.Join(basePath, "tools"))
	if err != nil {
		return nil, fmt.Errorf("assistant '%s': %w", name, err)
	}

	return &Config{
		Name:         name,
		BasePath:     basePath,
		Config:       cfg,
		SystemPrompt: systemPrompt,
		FirstMessage: firstMessage,
		Schemas:      schemas,
		Tools:        tools,
	}, nil
}

// loadTools reads every tool document and resolves its shared references
// against the project root.
func (l *Loader) loadTools(toolsDir string) (map[string]map[string]any, error) {
	docs, err := config.LoadDir(toolsDir)
	if err != nil {
		return nil, err
	}

	root := l.projectRoot()
	tools := make(map[string]map[string]any, len(docs))
	for stem, doc := range docs {
		resolved, err := config.Resolve(doc, root, nil)
		if err != nil {
			return nil, fmt.Errorf("tool '%s': %w", stem, err)
		}
		m, ok := resolved.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool '%s': top-level document must be a mapping, got %T", stem, resolved)
		}
		tools[stem] = m
	}

	return tools, nil
}

// List returns the names of all assistant directories under the base dir.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.BaseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func loadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
