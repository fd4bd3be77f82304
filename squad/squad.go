// Package squad loads file-based squad configurations, checks their
// assistant dependencies, and assembles vendor API request payloads.
package squad

import (
	"fmt"
	"os"
	"path/filepath"

	"ensemble/config"
)

// Config is a complete squad configuration loaded from its directory.
type Config struct {
	Name     string
	BasePath string
	Config   map[string]any
	// Members holds the entries of the members list from members.yaml.
	Members []map[string]any
	// Overrides holds every document from overrides/, keyed by file stem.
	Overrides map[string]any
	// Routing holds every document from routing/, keyed by file stem.
	Routing map[string]any
}

// Loader reads squad configurations from a base directory. Each squad
// lives in its own subdirectory:
//
//	<base>/<name>/squad.yaml
//	<base>/<name>/members.yaml
//	<base>/<name>/overrides/*.yaml
//	<base>/<name>/routing/*.yaml
type Loader struct {
	BaseDir string
}

func NewLoader(baseDir string) *Loader {
	return &Loader{BaseDir: baseDir}
}

// Load reads the named squad, applying the environment overlay to
// squad.yaml.
func (l *Loader) Load(name, environment string) (*Config, error) {
	basePath := filepath.Join(l.BaseDir, name)
	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("squad directory not found: %s", basePath)
	}

	cfg, err := config.LoadConfigFile(filepath.Join(basePath, "squad.yaml"), environment)
	if err != nil {
		return nil, fmt.Errorf("squad '%s': %w", name, err)
	}

	members, err := loadMembers(filepath.Join(basePath, "members.yaml"))
	if err != nil {
		return nil, fmt.Errorf("squad '%s': %w", name, err)
	}

	overrides, err := config.LoadDir(filepath.Join(basePath, "overrides"))
	if err != nil {
		return nil, fmt.Errorf("squad '%s': %w", name, err)
	}

	routing, err := config.LoadDir(filepath.Join(basePath, "routing"))
	if err != nil {
		return nil, fmt.Errorf("squad '%s': %w", name, err)
	}

	return &Config{
		Name:      name,
		BasePath:  basePath,
		Config:    cfg,
		Members:   members,
		Overrides: overrides,
		Routing:   routing,
	}, nil
}

// List returns the names of every squad directory under BaseDir.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.BaseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list squads: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// loadMembers reads the members list from members.yaml. A missing file
// yields an empty list.
func loadMembers(path string) ([]map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	doc, err := config.LoadMapping(path)
	if err != nil {
		return nil, err
	}

	raw, ok := doc["members"].([]any)
	if !ok {
		return nil, nil
	}
	members := make([]map[string]any, 0, len(raw))
	for i, item := range raw {
		member, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("members.yaml: member %d is not a mapping", i)
		}
		members = append(members, member)
	}
	return members, nil
}
