package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// LoadDocument reads and parses a single YAML or JSON document. The parsed
// tree uses map[string]any for mappings, []any for sequences and plain Go
// scalars for everything else. An empty document parses to nil.
func LoadDocument(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml", ".json":
		// goccy/go-yaml handles JSON as a YAML subset, which keeps the
		// two formats byte-for-byte interchangeable here.
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return doc, nil
	default:
		return nil, fmt.Errorf("unsupported file format '%s' for %s", ext, path)
	}
}

// LoadMapping reads a document and requires its top level to be a mapping.
// Empty documents load as an empty mapping.
func LoadMapping(path string) (map[string]any, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: top-level document must be a mapping, got %T", path, doc)
	}
	return m, nil
}

// LoadConfigFile loads a configuration mapping and applies its
// environment-specific overlay. The overlay for the requested environment
// (if any) is merged on top of the base document: nested mappings merge
// key-wise, while lists and scalars are replaced outright. The
// "environments" section is removed from the result. A missing file loads
// as an empty mapping so callers can treat every section as optional.
func LoadConfigFile(path, environment string) (map[string]any, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]any{}, nil
	}

	cfg, err := LoadMapping(path)
	if err != nil {
		return nil, err
	}

	if environment != "" && environment != "default" {
		if envs, ok := cfg["environments"].(map[string]any); ok {
			if overlay, ok := envs[environment].(map[string]any); ok {
				cfg = overlayMerge(cfg, overlay)
			}
		}
	}
	delete(cfg, "environments")

	return cfg, nil
}

// LoadDir loads every YAML/JSON document directly inside dir, keyed by file
// stem. A missing directory yields an empty map.
func LoadDir(dir string) (map[string]any, error) {
	docs := make(map[string]any)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return docs, nil
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch filepath.Ext(name) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		doc, err := LoadDocument(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs[strings.TrimSuffix(name, filepath.Ext(name))] = doc
	}

	return docs, nil
}

// FindProjectRoot walks upward from start looking for a directory that
// contains a .git entry and returns it, falling back to start itself. The
// project root anchors relative $ref paths.
func FindProjectRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}
	for current := dir; ; {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}
