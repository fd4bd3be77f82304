// Package scaffold materializes new assistant, squad, and shared tool
// configurations from embedded templates.
package scaffold

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed templates
var templatesFS embed.FS

// validName matches letters, numbers, hyphens, and underscores.
var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Scaffolder creates configuration units under one project root, using
// the conventional assistants/, squads/, and shared/tools/ layout.
type Scaffolder struct {
	ProjectRoot string
}

func NewScaffolder(projectRoot string) *Scaffolder {
	return &Scaffolder{ProjectRoot: projectRoot}
}

// ListTemplates returns the embedded template names for one kind:
// "assistants", "squads", or "tools".
func ListTemplates(kind string) ([]string, error) {
	entries, err := templatesFS.ReadDir(filepath.ToSlash(filepath.Join("templates", kind)))
	if err != nil {
		return nil, fmt.Errorf("unknown template kind '%s'", kind)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		} else {
			names = append(names, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
		}
	}
	return names, nil
}

// CreateAssistant materializes a new assistant directory from the named
// template. It fails when the assistant already exists.
func (s *Scaffolder) CreateAssistant(name, template string) error {
	if err := checkName("assistant", name); err != nil {
		return err
	}

	target := filepath.Join(s.ProjectRoot, "assistants", name)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("assistant '%s' already exists at %s", name, target)
	}

	vars := map[string]string{"ASSISTANT_NAME": name}
	return renderTemplateDir("templates/assistants/"+template, target, vars)
}

// CreateSquad materializes a new squad directory from the named template
// and renders members.yaml from the given assistant names.
func (s *Scaffolder) CreateSquad(name, template string, members []string) error {
	if err := checkName("squad", name); err != nil {
		return err
	}

	target := filepath.Join(s.ProjectRoot, "squads", name)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("squad '%s' already exists at %s", name, target)
	}

	vars := map[string]string{"SQUAD_NAME": name}
	if err := renderTemplateDir("templates/squads/"+template, target, vars); err != nil {
		return err
	}

	entries := make([]map[string]any, 0, len(members))
	for _, member := range members {
		entries = append(entries, map[string]any{"assistant_name": member})
	}
	data, err := yaml.Marshal(map[string]any{"members": entries})
	if err != nil {
		return fmt.Errorf("encode members.yaml: %w", err)
	}
	return os.WriteFile(filepath.Join(target, "members.yaml"), data, 0644)
}

// CreateSharedTool writes a shared tool skeleton to shared/tools under
// the project root, ready to be referenced from assistant tool files.
func (s *Scaffolder) CreateSharedTool(name string) error {
	if err := checkName("tool", name); err != nil {
		return err
	}

	target := filepath.Join(s.ProjectRoot, "shared", "tools", name+".yaml")
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("shared tool '%s' already exists at %s", name, target)
	}

	content, err := templatesFS.ReadFile("templates/tools/webhook.yaml")
	if err != nil {
		return fmt.Errorf("read tool template: %w", err)
	}
	rendered := substitute(string(content), map[string]string{"TOOL_NAME": name})

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create shared tools directory: %w", err)
	}
	return os.WriteFile(target, []byte(rendered), 0644)
}

func checkName(kind, name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid %s name '%s': use only letters, numbers, hyphens, and underscores", kind, name)
	}
	return nil
}

// renderTemplateDir copies every file of an embedded template directory
// to target, substituting placeholders along the way.
func renderTemplateDir(templateRoot, target string, vars map[string]string) error {
	if _, err := fs.Stat(templatesFS, templateRoot); err != nil {
		return fmt.Errorf("template '%s' not found", filepath.Base(templateRoot))
	}

	return fs.WalkDir(templatesFS, templateRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, templateRoot), "/")
		dest := filepath.Join(target, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}

		content, err := templatesFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template file %s: %w", path, err)
		}
		return os.WriteFile(dest, []byte(substitute(string(content), vars)), 0644)
	})
}

// substitute replaces ${NAME} placeholders for the given variables only.
// Placeholders for anything else are left for deploy-time substitution.
func substitute(content string, vars map[string]string) string {
	for key, value := range vars {
		content = strings.ReplaceAll(content, "${"+key+"}", value)
	}
	return content
}
