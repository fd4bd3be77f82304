// Package state tracks which assistants and squads are deployed to which
// environment. State lives in a _vapi section inside each unit's own
// configuration file, so it travels with the config tree.
package state

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-hclog"

	"ensemble/config"
	"ensemble/store"
)

// Environments is the fixed set of deployment targets.
var Environments = []string{"development", "staging", "production"}

// IsValidEnvironment reports whether env is a known deployment target.
func IsValidEnvironment(env string) bool {
	for _, e := range Environments {
		if e == env {
			return true
		}
	}
	return false
}

// Info describes one unit's deployment into one environment.
type Info struct {
	ID         string
	DeployedAt string
	DeployedBy string
	Version    int
}

// IsDeployed reports whether this record carries a vendor ID.
func (i Info) IsDeployed() bool {
	return i.ID != ""
}

// Manager reads and writes deployment state for the units under one base
// directory.
type Manager struct {
	baseDir    string
	configFile string
	kind       string
	logger     hclog.Logger
	events     store.EventStore
}

// NewAssistantManager tracks state in each assistant's assistant.yaml.
func NewAssistantManager(baseDir string) *Manager {
	return &Manager{
		baseDir:    baseDir,
		configFile: "assistant.yaml",
		kind:       "assistant",
		logger:     hclog.NewNullLogger(),
	}
}

// NewSquadManager tracks state in each squad's squad.yaml.
func NewSquadManager(baseDir string) *Manager {
	return &Manager{
		baseDir:    baseDir,
		configFile: "squad.yaml",
		kind:       "squad",
		logger:     hclog.NewNullLogger(),
	}
}

// SetLogger replaces the default no-op logger.
func (m *Manager) SetLogger(logger hclog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetEventStore attaches an audit log; every state transition is recorded.
func (m *Manager) SetEventStore(events store.EventStore) {
	m.events = events
}

// ConfigPath returns the configuration file that holds name's state.
func (m *Manager) ConfigPath(name string) string {
	return filepath.Join(m.baseDir, name, m.configFile)
}

// Exists reports whether a configuration directory exists for name.
func (m *Manager) Exists(name string) bool {
	_, err := os.Stat(m.ConfigPath(name))
	return err == nil
}

// Get returns the deployment record for one environment. Units that were
// never deployed yield a zero record.
func (m *Manager) Get(name, environment string) (Info, error) {
	if !IsValidEnvironment(environment) {
		return Info{}, fmt.Errorf("unknown environment '%s'", environment)
	}
	doc, err := m.loadDocument(name)
	if err != nil {
		return Info{}, err
	}
	return infoFromSection(vapiEnvironments(doc)[environment]), nil
}

// StatusSummary returns the deployment record for every environment.
func (m *Manager) StatusSummary(name string) (map[string]Info, error) {
	doc, err := m.loadDocument(name)
	if err != nil {
		return nil, err
	}
	envs := vapiEnvironments(doc)
	summary := make(map[string]Info, len(Environments))
	for _, env := range Environments {
		summary[env] = infoFromSection(envs[env])
	}
	return summary, nil
}

// MarkDeployed records a successful deployment: stamps the vendor ID, the
// UTC time, the operating user, and increments the version counter. The
// rest of the configuration document is preserved byte-for-semantics.
func (m *Manager) MarkDeployed(name, environment, vendorID string) (Info, error) {
	if !IsValidEnvironment(environment) {
		return Info{}, fmt.Errorf("unknown environment '%s'", environment)
	}
	doc, err := m.loadDocument(name)
	if err != nil {
		return Info{}, err
	}

	current := infoFromSection(vapiEnvironments(doc)[environment])
	updated := Info{
		ID:         vendorID,
		DeployedAt: time.Now().UTC().Format(time.RFC3339),
		DeployedBy: currentUser(),
		Version:    current.Version + 1,
	}

	setEnvironmentSection(doc, environment, updated)
	if err := m.saveDocument(name, doc); err != nil {
		return Info{}, err
	}

	m.logger.Debug("marked deployed",
		"kind", m.kind, "name", name, "environment", environment,
		"id", vendorID, "version", updated.Version)
	m.recordEvent(name, environment, "deploy", vendorID, updated)

	return updated, nil
}

// ClearDeployment removes the record for one environment, e.g. after the
// vendor-side object was deleted.
func (m *Manager) ClearDeployment(name, environment string) error {
	if !IsValidEnvironment(environment) {
		return fmt.Errorf("unknown environment '%s'", environment)
	}
	doc, err := m.loadDocument(name)
	if err != nil {
		return err
	}

	previous := infoFromSection(vapiEnvironments(doc)[environment])
	delete(vapiEnvironments(doc), environment)
	if err := m.saveDocument(name, doc); err != nil {
		return err
	}

	m.logger.Debug("cleared deployment",
		"kind", m.kind, "name", name, "environment", environment)
	m.recordEvent(name, environment, "release", previous.ID, previous)

	return nil
}

func (m *Manager) recordEvent(name, environment, action, vendorID string, info Info) {
	if m.events == nil {
		return
	}
	_, err := m.events.RecordEvent(store.Event{
		Target:      name,
		Kind:        m.kind,
		Environment: environment,
		Action:      action,
		VendorID:    vendorID,
		Actor:       info.DeployedBy,
		Version:     info.Version,
		At:          time.Now().UTC(),
	})
	if err != nil {
		m.logger.Warn("record deployment event", "name", name, "error", err)
	}
}

func (m *Manager) loadDocument(name string) (map[string]any, error) {
	path := m.ConfigPath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s config not found: %s", m.kind, path)
	}
	return config.LoadMapping(path)
}

func (m *Manager) saveDocument(name string, doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", m.ConfigPath(name), err)
	}
	return os.WriteFile(m.ConfigPath(name), data, 0644)
}

// vapiEnvironments returns the mutable environments mapping inside the
// document's _vapi section, creating it when absent.
func vapiEnvironments(doc map[string]any) map[string]any {
	vapi, ok := doc["_vapi"].(map[string]any)
	if !ok {
		vapi = map[string]any{}
		doc["_vapi"] = vapi
	}
	envs, ok := vapi["environments"].(map[string]any)
	if !ok {
		envs = map[string]any{}
		vapi["environments"] = envs
	}
	return envs
}

func setEnvironmentSection(doc map[string]any, environment string, info Info) {
	vapiEnvironments(doc)[environment] = map[string]any{
		"id":          info.ID,
		"deployed_at": info.DeployedAt,
		"deployed_by": info.DeployedBy,
		"version":     info.Version,
	}
}

func infoFromSection(raw any) Info {
	section, ok := raw.(map[string]any)
	if !ok {
		return Info{}
	}
	info := Info{}
	if id, ok := section["id"].(string); ok {
		info.ID = id
	}
	if at, ok := section["deployed_at"].(string); ok {
		info.DeployedAt = at
	}
	if by, ok := section["deployed_by"].(string); ok {
		info.DeployedBy = by
	}
	info.Version = toInt(section["version"])
	return info
}

// toInt normalizes the numeric types the YAML parser may hand back.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
