package squad

import (
	"fmt"
	"strings"

	"ensemble/config"
	"ensemble/state"
)

// BuildCreateRequest assembles the vendor squad-creation payload. Every
// member must already be deployed to the environment; undeployed members
// fail the build with all of them listed.
func BuildCreateRequest(cfg *Config, environment string, states *state.Manager) (map[string]any, error) {
	members, missing, err := buildMembers(cfg, environment, states)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("squad '%s': assistants not deployed to %s: %s",
			cfg.Name, environment, strings.Join(missing, ", "))
	}

	return map[string]any{
		"name":    squadName(cfg),
		"members": members,
	}, nil
}

// squadName prefers the name in squad.yaml over the directory name,
// ignoring unrendered template placeholders.
func squadName(cfg *Config) string {
	name, _ := cfg.Config["name"].(string)
	if name == "" || strings.HasPrefix(name, "{{") {
		return cfg.Name
	}
	return name
}

func buildMembers(cfg *Config, environment string, states *state.Manager) ([]any, []string, error) {
	var members []any
	var missing []string

	for _, member := range cfg.Members {
		name, _ := member["assistant_name"].(string)
		if name == "" {
			continue
		}

		id, err := resolveAssistantID(states, name, environment)
		if err != nil {
			return nil, nil, err
		}
		if id == "" {
			missing = append(missing, name)
			continue
		}

		entry := map[string]any{"assistantId": id}
		if destinations := buildDestinations(member, environment, states); len(destinations) > 0 {
			entry["assistantDestinations"] = destinations
		}
		if overrides := buildAssistantOverrides(member, cfg.Overrides); len(overrides) > 0 {
			entry["assistantOverrides"] = overrides
		}
		members = append(members, entry)
	}
	return members, missing, nil
}

// resolveAssistantID looks up the deployed vendor ID, treating a missing
// assistant config as not deployed.
func resolveAssistantID(states *state.Manager, name, environment string) (string, error) {
	if !states.Exists(name) {
		return "", nil
	}
	info, err := states.Get(name, environment)
	if err != nil {
		return "", fmt.Errorf("assistant '%s': %w", name, err)
	}
	return info.ID, nil
}

// buildDestinations converts assistant-type destination entries into the
// vendor schema. Undeployed destination targets are skipped; routing-only
// keys like conditions and keywords never reach the payload.
func buildDestinations(member map[string]any, environment string, states *state.Manager) []any {
	raw, ok := member["destinations"].([]any)
	if !ok {
		return nil
	}

	var destinations []any
	for _, item := range raw {
		dest, ok := item.(map[string]any)
		if !ok || dest["type"] != "assistant" {
			continue
		}
		name, _ := dest["assistant_name"].(string)
		if name == "" {
			continue
		}
		id, err := resolveAssistantID(states, name, environment)
		if err != nil || id == "" {
			continue
		}

		out := map[string]any{
			"type":          "assistant",
			"assistantName": name,
			"transferMode":  "rolling-history",
			// Empty message suppresses the vendor's default transfer line.
			"message": "",
		}
		if description, ok := dest["description"].(string); ok {
			out["description"] = description
		}
		destinations = append(destinations, out)
	}
	return destinations
}

// buildAssistantOverrides layers squad-wide default_overrides under the
// member's own overrides block.
func buildAssistantOverrides(member map[string]any, global map[string]any) map[string]any {
	overrides := map[string]any{}
	if defaults, ok := global["default_overrides"].(map[string]any); ok {
		overrides = config.DeepMerge(overrides, defaults)
	}
	if own, ok := member["overrides"].(map[string]any); ok {
		overrides = config.DeepMerge(overrides, own)
	}
	return overrides
}
