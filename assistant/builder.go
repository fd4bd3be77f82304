package assistant

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ensemble/config"
)

// voiceProviderAliases maps configuration provider names to the names the
// vendor API expects.
var voiceProviderAliases = map[string]string{
	"elevenlabs": "11labs",
	"rime":       "rime-ai",
}

// BuildCreateRequest assembles the vendor create payload from a loaded
// assistant configuration. The payload is an untyped mapping, ready for
// JSON serialization by the HTTP layer.
func BuildCreateRequest(cfg *Config) (map[string]any, error) {
	ac := cfg.Config

	request := map[string]any{
		"voice": buildVoice(asMap(ac["voice"])),
		"model": buildModel(cfg),
	}

	if name, ok := ac["name"]; ok {
		request["name"] = name
	} else {
		request["name"] = cfg.Name
	}

	if transcriber := buildTranscriber(asMap(ac["transcriber"])); len(transcriber) > 0 {
		request["transcriber"] = transcriber
	}

	if cfg.FirstMessage != "" {
		request["firstMessage"] = cfg.FirstMessage
	} else if fm, ok := ac["firstMessage"]; ok {
		request["firstMessage"] = fm
	}
	if mode, ok := ac["firstMessageMode"]; ok {
		request["firstMessageMode"] = mode
	}
	if msgs, ok := ac["serverMessages"]; ok {
		request["serverMessages"] = msgs
	}

	if server := buildServer(asMap(ac["server"])); server != nil {
		request["server"] = server
	}

	if plan := buildAnalysisPlan(cfg, asMap(ac["analysisPlan"])); len(plan) > 0 {
		request["analysisPlan"] = plan
	}

	return request, nil
}

func buildVoice(voiceConfig map[string]any) map[string]any {
	provider, _ := voiceConfig["provider"].(string)
	if alias, ok := voiceProviderAliases[provider]; ok {
		provider = alias
	}

	voice := map[string]any{"provider": provider}
	if id, ok := voiceConfig["voiceId"]; ok {
		voice["voiceId"] = id
	}
	if model, ok := voiceConfig["model"]; ok {
		voice["model"] = model
	}
	return voice
}

func buildModel(cfg *Config) map[string]any {
	modelConfig := asMap(cfg.Config["model"])

	model := map[string]any{
		"tools": buildTools(cfg.Tools),
	}
	for _, key := range []string{"model", "provider", "temperature"} {
		if v, ok := modelConfig[key]; ok {
			model[key] = v
		}
	}

	if cfg.SystemPrompt != "" {
		model["messages"] = []any{
			map[string]any{"role": "system", "content": cfg.SystemPrompt},
		}
	}

	return model
}

func buildTranscriber(transConfig map[string]any) map[string]any {
	transcriber := map[string]any{}
	for _, key := range []string{"model", "provider", "language"} {
		if v, ok := transConfig[key]; ok {
			transcriber[key] = v
		}
	}
	return transcriber
}

// buildServer returns the webhook server block, or nil when the URL is
// absent or still carries unresolved ${VAR} placeholders. Deploying a
// half-substituted URL would silently break call events.
func buildServer(serverConfig map[string]any) map[string]any {
	url, _ := serverConfig["url"].(string)
	url = config.SubstituteString(url)
	if url == "" || config.HasUnresolvedVars(url) {
		return nil
	}

	server := map[string]any{"url": url}
	if timeout, ok := serverConfig["timeoutSeconds"]; ok {
		server["timeoutSeconds"] = timeout
	}
	return server
}

// buildTools flattens the resolved tool documents into the vendor tool
// list: function tools, transfer destinations, enabled builtin tools, and
// the always-present endCall tool.
func buildTools(toolDocs map[string]map[string]any) []any {
	tools := []any{}

	if functionsDoc, ok := toolDocs["functions"]; ok {
		for _, raw := range asList(functionsDoc["functions"]) {
			fn := asMap(raw)
			if len(fn) == 0 {
				continue
			}
			tool := map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        fn["name"],
					"description": fn["description"],
					"parameters":  orEmptyMap(fn["parameters"]),
				},
			}
			if server := asMap(fn["server"]); len(server) > 0 {
				tool["server"] = server
			}
			tools = append(tools, tool)
		}
	}

	if transfersDoc, ok := toolDocs["transfers"]; ok {
		if transfer := buildTransferTool(asList(transfersDoc["transfers"])); transfer != nil {
			tools = append(tools, transfer)
		}
	}

	for _, stem := range sortedKeys(toolDocs) {
		doc := toolDocs[stem]
		if doc["type"] == "vapi-builtin-collection" {
			tools = append(tools, buildBuiltinTools(asMap(doc["vapi_tools"]))...)
		}
	}

	tools = append(tools, map[string]any{"type": "endCall"})
	return tools
}

func buildTransferTool(transfers []any) map[string]any {
	var destinations []any
	for _, raw := range transfers {
		transfer := asMap(raw)
		if transfer["type"] != "number" {
			continue
		}
		number, _ := transfer["number"].(string)
		number = config.SubstituteString(number)
		if number == "" || config.HasUnresolvedVars(number) {
			continue
		}
		destination := map[string]any{
			"type":        "number",
			"number":      number,
			"description": "",
		}
		if desc, ok := transfer["description"]; ok {
			destination["description"] = desc
		}
		destinations = append(destinations, destination)
	}

	if len(destinations) == 0 {
		return nil
	}
	return map[string]any{
		"type":         "transferCall",
		"destinations": destinations,
	}
}

func buildBuiltinTools(builtins map[string]any) []any {
	var tools []any
	for _, name := range sortedKeys(builtins) {
		raw := builtins[name]
		// endCall and transferCall are assembled elsewhere.
		if name == "endCall" || name == "transferCall" {
			continue
		}
		builtin := asMap(raw)
		if enabled, _ := builtin["enabled"].(bool); !enabled {
			continue
		}

		tool := map[string]any{"type": name}
		if t, ok := builtin["type"]; ok {
			tool["type"] = t
		}
		if name == "voicemail" {
			if msg, ok := builtin["message"]; ok {
				tool["message"] = msg
			}
		}
		tools = append(tools, tool)
	}
	return tools
}

// buildAnalysisPlan assembles the post-call analysis plan. A sub-plan that
// is enabled but has no messages is dropped rather than sent empty, which
// preserves whatever plan the vendor already holds.
func buildAnalysisPlan(cfg *Config, planConfig map[string]any) map[string]any {
	if len(planConfig) == 0 {
		return nil
	}

	plan := map[string]any{}
	if threshold, ok := planConfig["minMessagesThreshold"]; ok {
		plan["minMessagesThreshold"] = threshold
	}

	if summary := buildSubPlan(cfg, asMap(planConfig["summaryPlan"]), "summary-system-prompt.md", "summary-user-prompt.md", nil); summary != nil {
		plan["summaryPlan"] = summary
	}

	var schema any
	if s, ok := cfg.Schemas["structured_data"]; ok {
		schema = s
	}
	if structured := buildSubPlan(cfg, asMap(planConfig["structuredDataPlan"]), "extraction-system-prompt.md", "extraction-user-prompt.md", schema); structured != nil {
		plan["structuredDataPlan"] = structured
	}

	return plan
}

func buildSubPlan(cfg *Config, subConfig map[string]any, systemFile, userFile string, schema any) map[string]any {
	if len(subConfig) == 0 {
		return nil
	}

	enabled, _ := subConfig["enabled"].(bool)
	sub := map[string]any{"enabled": enabled}
	if timeout, ok := subConfig["timeoutSeconds"]; ok {
		sub["timeoutSeconds"] = timeout
	}

	// Prompt files beside the assistant win over inline messages.
	systemPrompt := cfg.promptTemplate(systemFile)
	userPrompt := cfg.promptTemplate(userFile)
	if systemPrompt != "" && userPrompt != "" {
		sub["messages"] = []any{
			map[string]any{"role": "system", "content": systemPrompt},
			map[string]any{"role": "user", "content": userPrompt},
		}
	} else if msgs, ok := subConfig["messages"]; ok {
		sub["messages"] = msgs
	}

	if schema != nil {
		sub["schema"] = schema
	}

	// With or without enabled, a plan carrying no messages is useless.
	if _, hasMessages := sub["messages"]; !hasMessages {
		return nil
	}
	return sub
}

// promptTemplate reads an optional prompt file from the assistant's
// prompts directory.
func (c *Config) promptTemplate(name string) string {
	data, err := os.ReadFile(filepath.Join(c.BasePath, "prompts", name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// sortedKeys keeps tool assembly deterministic: map iteration order would
// otherwise reshuffle the tools list between builds of an identical config
// and show up as phantom diffs in update plans.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func orEmptyMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
