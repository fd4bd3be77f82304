// Package config implements the document model shared by assistant and
// squad configurations: untyped YAML/JSON trees, deep merging, shared-tool
// reference resolution and variable substitution.
package config

import (
	"encoding/json"
	"fmt"
)

// Reserved keys on a reference node. A mapping carrying RefKey names another
// configuration unit to inline in its place; OverridesKey optionally carries
// a mapping to layer on top of the loaded target.
const (
	RefKey       = "$ref"
	OverridesKey = "overrides"
)

// IsReference reports whether node is a mapping carrying a $ref key.
// Other keys on the mapping are ignored for forward compatibility. A $ref
// holding an empty path is not a reference: the mapping passes through
// resolution untouched.
func IsReference(node any) bool {
	m, ok := node.(map[string]any)
	if !ok {
		return false
	}
	ref, present := m[RefKey]
	if !present {
		return false
	}
	if s, ok := ref.(string); ok && s == "" {
		return false
	}
	return true
}

// ContainsReference walks the tree and reports whether any reference node
// remains anywhere in it.
func ContainsReference(node any) bool {
	switch v := node.(type) {
	case map[string]any:
		if IsReference(v) {
			return true
		}
		for _, child := range v {
			if ContainsReference(child) {
				return true
			}
		}
	case []any:
		for _, child := range v {
			if ContainsReference(child) {
				return true
			}
		}
	}
	return false
}

// equalityKey returns a canonical encoding of node used as a structural
// equality key during list deduplication. JSON object keys are emitted
// sorted, so two maps with equal contents always produce the same key.
func equalityKey(node any) string {
	b, err := json.Marshal(node)
	if err != nil {
		return fmt.Sprintf("%#v", node)
	}
	return string(b)
}
