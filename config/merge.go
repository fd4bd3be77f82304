package config

// DeepMerge layers override on top of base and returns the combined mapping.
// Nested mappings merge key-wise, lists concatenate with exact-equal
// duplicates removed (first occurrence wins), anything else is replaced by
// the override value. Neither input is modified. The merge is not
// commutative: base supplies ordering and keys the override doesn't touch.
func DeepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}

	for key, overrideValue := range override {
		baseValue, exists := result[key]
		if !exists {
			result[key] = overrideValue
			continue
		}

		baseMap, baseIsMap := baseValue.(map[string]any)
		overrideMap, overrideIsMap := overrideValue.(map[string]any)
		if baseIsMap && overrideIsMap {
			result[key] = DeepMerge(baseMap, overrideMap)
			continue
		}

		baseList, baseIsList := baseValue.([]any)
		overrideList, overrideIsList := overrideValue.([]any)
		if baseIsList && overrideIsList {
			result[key] = mergeLists(baseList, overrideList)
			continue
		}

		// Scalar or mismatched types: override wins outright.
		result[key] = overrideValue
	}

	return result
}

// overlayMerge layers an environment overlay on top of a base mapping.
// Nested mappings merge key-wise like DeepMerge, but every other value,
// lists included, is replaced wholesale: an environment section must be
// able to shrink or swap a list, not just add to it.
func overlayMerge(base, overlay map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		result[k] = v
	}

	for key, overlayValue := range overlay {
		baseMap, baseIsMap := result[key].(map[string]any)
		overlayMap, overlayIsMap := overlayValue.(map[string]any)
		if baseIsMap && overlayIsMap {
			result[key] = overlayMerge(baseMap, overlayMap)
			continue
		}
		result[key] = overlayValue
	}

	return result
}

// mergeLists concatenates base and override, dropping elements that are
// structurally equal to one already kept. Order of first occurrence is
// preserved.
func mergeLists(base, override []any) []any {
	merged := make([]any, 0, len(base)+len(override))
	seen := make(map[string]bool, len(base)+len(override))

	for _, list := range [][]any{base, override} {
		for _, item := range list {
			key := equalityKey(item)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, item)
		}
	}

	return merged
}
