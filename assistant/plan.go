package assistant

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// UpdatePlan describes the minimal change set between a live assistant
// payload and a freshly built one.
type UpdatePlan struct {
	// Patch is a JSON merge patch (RFC 7386) that turns the current
	// payload into the desired one. Empty when nothing changed.
	Patch map[string]any
	// Changed reports whether applying the plan would modify anything.
	Changed bool
}

// PlanUpdate computes the merge patch between the payload currently held by
// the vendor and the payload built from local configuration. Callers send
// only the patch, so untouched sections keep whatever the vendor holds.
func PlanUpdate(current, desired map[string]any) (*UpdatePlan, error) {
	currentJSON, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode current payload: %w", err)
	}
	desiredJSON, err := json.Marshal(desired)
	if err != nil {
		return nil, fmt.Errorf("encode desired payload: %w", err)
	}

	patchJSON, err := jsonpatch.CreateMergePatch(currentJSON, desiredJSON)
	if err != nil {
		return nil, fmt.Errorf("compute merge patch: %w", err)
	}

	patch := map[string]any{}
	if err := json.Unmarshal(patchJSON, &patch); err != nil {
		return nil, fmt.Errorf("decode merge patch: %w", err)
	}

	return &UpdatePlan{Patch: patch, Changed: len(patch) > 0}, nil
}
