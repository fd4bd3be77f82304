package squad

import (
	"fmt"
	"os"
	"path/filepath"
)

// Validate checks that the loaded configuration is deployable: it names
// itself, carries at least one member, and every member points at an
// assistant directory that exists under assistantsDir.
func (c *Config) Validate(assistantsDir string) error {
	if _, ok := c.Config["name"]; !ok {
		return fmt.Errorf("squad '%s': missing required field 'name' in squad.yaml", c.Name)
	}
	if len(c.Members) == 0 {
		return fmt.Errorf("squad '%s': members.yaml names no members", c.Name)
	}

	seen := map[string]bool{}
	for i, member := range c.Members {
		name, _ := member["assistant_name"].(string)
		if name == "" {
			return fmt.Errorf("squad '%s': member %d has no assistant_name", c.Name, i)
		}
		if seen[name] {
			return fmt.Errorf("squad '%s': duplicate member '%s'", c.Name, name)
		}
		seen[name] = true

		dir := filepath.Join(assistantsDir, name)
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("squad '%s': member assistant '%s' not found at %s", c.Name, name, dir)
		}
	}
	return nil
}
