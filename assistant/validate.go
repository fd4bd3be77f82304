package assistant

import "fmt"

// Validate checks that the loaded configuration carries the fields the
// vendor requires before any deployment is attempted.
func (c *Config) Validate() error {
	required := []string{"name", "model", "voice"}
	for _, field := range required {
		if _, ok := c.Config[field]; !ok {
			return fmt.Errorf("assistant '%s': missing required field '%s' in assistant.yaml", c.Name, field)
		}
	}
	return nil
}
