package squad

import (
	"fmt"

	"ensemble/state"
)

// DependencyResolver cross-checks a squad's members against the assistant
// deployment state on disk.
type DependencyResolver struct {
	squads *Loader
	states *state.Manager
}

func NewDependencyResolver(squadsDir, assistantsDir string) *DependencyResolver {
	return &DependencyResolver{
		squads: NewLoader(squadsDir),
		states: state.NewAssistantManager(assistantsDir),
	}
}

// MissingAssistants returns the members of the squad that are not deployed
// to the environment, in members.yaml order.
func (r *DependencyResolver) MissingAssistants(squadName, environment string) ([]string, error) {
	status, order, err := r.dependencyStatus(squadName, environment)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range order {
		if !status[name] {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// DependencyStatus maps every member assistant to whether it is deployed
// to the environment.
func (r *DependencyResolver) DependencyStatus(squadName, environment string) (map[string]bool, error) {
	status, _, err := r.dependencyStatus(squadName, environment)
	return status, err
}

func (r *DependencyResolver) dependencyStatus(squadName, environment string) (map[string]bool, []string, error) {
	cfg, err := r.squads.Load(squadName, environment)
	if err != nil {
		return nil, nil, fmt.Errorf("check squad dependencies: %w", err)
	}

	status := map[string]bool{}
	var order []string
	for _, member := range cfg.Members {
		name, _ := member["assistant_name"].(string)
		if name == "" {
			continue
		}
		if _, seen := status[name]; !seen {
			order = append(order, name)
		}

		id, err := resolveAssistantID(r.states, name, environment)
		if err != nil {
			return nil, nil, fmt.Errorf("check squad dependencies: %w", err)
		}
		status[name] = id != ""
	}
	return status, order, nil
}
