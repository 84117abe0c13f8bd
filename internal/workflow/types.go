package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Step is one fixed stage of the planning workflow
type Step struct {
	// Key is the YAML map key (set during unmarshaling)
	Key string `yaml:"-" json:"key"`

	Number   int      `yaml:"number" json:"number"`
	Title    string   `yaml:"title" json:"title"`
	Guidance string   `yaml:"guidance" json:"guidance"`
	Outline  []string `yaml:"outline" json:"outline"`
}

// stepsFile is the top-level shape of steps.yaml
type stepsFile struct {
	Steps []Step `yaml:"-"`
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve step order from the YAML file
func (f *stepsFile) UnmarshalYAML(node *yaml.Node) error {
	type stepsOnly struct {
		Steps map[string]Step `yaml:"steps"`
	}
	var m stepsOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "steps" {
			continue
		}
		stepsNode := node.Content[i+1]
		// stepsNode.Content alternates: key, value, key, value...
		for j := 0; j < len(stepsNode.Content); j += 2 {
			key := stepsNode.Content[j].Value
			step, ok := m.Steps[key]
			if !ok {
				continue
			}
			if step.Number == 0 {
				return fmt.Errorf("step %q has no number", key)
			}
			step.Key = key
			f.Steps = append(f.Steps, step)
		}
		break
	}

	return nil
}
