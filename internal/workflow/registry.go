package workflow

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"planwise/internal/domain"
)

//go:embed config/*.yaml
var configFiles embed.FS

// StepCount is the number of fixed workflow steps
const StepCount = 9

// Registry is the static step table keyed by step number. It is read-only
// after construction.
type Registry struct {
	steps  []Step
	byStep map[int]*Step
}

// NewRegistry loads the embedded step table
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/steps.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read steps.yaml: %w", err)
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var file stepsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps.yaml: %w", err)
	}

	r := &Registry{
		steps:  file.Steps,
		byStep: make(map[int]*Step, len(file.Steps)),
	}
	sort.SliceStable(r.steps, func(i, j int) bool { return r.steps[i].Number < r.steps[j].Number })

	for i := range r.steps {
		s := &r.steps[i]
		if s.Number < 1 || s.Number > StepCount {
			return nil, fmt.Errorf("step %q: number %d out of range", s.Key, s.Number)
		}
		if _, dup := r.byStep[s.Number]; dup {
			return nil, fmt.Errorf("step number %d defined twice", s.Number)
		}
		r.byStep[s.Number] = s
	}
	if len(r.byStep) != StepCount {
		return nil, fmt.Errorf("expected %d steps, found %d", StepCount, len(r.byStep))
	}

	return r, nil
}

// Get returns the step with the given number
func (r *Registry) Get(number int) (*Step, error) {
	s, ok := r.byStep[number]
	if !ok {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("workflow step must be between 1 and %d", StepCount)}
	}
	return s, nil
}

// List returns all steps ordered by number
func (r *Registry) List() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}
