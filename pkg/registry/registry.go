package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"onboarding-workers/internal/common/validation"
)

//go:embed catalog.json
var defaultCatalog []byte

// Load reads a catalog from path, or the embedded catalog when path is empty.
func Load(path string) (*TaskCatalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return Parse(data)
}

func Parse(data []byte) (*TaskCatalog, error) {
	var c TaskCatalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse task catalog: %w", err)
	}
	return &c, nil
}

// Lookup returns the task named name.
func (c *TaskCatalog) Lookup(name string) (*Task, bool) {
	for i := range c.Tasks {
		if c.Tasks[i].Name == name {
			return &c.Tasks[i], true
		}
	}
	return nil, false
}

func (c *TaskCatalog) Names() []string {
	names := make([]string, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// ValidatePayload checks payload against the task's input schema.
func (c *TaskCatalog) ValidatePayload(name string, payload []byte) (*validation.ValidationResult, error) {
	task, ok := c.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("task %q is not in the catalog", name)
	}
	if len(task.InputSchema) == 0 {
		return &validation.ValidationResult{Valid: true}, nil
	}
	return validation.Validate(task.InputSchema, payload)
}

// TimeoutOf parses the task timeout, falling back to def.
func (t *Task) TimeoutOf(def time.Duration) time.Duration {
	if t.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Check verifies catalog consistency: unique names, entity types present,
// compilable schemas and non-negative retries.
func (c *TaskCatalog) Check() []string {
	var problems []string
	seen := map[string]bool{}
	for _, t := range c.Tasks {
		if t.Name == "" {
			problems = append(problems, "task with empty name")
			continue
		}
		if seen[t.Name] {
			problems = append(problems, fmt.Sprintf("%s: duplicate name", t.Name))
		}
		seen[t.Name] = true
		if t.EntityType == "" {
			problems = append(problems, fmt.Sprintf("%s: entityType is required", t.Name))
		}
		if t.Retries < 0 {
			problems = append(problems, fmt.Sprintf("%s: retries must be >= 0", t.Name))
		}
		if t.Timeout != "" {
			if _, err := time.ParseDuration(t.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("%s: invalid timeout %q", t.Name, t.Timeout))
			}
		}
		if len(t.InputSchema) > 0 {
			if err := validation.Compile(t.InputSchema); err != nil {
				problems = append(problems, fmt.Sprintf("%s: invalid input schema: %v", t.Name, err))
			}
		}
	}
	return problems
}
