// Package workflow provides the typed workflow definition and its
// structural validation.
//
// Workflow definitions follow a concise YAML format: a name, an ordered
// list of steps, and an optional matrix strategy. Each step names a
// registered step kind and carries a free-form config map whose meaning is
// defined by the kind. Steps declare their ordering through depends_on
// edges; the induced graph must be acyclic.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stacflow/stacflow/pkg/errors"
)

// Definition represents a YAML-based workflow definition. The workflow
// name doubles as the workflow id for checkpointing. A Definition is
// created by the loader, validated once, and immutable thereafter.
type Definition struct {
	// Name is the workflow identifier (required, used as workflow_id)
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable context about the workflow
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Strategy optionally fans the workflow out into matrix-parallel
	// pipeline instances
	Strategy *StrategyConfig `yaml:"strategy,omitempty" json:"strategy,omitempty"`

	// Steps are the processing units of the workflow
	Steps []StepConfig `yaml:"steps" json:"steps"`
}

// StepConfig represents a single step in a workflow.
type StepConfig struct {
	// ID is the unique step identifier within this workflow
	ID string `yaml:"id" json:"id"`

	// Kind names a registered step kind (e.g. IngestFromApi, SetFields)
	Kind string `yaml:"kind" json:"kind"`

	// Config is a free-form map whose shape is defined by the kind
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`

	// DependsOn lists step ids that must precede this step
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// StrategyConfig configures matrix-parallel execution. Each matrix entry
// produces one full pipeline instance; when absent the workflow runs once.
type StrategyConfig struct {
	// Matrix is an ordered sequence of key/value overlays
	Matrix []map[string]any `yaml:"matrix" json:"matrix"`
}

// ParseDefinition parses a workflow definition from YAML bytes and
// validates its structure.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ConfigError{
			Key:    "workflow",
			Reason: "failed to parse workflow definition",
			Cause:  err,
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// Load reads and parses a workflow definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "workflow",
			Reason: fmt.Sprintf("failed to read workflow file %s", path),
			Cause:  err,
		}
	}
	return ParseDefinition(data)
}

// Validate checks the definition's structural invariants: a non-empty
// name, at least one step, unique step ids, known dependency references,
// and well-formed matrix entries. Role-shape and cycle checks happen in
// ExecutionOrder and ValidateRoles, which need the step registry.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "workflow name is required",
			Suggestion: "add a descriptive name for the workflow",
		}
	}

	if len(d.Steps) == 0 {
		return &errors.ValidationError{
			Field:      "steps",
			Message:    "workflow must have at least one step",
			Suggestion: "add at least one step to the workflow definition",
		}
	}

	stepIDs := make(map[string]bool, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("steps[%d].id", i),
				Message:    "step ID is required",
				Suggestion: "add an 'id' field to each step",
			}
		}
		if step.Kind == "" {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("steps[%d].kind", i),
				Message:    fmt.Sprintf("step %s has no kind", step.ID),
				Suggestion: "add a 'kind' field naming a registered step kind",
			}
		}
		if stepIDs[step.ID] {
			return &errors.ValidationError{
				Field:      "id",
				Message:    fmt.Sprintf("duplicate step ID: %s", step.ID),
				Suggestion: "ensure each step has a unique ID",
			}
		}
		stepIDs[step.ID] = true
	}

	for _, step := range d.Steps {
		for _, dep := range step.DependsOn {
			if !stepIDs[dep] {
				return &errors.ValidationError{
					Field:      "depends_on",
					Message:    fmt.Sprintf("step %s depends on unknown step: %s", step.ID, dep),
					Suggestion: "reference only step ids defined in this workflow",
				}
			}
			if dep == step.ID {
				return &errors.ValidationError{
					Field:      "depends_on",
					Message:    fmt.Sprintf("step %s depends on itself", step.ID),
					Suggestion: "remove the self-reference",
				}
			}
		}
	}

	if d.Strategy != nil {
		if err := d.Strategy.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the strategy configuration. Matrix parallelism requires
// a collection key per entry so that checkpoint files of sibling pipelines
// never collide.
func (s *StrategyConfig) Validate() error {
	if len(s.Matrix) == 0 {
		return &errors.ValidationError{
			Field:      "strategy.matrix",
			Message:    "matrix strategy requires at least one entry",
			Suggestion: "add matrix entries or remove the strategy block",
		}
	}

	for i, entry := range s.Matrix {
		if len(entry) == 0 {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("strategy.matrix[%d]", i),
				Message:    "matrix entry cannot be empty",
				Suggestion: "each matrix entry must carry at least one key/value pair",
			}
		}
		if _, ok := entry["collection_id"]; !ok {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("strategy.matrix[%d]", i),
				Message:    "matrix entry has no collection_id key",
				Suggestion: "matrix pipelines share a checkpoint; a collection_id per entry keeps their logs separate",
			}
		}
	}

	return nil
}

// StepByID returns the step with the given id, or nil.
func (d *Definition) StepByID(id string) *StepConfig {
	for i := range d.Steps {
		if d.Steps[i].ID == id {
			return &d.Steps[i]
		}
	}
	return nil
}
