package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stacflow/stacflow/pkg/errors"
)

// Role identifies the protocol a step kind implements in the stream.
type Role string

const (
	// RoleFetcher is the source role: emits items.
	RoleFetcher Role = "fetcher"
	// RoleModifier is the transformation role: item in, item or drop out.
	RoleModifier Role = "modifier"
	// RoleBundler is the sink role: accumulates items, finalizes an output.
	RoleBundler Role = "bundler"
)

// RoleResolver reports the role of a step kind. Implemented by the step
// registry; validation needs it to check the workflow's source/sink shape.
type RoleResolver interface {
	RoleOf(kind string) (Role, bool)
}

// ExecutionOrder computes a topological order of the workflow's steps
// using Kahn's algorithm. If the depends_on graph contains a cycle the
// returned ConfigError names the steps on it.
func ExecutionOrder(def *Definition) ([]string, error) {
	inDegree := make(map[string]int, len(def.Steps))
	dependents := make(map[string][]string, len(def.Steps))
	for _, step := range def.Steps {
		inDegree[step.ID] = len(step.DependsOn)
		for _, dep := range step.DependsOn {
			dependents[dep] = append(dependents[dep], step.ID)
		}
	}

	// Seed with zero-in-degree steps in definition order so the result is
	// stable for a given workflow file.
	var ready []string
	for _, step := range def.Steps {
		if inDegree[step.ID] == 0 {
			ready = append(ready, step.ID)
		}
	}

	order := make([]string, 0, len(def.Steps))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, dependent := range dependents[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(def.Steps) {
		return nil, &errors.ConfigError{
			Key:    "steps",
			Reason: fmt.Sprintf("dependency cycle detected involving steps: %s", strings.Join(recoverCycle(def, inDegree), " -> ")),
		}
	}

	return order, nil
}

// recoverCycle walks the residual graph of steps whose in-degree never
// reached zero and returns one cycle through it for the error message.
func recoverCycle(def *Definition, inDegree map[string]int) []string {
	remaining := make(map[string]bool)
	for id, deg := range inDegree {
		if deg > 0 {
			remaining[id] = true
		}
	}

	// Pick a deterministic starting node.
	var nodes []string
	for id := range remaining {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	if len(nodes) == 0 {
		return nil
	}

	// Follow dependency edges inside the residual set until a node
	// repeats; the walk is guaranteed to loop because every remaining
	// node has an unresolved dependency in the set.
	visited := make(map[string]int)
	var path []string
	current := nodes[0]
	for {
		if at, seen := visited[current]; seen {
			cycle := append(path[at:], current)
			return cycle
		}
		visited[current] = len(path)
		path = append(path, current)

		step := def.StepByID(current)
		next := ""
		for _, dep := range step.DependsOn {
			if remaining[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		current = next
	}
}

// ValidateRoles checks the role shape of the workflow against the
// registry: exactly one fetcher with no upstream dependency (the source),
// exactly one bundler with no downstream dependents (the sink), and every
// other step a modifier.
func ValidateRoles(def *Definition, resolver RoleResolver) error {
	hasDependents := make(map[string]bool)
	for _, step := range def.Steps {
		for _, dep := range step.DependsOn {
			hasDependents[dep] = true
		}
	}

	var fetchers, bundlers []string
	for _, step := range def.Steps {
		role, ok := resolver.RoleOf(step.Kind)
		if !ok {
			return &errors.ConfigError{
				Key:    "kind",
				Reason: fmt.Sprintf("step %s references unknown step kind: %s", step.ID, step.Kind),
			}
		}

		switch role {
		case RoleFetcher:
			fetchers = append(fetchers, step.ID)
			if len(step.DependsOn) > 0 {
				return &errors.ConfigError{
					Key:    "depends_on",
					Reason: fmt.Sprintf("fetcher step %s cannot depend on other steps", step.ID),
				}
			}
		case RoleBundler:
			bundlers = append(bundlers, step.ID)
			if hasDependents[step.ID] {
				return &errors.ConfigError{
					Key:    "depends_on",
					Reason: fmt.Sprintf("bundler step %s cannot have dependents", step.ID),
				}
			}
		case RoleModifier:
			// No shape constraint beyond the DAG itself.
		}
	}

	if len(fetchers) != 1 {
		return &errors.ConfigError{
			Key:    "steps",
			Reason: fmt.Sprintf("workflow requires exactly one fetcher step, found %d (%s)", len(fetchers), strings.Join(fetchers, ", ")),
		}
	}
	if len(bundlers) != 1 {
		return &errors.ConfigError{
			Key:    "steps",
			Reason: fmt.Sprintf("workflow requires exactly one bundler step, found %d (%s)", len(bundlers), strings.Join(bundlers, ", ")),
		}
	}

	return nil
}
