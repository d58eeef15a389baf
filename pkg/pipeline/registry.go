package pipeline

import (
	"fmt"
	"sort"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/workflow"
)

// Constructor builds a step from its raw config map and the run
// context. The returned value must implement the role the kind was
// registered under.
type Constructor func(config map[string]any, run *Context) (any, error)

type registration struct {
	role  workflow.Role
	build Constructor
}

// Registry maps step-kind names to constructors. The registry is
// closed: building an unregistered kind is a ConfigError. It implements
// workflow.RoleResolver so DAG validation can check the source/sink
// shape before any step is built.
type Registry struct {
	kinds map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]registration)}
}

// Register adds a step kind under the given role. Registering the same
// kind twice panics: registries are assembled at program start and a
// duplicate is a programming error.
func (r *Registry) Register(kind string, role workflow.Role, build Constructor) {
	if _, exists := r.kinds[kind]; exists {
		panic(fmt.Sprintf("step kind already registered: %s", kind))
	}
	r.kinds[kind] = registration{role: role, build: build}
}

// RoleOf implements workflow.RoleResolver.
func (r *Registry) RoleOf(kind string) (workflow.Role, bool) {
	reg, ok := r.kinds[kind]
	return reg.role, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		names = append(names, kind)
	}
	sort.Strings(names)
	return names
}

// Build constructs a step instance for the given kind and checks that
// the constructed value implements the registered role.
func (r *Registry) Build(kind string, config map[string]any, run *Context) (any, workflow.Role, error) {
	reg, ok := r.kinds[kind]
	if !ok {
		return nil, "", &errors.ConfigError{
			Key:    "kind",
			Reason: fmt.Sprintf("unknown step kind: %s", kind),
		}
	}

	step, err := reg.build(config, run)
	if err != nil {
		return nil, "", err
	}

	switch reg.role {
	case workflow.RoleFetcher:
		if _, ok := step.(Fetcher); !ok {
			return nil, "", &errors.ConfigError{
				Key:    "kind",
				Reason: fmt.Sprintf("step kind %s registered as fetcher but does not implement Fetcher", kind),
			}
		}
	case workflow.RoleModifier:
		if _, ok := step.(Modifier); !ok {
			return nil, "", &errors.ConfigError{
				Key:    "kind",
				Reason: fmt.Sprintf("step kind %s registered as modifier but does not implement Modifier", kind),
			}
		}
	case workflow.RoleBundler:
		if _, ok := step.(Bundler); !ok {
			return nil, "", &errors.ConfigError{
				Key:    "kind",
				Reason: fmt.Sprintf("step kind %s registered as bundler but does not implement Bundler", kind),
			}
		}
	}

	return step, reg.role, nil
}
