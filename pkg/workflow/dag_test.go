package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacflow/stacflow/pkg/errors"
)

type fakeResolver map[string]Role

func (r fakeResolver) RoleOf(kind string) (Role, bool) {
	role, ok := r[kind]
	return role, ok
}

var testResolver = fakeResolver{
	"fetch":  RoleFetcher,
	"modify": RoleModifier,
	"bundle": RoleBundler,
}

func TestExecutionOrderRespectsDependencies(t *testing.T) {
	def := &Definition{
		Name: "w",
		Steps: []StepConfig{
			{ID: "write", Kind: "bundle", DependsOn: []string{"validate", "enrich"}},
			{ID: "enrich", Kind: "modify", DependsOn: []string{"fetch"}},
			{ID: "validate", Kind: "modify", DependsOn: []string{"enrich"}},
			{ID: "fetch", Kind: "fetch"},
		},
	}

	order, err := ExecutionOrder(def)
	require.NoError(t, err)
	require.Len(t, order, 4)

	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	for _, step := range def.Steps {
		for _, dep := range step.DependsOn {
			assert.Less(t, position[dep], position[step.ID],
				"%s must precede %s", dep, step.ID)
		}
	}
}

func TestExecutionOrderDetectsCycle(t *testing.T) {
	def := &Definition{
		Name: "w",
		Steps: []StepConfig{
			{ID: "a", Kind: "modify", DependsOn: []string{"b"}},
			{ID: "b", Kind: "modify", DependsOn: []string{"a"}},
		},
	}

	_, err := ExecutionOrder(def)
	var configErr *errors.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, err.Error(), "cycle")
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestExecutionOrderLongerCycle(t *testing.T) {
	def := &Definition{
		Name: "w",
		Steps: []StepConfig{
			{ID: "src", Kind: "fetch"},
			{ID: "x", Kind: "modify", DependsOn: []string{"src", "z"}},
			{ID: "y", Kind: "modify", DependsOn: []string{"x"}},
			{ID: "z", Kind: "modify", DependsOn: []string{"y"}},
		},
	}

	_, err := ExecutionOrder(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateRoles(t *testing.T) {
	tests := []struct {
		name    string
		steps   []StepConfig
		wantErr string
	}{
		{
			name: "valid shape",
			steps: []StepConfig{
				{ID: "src", Kind: "fetch"},
				{ID: "up", Kind: "modify", DependsOn: []string{"src"}},
				{ID: "sink", Kind: "bundle", DependsOn: []string{"up"}},
			},
		},
		{
			name: "unknown kind",
			steps: []StepConfig{
				{ID: "src", Kind: "teleport"},
			},
			wantErr: "unknown step kind",
		},
		{
			name: "no fetcher",
			steps: []StepConfig{
				{ID: "up", Kind: "modify"},
				{ID: "sink", Kind: "bundle", DependsOn: []string{"up"}},
			},
			wantErr: "exactly one fetcher",
		},
		{
			name: "two bundlers",
			steps: []StepConfig{
				{ID: "src", Kind: "fetch"},
				{ID: "sink1", Kind: "bundle", DependsOn: []string{"src"}},
				{ID: "sink2", Kind: "bundle", DependsOn: []string{"src"}},
			},
			wantErr: "exactly one bundler",
		},
		{
			name: "fetcher with dependency",
			steps: []StepConfig{
				{ID: "up", Kind: "modify"},
				{ID: "src", Kind: "fetch", DependsOn: []string{"up"}},
				{ID: "sink", Kind: "bundle", DependsOn: []string{"src"}},
			},
			wantErr: "cannot depend",
		},
		{
			name: "bundler with dependents",
			steps: []StepConfig{
				{ID: "src", Kind: "fetch"},
				{ID: "sink", Kind: "bundle", DependsOn: []string{"src"}},
				{ID: "after", Kind: "modify", DependsOn: []string{"sink"}},
			},
			wantErr: "cannot have dependents",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{Name: "w", Steps: tt.steps}
			err := ValidateRoles(def, testResolver)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
