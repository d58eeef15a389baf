package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

var itemSchema = map[string]any{
	"type":     "object",
	"required": []any{"id", "properties"},
	"properties": map[string]any{
		"id": map[string]any{"type": "string"},
		"properties": map[string]any{
			"type":     "object",
			"required": []any{"cloud"},
			"properties": map[string]any{
				"cloud": map[string]any{"type": "number"},
			},
		},
	},
}

func TestValidateSchemaInline(t *testing.T) {
	v, err := newValidateSchema(map[string]any{"schema": itemSchema}, testRun(t))
	require.NoError(t, err)
	mod := v.(pipeline.Modifier)

	good := item.Item{
		"id":         "i1",
		"properties": map[string]any{"cloud": 4.5},
	}
	out, err := mod.Modify(context.Background(), good, testRun(t))
	require.NoError(t, err)
	assert.Equal(t, "i1", out.ID())

	bad := item.Item{
		"id":         "i2",
		"properties": map[string]any{"cloud": "not-a-number"},
	}
	_, err = mod.Modify(context.Background(), bad, testRun(t))
	var valErr *errors.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestValidateSchemaFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "object",
		"required": ["id"],
		"properties": {"id": {"type": "string"}}
	}`), 0644))

	v, err := newValidateSchema(map[string]any{"schema_file": path}, testRun(t))
	require.NoError(t, err)
	mod := v.(pipeline.Modifier)

	_, err = mod.Modify(context.Background(), item.Item{"id": "i1"}, testRun(t))
	assert.NoError(t, err)

	_, err = mod.Modify(context.Background(), item.Item{"foo": "bar"}, testRun(t))
	var valErr *errors.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestValidateSchemaConfigErrors(t *testing.T) {
	_, err := newValidateSchema(map[string]any{}, testRun(t))
	var configErr *errors.ConfigError
	require.ErrorAs(t, err, &configErr)

	_, err = newValidateSchema(map[string]any{
		"schema":      itemSchema,
		"schema_file": "x.json",
	}, testRun(t))
	require.ErrorAs(t, err, &configErr)
	assert.Contains(t, err.Error(), "mutually exclusive")
}
