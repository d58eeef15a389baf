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

func writeSidecar(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sidecar.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func buildEnrich(t *testing.T, config map[string]any) pipeline.Modifier {
	t.Helper()
	e, err := newEnrichFromTable(config, testRun(t))
	require.NoError(t, err)
	return e.(pipeline.Modifier)
}

func TestEnrichFromTableMerge(t *testing.T) {
	sidecar := writeSidecar(t, "id,cloud,verified\ni1,12.5,true\ni2,99,false\n")
	mod := buildEnrich(t, map[string]any{
		"input_file": sidecar,
		"strategy":   "merge",
		"field_mapping": map[string]any{
			"properties.cloud":    "cloud",
			"properties.verified": "verified",
		},
	})

	out, err := mod.Modify(context.Background(), item.Item{"id": "i1"}, testRun(t))
	require.NoError(t, err)

	props := out.Properties()
	assert.Equal(t, 12.5, props["cloud"])
	assert.Equal(t, true, props["verified"])
}

func TestEnrichFromTableUpdateExistingSkipsAbsent(t *testing.T) {
	sidecar := writeSidecar(t, "id,cloud\ni1,40\n")
	mod := buildEnrich(t, map[string]any{
		"input_file": sidecar,
		"field_mapping": map[string]any{
			"properties.cloud": "cloud",
		},
	})

	// No properties.cloud on the item: under update_existing the write
	// is skipped entirely.
	out, err := mod.Modify(context.Background(), item.Item{"id": "i1"}, testRun(t))
	require.NoError(t, err)
	assert.Nil(t, out.Properties())

	// With a null present, the write happens.
	out, err = mod.Modify(context.Background(), item.Item{
		"id":         "i1",
		"properties": map[string]any{"cloud": nil},
	}, testRun(t))
	require.NoError(t, err)
	assert.Equal(t, 40.0, out.Properties()["cloud"])
}

func TestEnrichFromTableNoMatchPassesThrough(t *testing.T) {
	sidecar := writeSidecar(t, "id,cloud\nother,1\n")
	mod := buildEnrich(t, map[string]any{
		"input_file":    sidecar,
		"strategy":      "merge",
		"field_mapping": map[string]any{"properties.cloud": "cloud"},
	})

	out, err := mod.Modify(context.Background(), item.Item{"id": "i1"}, testRun(t))
	require.NoError(t, err)
	assert.Nil(t, out.Properties())
}

func TestEnrichFromTableRequireMatch(t *testing.T) {
	sidecar := writeSidecar(t, "id,cloud\nother,1\n")
	mod := buildEnrich(t, map[string]any{
		"input_file":    sidecar,
		"require_match": true,
		"strategy":      "merge",
		"field_mapping": map[string]any{"properties.cloud": "cloud"},
	})

	_, err := mod.Modify(context.Background(), item.Item{"id": "i1"}, testRun(t))
	var dataErr *errors.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "i1", dataErr.ItemID)
}

func TestEnrichFromTableConfigErrors(t *testing.T) {
	sidecar := writeSidecar(t, "id,cloud\ni1,1\n")

	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing input file", map[string]any{
			"field_mapping": map[string]any{"properties.cloud": "cloud"},
		}},
		{"missing mapping", map[string]any{
			"input_file": sidecar,
		}},
		{"unknown key column", map[string]any{
			"input_file":    sidecar,
			"key_column":    "nope",
			"field_mapping": map[string]any{"properties.cloud": "cloud"},
		}},
		{"nonexistent sidecar", map[string]any{
			"input_file":    filepath.Join(t.TempDir(), "missing.csv"),
			"field_mapping": map[string]any{"properties.cloud": "cloud"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEnrichFromTable(tt.config, testRun(t))
			var configErr *errors.ConfigError
			require.ErrorAs(t, err, &configErr)
		})
	}
}
