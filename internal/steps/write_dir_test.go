package steps

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

func TestWriteToDir(t *testing.T) {
	base := t.TempDir()
	run := testRun(t)

	b, err := newWriteToDir(map[string]any{"base_dir": base}, run)
	require.NoError(t, err)
	sink := b.(pipeline.Bundler)

	items := []item.Item{
		{"id": "a", "collection": "C1", "properties": map[string]any{"n": 1.0}},
		{"id": "b", "collection": "C1"},
		{"id": "x", "collection": "C2"},
	}
	for _, it := range items {
		require.NoError(t, sink.Add(context.Background(), it, run))
	}
	require.NoError(t, sink.Finalize(context.Background(), run))

	// One document per item.
	data, err := os.ReadFile(filepath.Join(base, "C1", "a.json"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "a", decoded["id"])

	// Manifest per collection.
	data, err = os.ReadFile(filepath.Join(base, "C1", "manifest.json"))
	require.NoError(t, err)
	var m manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "C1", m.Collection)
	assert.Equal(t, 2, m.ItemCount)
	assert.Equal(t, []string{"a", "b"}, m.ItemIDs)

	data, err = os.ReadFile(filepath.Join(base, "C2", "manifest.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 1, m.ItemCount)
}

func TestWriteToDirOutputPath(t *testing.T) {
	base := t.TempDir()
	b, err := newWriteToDir(map[string]any{"base_dir": base}, testRun(t))
	require.NoError(t, err)

	pather := b.(pipeline.OutputPather)
	it := item.Item{"id": "a", "collection": "C1"}
	assert.Equal(t, filepath.Join(base, "C1", "a.json"), pather.OutputPath(it))

	// Items without a collection land in a default bucket.
	assert.Equal(t, filepath.Join(base, "default", "z.json"), pather.OutputPath(item.Item{"id": "z"}))
}

func TestWriteToDirMissingBaseDir(t *testing.T) {
	_, err := newWriteToDir(map[string]any{}, testRun(t))
	require.Error(t, err)
}
