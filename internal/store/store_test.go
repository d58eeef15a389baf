package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	var configErr *errors.ConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestStoreRecordAndList(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	started := time.Now().Add(-time.Minute)

	require.NoError(t, s.RecordRun(ctx, pipeline.RunRecord{
		RunID:          "r1",
		Workflow:       "w",
		MatrixEntry:    map[string]any{"collection_id": "A"},
		Status:         "completed",
		ItemsProcessed: 5,
		StartedAt:      started,
		FinishedAt:     started.Add(time.Second),
	}))
	require.NoError(t, s.RecordRun(ctx, pipeline.RunRecord{
		RunID:        "r2",
		Workflow:     "w",
		Status:       "failed",
		FailureCount: 1,
		StartedAt:    started.Add(2 * time.Second),
		FinishedAt:   started.Add(3 * time.Second),
	}))

	runs, err := s.ListRuns(ctx, "w", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, "r2", runs[0].RunID)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Nil(t, runs[0].MatrixEntry)

	assert.Equal(t, "r1", runs[1].RunID)
	assert.Equal(t, 5, runs[1].ItemsProcessed)
	assert.Equal(t, map[string]any{"collection_id": "A"}, runs[1].MatrixEntry)
	assert.False(t, runs[1].StartedAt.IsZero())
}

func TestStoreListUnknownWorkflow(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), "nope", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
