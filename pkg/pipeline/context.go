package pipeline

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/stacflow/stacflow/internal/log"
	"github.com/stacflow/stacflow/pkg/checkpoint"
)

// Context is the per-run state bag threaded through every step. It is
// built once at run start and treated as read-only during execution;
// matrix children get a fork with their entry overlaid.
type Context struct {
	// WorkflowID is the workflow name.
	WorkflowID string

	// RunID uniquely identifies this execution.
	RunID string

	// MatrixEntry is the matrix overlay for this pipeline, nil for a
	// single (non-matrix) run.
	MatrixEntry map[string]any

	// Logger is shared across forks, tagged per matrix entry.
	Logger *slog.Logger

	// Failures is per-fork: sibling pipelines have isolated streams.
	Failures *Collector

	// Checkpoint is shared across forks; records are keyed by
	// (collection_id, item_id) so siblings never collide.
	Checkpoint *checkpoint.Manager

	// Data is a free-form scratch map populated before the run starts.
	// Steps must treat it as read-only once items flow.
	Data map[string]any
}

// NewContext builds the root context for a run.
func NewContext(workflowID string, logger *slog.Logger, cp *checkpoint.Manager) *Context {
	runID := uuid.New().String()
	return &Context{
		WorkflowID: workflowID,
		RunID:      runID,
		Logger:     log.WithRunContext(logger, runID, workflowID),
		Failures:   NewCollector(),
		Checkpoint: cp,
		Data:       make(map[string]any),
	}
}

// Fork returns a child context for one matrix entry: same run id,
// logger and checkpoint, a fresh failure collector, and the parent's
// data shallow-copied with the entry's keys overlaid.
func (c *Context) Fork(entry map[string]any) *Context {
	data := make(map[string]any, len(c.Data)+len(entry))
	for k, v := range c.Data {
		data[k] = v
	}
	for k, v := range entry {
		data[k] = v
	}

	return &Context{
		WorkflowID:  c.WorkflowID,
		RunID:       c.RunID,
		MatrixEntry: entry,
		Logger:      log.WithMatrixContext(c.Logger, entry),
		Failures:    NewCollector(),
		Checkpoint:  c.Checkpoint,
		Data:        data,
	}
}

// CollectionID returns the collection this pipeline targets, taken from
// the matrix entry or data map, or "" when not configured.
func (c *Context) CollectionID() string {
	if id, ok := c.MatrixEntry["collection_id"].(string); ok {
		return id
	}
	if id, ok := c.Data["collection_id"].(string); ok {
		return id
	}
	return ""
}
