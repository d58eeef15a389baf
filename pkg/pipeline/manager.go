package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/stacflow/stacflow/internal/log"
	"github.com/stacflow/stacflow/pkg/checkpoint"
	"github.com/stacflow/stacflow/pkg/workflow"
)

// RunRecord is one finished pipeline run, as handed to a RunRecorder.
type RunRecord struct {
	RunID          string
	Workflow       string
	MatrixEntry    map[string]any
	Status         string
	ItemsProcessed int
	FailureCount   int
	StartedAt      time.Time
	FinishedAt     time.Time
}

// RunRecorder persists run history. Recording is best-effort: a
// recorder failure is logged, never fatal to the run itself.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Manager is the public entry point for executing a workflow. It owns
// the checkpoint state and the root context for the run, and decides
// between a single pipeline and a matrix fan-out.
type Manager struct {
	def      *workflow.Definition
	registry *Registry

	checkpoint *checkpoint.Manager
	logger     *slog.Logger
	recorder   RunRecorder
}

// NewManager builds a Manager for the workflow. checkpointRoot is the
// directory holding checkpoint state across runs; logLevel overrides
// the environment-derived level when non-empty.
func NewManager(def *workflow.Definition, reg *Registry, checkpointRoot, logLevel string) (*Manager, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	cfg := log.FromEnv()
	if logLevel != "" {
		cfg.Level = logLevel
	}

	cp, err := checkpoint.NewManager(checkpointRoot, def.Name)
	if err != nil {
		return nil, err
	}

	return &Manager{
		def:        def,
		registry:   reg,
		checkpoint: cp,
		logger:     log.New(cfg),
	}, nil
}

// WithLogger replaces the manager's logger.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	m.logger = logger
	return m
}

// WithRunRecorder attaches a run-history recorder.
func (m *Manager) WithRunRecorder(r RunRecorder) *Manager {
	m.recorder = r
	return m
}

// Execute validates the workflow against the registry and runs it. A
// workflow without a matrix strategy yields exactly one Result; a
// matrix workflow yields one Result per entry in entry order. The error
// is non-nil only for configuration problems surfaced before any item
// flows; run-time outcomes are reported through Result.Status.
func (m *Manager) Execute(ctx context.Context) ([]*Result, error) {
	if _, err := workflow.ExecutionOrder(m.def); err != nil {
		return nil, err
	}
	if err := workflow.ValidateRoles(m.def, m.registry); err != nil {
		return nil, err
	}

	root := NewContext(m.def.Name, m.logger, m.checkpoint)
	started := time.Now()

	var results []*Result
	if m.def.Strategy != nil {
		root.Logger.Info("starting matrix run", "entries", len(m.def.Strategy.Matrix))
		results = runMatrix(ctx, m.def, m.registry, root)
	} else {
		p, err := New(m.def, m.registry, root)
		if err != nil {
			return nil, err
		}
		result, runErr := p.Run(ctx)
		if runErr != nil {
			root.Logger.Error("pipeline failed", "error", runErr)
		}
		results = []*Result{result}
	}

	finished := time.Now()
	m.record(ctx, root.RunID, started, finished, results)

	return results, nil
}

// Close flushes and releases the checkpoint state.
func (m *Manager) Close() error {
	return m.checkpoint.Close()
}

func (m *Manager) record(ctx context.Context, runID string, started, finished time.Time, results []*Result) {
	if m.recorder == nil {
		return
	}
	for _, r := range results {
		rec := RunRecord{
			RunID:          runID,
			Workflow:       m.def.Name,
			MatrixEntry:    r.MatrixEntry,
			Status:         string(r.Status),
			ItemsProcessed: r.ItemsProcessed,
			FailureCount:   r.FailureCount,
			StartedAt:      started,
			FinishedAt:     finished,
		}
		if err := m.recorder.RecordRun(ctx, rec); err != nil {
			m.logger.Warn("failed to record run history", "error", err)
		}
	}
}
