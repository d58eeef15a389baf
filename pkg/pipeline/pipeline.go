// Package pipeline wires instantiated steps into a streaming run: a
// fetcher emits items, modifiers transform them in execution order, a
// bundler sinks them, and checkpoint plus failure collector record the
// outcome of every item.
package pipeline

import (
	"context"

	"github.com/stacflow/stacflow/internal/metrics"
	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/workflow"
)

type modifierStage struct {
	id   string
	step Modifier
}

// Pipeline drives one ordered list of instantiated steps to completion.
// A Pipeline runs once; matrix executions build a fresh Pipeline per
// entry because step constructors may consult the forked context.
type Pipeline struct {
	run *Context

	fetcherID string
	fetcher   Fetcher
	modifiers []modifierStage
	bundlerID string
	bundler   Bundler

	processed int
	skipped   int
}

// New validates the workflow's DAG and role shape, then instantiates
// every step in execution order against the given context.
func New(def *workflow.Definition, reg *Registry, run *Context) (*Pipeline, error) {
	order, err := workflow.ExecutionOrder(def)
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateRoles(def, reg); err != nil {
		return nil, err
	}

	p := &Pipeline{run: run}
	for _, id := range order {
		sc := def.StepByID(id)
		step, role, err := reg.Build(sc.Kind, sc.Config, run)
		if err != nil {
			return nil, err
		}
		switch role {
		case workflow.RoleFetcher:
			p.fetcherID = id
			p.fetcher = step.(Fetcher)
		case workflow.RoleModifier:
			p.modifiers = append(p.modifiers, modifierStage{id: id, step: step.(Modifier)})
		case workflow.RoleBundler:
			p.bundlerID = id
			p.bundler = step.(Bundler)
		}
	}

	return p, nil
}

// Run executes the pipeline to completion. The returned Result is
// always non-nil; err is non-nil only for critical errors, in which
// case the Result's status is failed.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := p.run.Logger
	logger.Info("pipeline starting", "fetcher", p.fetcherID, "modifiers", len(p.modifiers))

	// The fetcher gets a derived context so that aborting the loop on a
	// fatal error releases a producer blocked on a full item channel.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	items, fetchErrs := p.fetcher.Fetch(ctx, p.run)

	var critical error
	cancelled := false

loop:
	for items != nil || fetchErrs != nil {
		select {
		case <-ctx.Done():
			cancelled = true
			critical = &errors.CancelledError{Cause: ctx.Err()}
			p.run.Failures.Add("pipeline", UnknownItemID, errors.KindCancelled, critical.Error(), nil)
			break loop

		case err, ok := <-fetchErrs:
			if !ok {
				fetchErrs = nil
				continue
			}
			if errors.IsFatal(err) {
				critical = err
				break loop
			}
			p.run.Failures.AddError(p.fetcherID, failureItemID(err), err)
			metrics.RecordItemFailure(p.run.WorkflowID, p.fetcherID)

		case it, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			if err := p.process(ctx, it); err != nil {
				critical = err
				break loop
			}
		}
	}

	// Finalize on clean shutdown and on cancellation, so partial output
	// still gets a manifest; skip it after other critical errors.
	if critical == nil || cancelled {
		if err := p.bundler.Finalize(ctx, p.run); err != nil {
			if critical == nil {
				critical = err
			} else {
				logger.Warn("finalize after cancellation failed", "error", err)
			}
		}
	}

	if err := p.run.Checkpoint.Flush(); err != nil {
		logger.Error("checkpoint flush failed", "error", err)
		if critical == nil {
			critical = err
		}
	}

	var status Status
	switch {
	case critical != nil:
		status = StatusFailed
	case p.run.Failures.Count() == 0:
		status = StatusCompleted
	default:
		status = StatusCompletedWithFailures
	}

	result := &Result{
		Status:         status,
		ItemsProcessed: p.processed,
		SkippedResumed: p.skipped,
		FailureCount:   p.run.Failures.Count(),
		MatrixEntry:    p.run.MatrixEntry,
		Summary:        buildSummary(status, p.processed, p.skipped, p.run.Failures),
		Failures:       p.run.Failures.Records(),
	}

	metrics.RecordRun(p.run.WorkflowID, string(status))
	logger.Info("pipeline finished",
		"status", string(status),
		"items_processed", p.processed,
		"skipped", p.skipped,
		"failures", result.FailureCount)

	return result, critical
}

// process runs one item through the modifiers and the bundler. A
// non-nil return is a critical error that aborts the pipeline; per-item
// failures are recorded and swallowed.
func (p *Pipeline) process(ctx context.Context, it item.Item) error {
	id := it.ID()
	if id == "" {
		verr := &errors.ValidationError{
			Field:   "id",
			Message: "item has no id attribute",
		}
		p.run.Failures.AddError(p.fetcherID, UnknownItemID, verr)
		metrics.RecordItemFailure(p.run.WorkflowID, p.fetcherID)
		return nil
	}

	collection := it.Collection()
	if collection == "" {
		collection = p.run.CollectionID()
	}

	// The checkpoint key is captured here; a modifier changing the
	// item's id later does not change what gets recorded.
	key := id

	if p.run.Checkpoint.IsCompleted(collection, key) {
		p.skipped++
		metrics.RecordCheckpointSkip(p.run.WorkflowID)
		return nil
	}

	cur := it
	for _, stage := range p.modifiers {
		out, err := stage.step.Modify(ctx, cur, p.run)
		if err != nil {
			if errors.IsFatal(err) {
				return err
			}
			p.run.Failures.AddError(stage.id, key, err)
			metrics.RecordItemFailure(p.run.WorkflowID, stage.id)
			if cperr := p.run.Checkpoint.MarkFailed(collection, key, err.Error()); cperr != nil {
				return cperr
			}
			return nil
		}
		if out == nil {
			// Deliberate filtering: no failure, no checkpoint record.
			p.run.Logger.Debug("item dropped", "step_id", stage.id, "item_id", key)
			return nil
		}
		cur = out
	}

	if err := p.bundler.Add(ctx, cur, p.run); err != nil {
		if errors.IsFatal(err) {
			return err
		}
		p.run.Failures.AddError(p.bundlerID, key, err)
		metrics.RecordItemFailure(p.run.WorkflowID, p.bundlerID)
		if cperr := p.run.Checkpoint.MarkFailed(collection, key, err.Error()); cperr != nil {
			return cperr
		}
		return nil
	}

	outputPath := ""
	if op, ok := p.bundler.(OutputPather); ok {
		outputPath = op.OutputPath(cur)
	}
	if err := p.run.Checkpoint.MarkCompleted(collection, key, outputPath); err != nil {
		return err
	}

	p.processed++
	metrics.RecordItemProcessed(p.run.WorkflowID)
	return nil
}

// failureItemID pulls the item id out of a data error when present.
func failureItemID(err error) string {
	var dataErr *errors.DataError
	if errors.As(err, &dataErr) && dataErr.ItemID != "" {
		return dataErr.ItemID
	}
	return UnknownItemID
}
