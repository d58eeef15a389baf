package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/stacflow/stacflow/pkg/workflow"
)

// runMatrix runs one pipeline per matrix entry, all concurrently. Each
// child gets a forked context with its own failure collector; steps are
// instantiated fresh per child because constructors may consult the
// fork's matrix entry. Children are isolated: a failure in one does not
// cancel its siblings, only outer-context cancellation does. Results
// come back in matrix-entry order.
func runMatrix(ctx context.Context, def *workflow.Definition, reg *Registry, parent *Context) []*Result {
	entries := def.Strategy.Matrix
	results := make([]*Result, len(entries))

	var g errgroup.Group
	for i, entry := range entries {
		g.Go(func() error {
			child := parent.Fork(entry)

			p, err := New(def, reg, child)
			if err != nil {
				child.Logger.Error("pipeline construction failed", "error", err)
				child.Failures.AddError("pipeline", UnknownItemID, err)
				results[i] = &Result{
					Status:       StatusFailed,
					FailureCount: child.Failures.Count(),
					MatrixEntry:  entry,
					Summary:      fmt.Sprintf("failed: could not construct pipeline: %v", err),
					Failures:     child.Failures.Records(),
				}
				return nil
			}

			// Critical errors are reflected in the child's result;
			// returning nil keeps siblings running.
			result, runErr := p.Run(ctx)
			if runErr != nil {
				child.Logger.Error("pipeline failed", "error", runErr)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return results
}
