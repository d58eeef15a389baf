package pipeline

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the final state of one pipeline run.
type Status string

const (
	// StatusCompleted means every item that reached the bundler
	// succeeded and no failures were recorded. A run that processed
	// zero items without a critical error is also completed.
	StatusCompleted Status = "completed"

	// StatusCompletedWithFailures means the run finished but some
	// items failed and were recorded in the failure collector.
	StatusCompletedWithFailures Status = "completed_with_failures"

	// StatusFailed means a critical error or cancellation ended the
	// run early.
	StatusFailed Status = "failed"
)

// Result is the outcome of one pipeline run. A matrix run produces one
// Result per entry, in entry order.
type Result struct {
	Status Status `json:"status"`

	// ItemsProcessed counts items acknowledged by the bundler in this
	// run. Items skipped at the checkpoint gate are not included.
	ItemsProcessed int `json:"items_processed"`

	// SkippedResumed counts items skipped because a previous run
	// already completed them.
	SkippedResumed int `json:"skipped_resumed"`

	FailureCount int `json:"failure_count"`

	// MatrixEntry is nil for a single (non-matrix) run.
	MatrixEntry map[string]any `json:"matrix_entry,omitempty"`

	Summary string `json:"summary"`

	// Failures is the detail record behind FailureCount.
	Failures []FailureRecord `json:"failures,omitempty"`
}

// Succeeded reports whether the run finished without a critical error.
func (r *Result) Succeeded() bool {
	return r.Status == StatusCompleted || r.Status == StatusCompletedWithFailures
}

// summaryTopSteps caps how many failing steps the summary names.
const summaryTopSteps = 3

// buildSummary produces the one-paragraph human-readable description of
// a run, including counts and the top failing steps.
func buildSummary(status Status, processed, skipped int, failures *Collector) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d items processed", status, processed)
	if skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped via checkpoint", skipped)
	}

	count := failures.Count()
	if count == 0 {
		b.WriteString(", no failures")
		return b.String()
	}

	fmt.Fprintf(&b, ", %d failures", count)

	byStep := failures.CountByStep()
	steps := make([]string, 0, len(byStep))
	for id := range byStep {
		steps = append(steps, id)
	}
	// Most failures first, ties by id for stable output.
	sort.Slice(steps, func(i, j int) bool {
		if byStep[steps[i]] != byStep[steps[j]] {
			return byStep[steps[i]] > byStep[steps[j]]
		}
		return steps[i] < steps[j]
	})
	if len(steps) > summaryTopSteps {
		steps = steps[:summaryTopSteps]
	}

	parts := make([]string, len(steps))
	for i, id := range steps {
		parts[i] = fmt.Sprintf("%s (%d)", id, byStep[id])
	}
	fmt.Fprintf(&b, "; most affected steps: %s", strings.Join(parts, ", "))

	return b.String()
}
