package pipeline

import (
	"sync"
	"time"

	"github.com/stacflow/stacflow/pkg/errors"
)

// UnknownItemID is recorded when a failure cannot be attributed to a
// specific item.
const UnknownItemID = "<unknown>"

// FailureRecord is one non-fatal, per-item failure. Records are
// immutable once collected.
type FailureRecord struct {
	StepID    string         `json:"step_id"`
	ItemID    string         `json:"item_id"`
	Kind      errors.Kind    `json:"error_kind"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// Collector aggregates per-item failures for one pipeline. Safe for
// concurrent Add from multiple stages. Matrix children each get their
// own collector so sibling failure streams stay isolated.
type Collector struct {
	mu      sync.Mutex
	records []FailureRecord
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add appends a failure record.
func (c *Collector) Add(stepID, itemID string, kind errors.Kind, message string, ctx map[string]any) {
	if itemID == "" {
		itemID = UnknownItemID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, FailureRecord{
		StepID:    stepID,
		ItemID:    itemID,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
		Context:   ctx,
	})
}

// AddError records an error, classifying its kind from the error type.
func (c *Collector) AddError(stepID, itemID string, err error) {
	c.Add(stepID, itemID, errors.KindOf(err), err.Error(), nil)
}

// Records returns a snapshot of the collected failures.
func (c *Collector) Records() []FailureRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FailureRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Count returns the number of collected failures.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// CountByStep returns failure counts grouped by step id.
func (c *Collector) CountByStep() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range c.records {
		counts[r.StepID]++
	}
	return counts
}
