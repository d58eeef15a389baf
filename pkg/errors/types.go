// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"fmt"
)

// ConfigError represents configuration problems.
// Use this for workflow parse failures, DAG validation errors, unknown step
// kinds, invalid field paths, or an unreadable checkpoint file at startup.
// Config errors are fatal: they abort the workflow before any item flows.
type ConfigError struct {
	// Key is the configuration key or field path that has the problem
	// (e.g., "steps[2].kind", "strategy.matrix")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ValidationError represents per-item validation failures.
// Use this for invalid user input, schema violations, or items missing
// required attributes. Validation errors are localized to a single item.
type ValidationError struct {
	// Field identifies which field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// DataError represents a per-item traversal or mutation failure inside a
// modifier step. Data errors are recorded against the item and the pipeline
// continues with the next item.
type DataError struct {
	// StepID is the step where the failure occurred
	StepID string

	// ItemID is the item being processed ("<unknown>" when unavailable)
	ItemID string

	// Message is the human-readable error description
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.StepID != "" && e.ItemID != "" {
		return fmt.Sprintf("data error in step %s on item %s: %s", e.StepID, e.ItemID, e.Message)
	}
	return fmt.Sprintf("data error: %s", e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *DataError) Unwrap() error {
	return e.Cause
}

// IOError represents a checkpoint or bundler write failure.
// IO errors during Finalize or Flush are critical and fail the pipeline.
type IOError struct {
	// Op describes the operation that failed (e.g., "flush", "finalize")
	Op string

	// Path is the filesystem path involved (if any)
	Path string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("io error during %s on %s: %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *IOError) Unwrap() error {
	return e.Cause
}

// CancelledError represents a cancelled workflow context.
// The pipeline records a single cancellation failure and returns failed.
type CancelledError struct {
	// Cause is the context error (context.Canceled or context.DeadlineExceeded)
	Cause error
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("workflow cancelled: %v", e.Cause)
	}
	return "workflow cancelled"
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancelledError) Unwrap() error {
	return e.Cause
}
