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
	"context"
	"errors"
)

// Kind identifies an error category for failure records and reporting.
type Kind string

const (
	// KindConfiguration covers parse, DAG validation, unknown step kinds,
	// and invalid field paths. Fatal at construction.
	KindConfiguration Kind = "configuration"

	// KindValidation covers per-item schema and attribute checks.
	KindValidation Kind = "validation"

	// KindData covers per-item traversal or mutation failures.
	KindData Kind = "data_processing"

	// KindIO covers checkpoint and bundler write failures.
	KindIO Kind = "io"

	// KindCancelled covers context cancellation.
	KindCancelled Kind = "cancelled"

	// KindUnknown is used when an error matches no known category.
	KindUnknown Kind = "unknown"
)

// KindOf classifies an error into its Kind by walking the error tree.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return KindConfiguration
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return KindValidation
	}

	var dataErr *DataError
	if errors.As(err, &dataErr) {
		return KindData
	}

	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return KindIO
	}

	var cancelledErr *CancelledError
	if errors.As(err, &cancelledErr) {
		return KindCancelled
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}

	return KindUnknown
}

// IsFatal reports whether an error must abort the pipeline rather than being
// recorded against a single item. Configuration errors, IO errors, and
// cancellation are fatal; validation and data errors are per-item.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindConfiguration, KindIO, KindCancelled:
		return true
	default:
		return false
	}
}
