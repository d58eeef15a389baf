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

package fieldpath

import (
	"fmt"

	"github.com/stacflow/stacflow/pkg/errors"
)

type missingSentinel struct{}

// Missing is the identity sentinel for "field absent". Passing Missing as
// the default to Get and comparing the result against Missing distinguishes
// an absent field from one present with a nil value. The comparison is by
// identity, never by equality.
var Missing any = (*missingSentinel)(nil)

// Get traverses maps by key and returns the value at the path, or def if
// any intermediate key is absent, an intermediate value is not a map, or
// the final key is missing.
func Get(doc map[string]any, segments []string, def any) any {
	current := doc
	for i, seg := range segments {
		if current == nil {
			return def
		}
		val, ok := current[seg]
		if !ok {
			return def
		}
		if i == len(segments)-1 {
			return val
		}
		next, ok := val.(map[string]any)
		if !ok {
			return def
		}
		current = next
	}
	return def
}

// Exists reports whether the path resolves to a value, counting a present
// nil as existing.
func Exists(doc map[string]any, segments []string) bool {
	return Get(doc, segments, Missing) != Missing
}

// Set walks the path and overwrites the leaf with value. Where a map is
// needed but missing it creates one iff createMissing; where a non-map
// value blocks the path it returns a DataError.
func Set(doc map[string]any, segments []string, value any, createMissing bool) error {
	if len(segments) == 0 {
		return &errors.DataError{Message: "cannot set empty field path"}
	}

	current := doc
	for _, seg := range segments[:len(segments)-1] {
		val, ok := current[seg]
		if !ok {
			if !createMissing {
				return &errors.DataError{
					Message: fmt.Sprintf("intermediate key %q does not exist in path %s", seg, Format(segments)),
				}
			}
			next := make(map[string]any)
			current[seg] = next
			current = next
			continue
		}
		next, ok := val.(map[string]any)
		if !ok {
			return &errors.DataError{
				Message: fmt.Sprintf("cannot traverse %q in path %s: value is %T, not a map", seg, Format(segments), val),
			}
		}
		current = next
	}

	current[segments[len(segments)-1]] = value
	return nil
}

// Delete removes the leaf at the path. It is a no-op if any part of the
// path is absent (idempotent removal).
func Delete(doc map[string]any, segments []string) {
	if len(segments) == 0 {
		return
	}

	current := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			return
		}
		current = next
	}
	delete(current, segments[len(segments)-1])
}

// CloneValue returns an independent deep copy of a JSON-shaped value.
// Maps and slices are copied recursively; scalars are returned as-is.
// Every value bound to an expanded wildcard path must be cloned so that
// mutating one expansion's subtree never bleeds into a sibling's.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return val
	}
}
