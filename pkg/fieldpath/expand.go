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
	"sort"
	"strings"
)

// Template variable tokens recognized in expansion values.
const (
	// TokenItemID is replaced with the item's id.
	TokenItemID = "{item_id}"
	// TokenCollectionID is replaced with the item's collection id.
	TokenCollectionID = "{collection_id}"
	// TokenAssetKey is replaced with the key bound by the nearest
	// enclosing wildcard during expansion.
	TokenAssetKey = "{asset_key}"
)

// Vars carries the per-item template variable bindings.
type Vars struct {
	ItemID       string
	CollectionID string
}

// expansion is one concrete path produced from a wildcard pattern, along
// with the key bound by the innermost wildcard on the way down.
type expansion struct {
	segments []string
	assetKey string
}

// ExpandUpdates resolves a map of path patterns to concrete paths against
// the live document. Keys with wildcard segments are enumerated against the
// document's map keys at that level; values are deep-copied per concrete
// path and template variables are substituted. Returns a map from formatted
// concrete path to the value to write.
func ExpandUpdates(patterns map[string]any, doc map[string]any, vars Vars) (map[string]any, error) {
	out := make(map[string]any, len(patterns))

	for pattern, value := range patterns {
		segments, quoted, err := parse(pattern)
		if err != nil {
			return nil, err
		}

		for _, exp := range expand(segments, quoted, doc) {
			// Each expanded path gets its own deep copy of the source
			// value; sibling expansions must never alias a shared subtree.
			bound := CloneValue(value)
			bound = substitute(bound, vars, exp.assetKey)
			out[Format(exp.segments)] = bound
		}
	}

	return out, nil
}

// ExpandRemovals resolves a list of path patterns to concrete paths against
// the live document, with the same wildcard rule as ExpandUpdates and no
// value substitution.
func ExpandRemovals(patterns []string, doc map[string]any) ([]string, error) {
	var out []string

	for _, pattern := range patterns {
		segments, quoted, err := parse(pattern)
		if err != nil {
			return nil, err
		}
		for _, exp := range expand(segments, quoted, doc) {
			out = append(out, Format(exp.segments))
		}
	}

	return out, nil
}

// expand walks the pattern left to right. A wildcard enumerates the keys of
// the document map at that position and recurses per key; a wildcard over a
// missing or non-map parent yields zero expansions at that branch. Concrete
// segments past the last wildcard are appended verbatim, so a pattern may
// address paths that do not exist yet.
func expand(segments []string, quoted []bool, doc map[string]any) []expansion {
	var results []expansion
	walk(segments, quoted, nil, "", doc, &results)
	return results
}

// patternHasWildcard is HasWildcard with quoting honored: a quoted "*"
// segment is a literal key, not the wildcard.
func patternHasWildcard(segments []string, quoted []bool) bool {
	for i, seg := range segments {
		if seg == Wildcard && !quoted[i] {
			return true
		}
	}
	return false
}

func walk(remaining []string, quoted []bool, prefix []string, assetKey string, current any, results *[]expansion) {
	if !patternHasWildcard(remaining, quoted) {
		segs := make([]string, 0, len(prefix)+len(remaining))
		segs = append(segs, prefix...)
		segs = append(segs, remaining...)
		*results = append(*results, expansion{segments: segs, assetKey: assetKey})
		return
	}

	seg := remaining[0]
	if seg == Wildcard && !quoted[0] {
		m, ok := current.(map[string]any)
		if !ok {
			return
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(remaining[1:], quoted[1:], append(prefix[:len(prefix):len(prefix)], k), k, m[k], results)
		}
		return
	}

	var next any
	if m, ok := current.(map[string]any); ok {
		next = m[seg]
	}
	walk(remaining[1:], quoted[1:], append(prefix[:len(prefix):len(prefix)], seg), assetKey, next, results)
}

// substitute replaces template variable tokens in every string reachable
// inside v. The asset key token is only substituted when a wildcard bound
// one on the way down.
func substitute(v any, vars Vars, assetKey string) any {
	switch val := v.(type) {
	case string:
		s := strings.ReplaceAll(val, TokenItemID, vars.ItemID)
		s = strings.ReplaceAll(s, TokenCollectionID, vars.CollectionID)
		if assetKey != "" {
			s = strings.ReplaceAll(s, TokenAssetKey, assetKey)
		}
		return s
	case map[string]any:
		for k, item := range val {
			val[k] = substitute(item, vars, assetKey)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = substitute(item, vars, assetKey)
		}
		return val
	default:
		return val
	}
}
