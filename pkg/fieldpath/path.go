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

// Package fieldpath implements dotted-path addressing into nested
// map-shaped documents: parsing with quoted segments, nested reads and
// writes, wildcard expansion against a live document, and template
// variable substitution.
//
// A path is a sequence of segments separated by dots. A segment is a bare
// identifier, the wildcard "*", or a double-quoted literal whose interior
// is taken verbatim. Quoting allows keys that themselves contain dots:
//
//	assets."ANG.txt".href  ->  ["assets", "ANG.txt", "href"]
package fieldpath

import (
	"fmt"
	"strings"

	"github.com/stacflow/stacflow/pkg/errors"
)

// Wildcard is the segment that expands to every key present at its
// position in the live document.
const Wildcard = "*"

// Parse splits a dotted path into segments, honoring double-quoted
// literals. It returns a ConfigError for an unterminated quote or an
// empty segment.
func Parse(path string) ([]string, error) {
	segments, _, err := parse(path)
	return segments, err
}

// parse additionally reports, per segment, whether any part of it was
// quoted. Quoting makes a segment a literal key: a quoted "*" is not
// the wildcard.
func parse(path string) ([]string, []bool, error) {
	if path == "" {
		return nil, nil, &errors.ConfigError{
			Key:    "path",
			Reason: "field path cannot be empty",
		}
	}

	var segments []string
	var quoted []bool
	var current strings.Builder
	inQuote := false
	segQuoted := false

	flush := func() error {
		if current.Len() == 0 {
			return &errors.ConfigError{
				Key:    "path",
				Reason: fmt.Sprintf("empty segment in field path %q", path),
			}
		}
		segments = append(segments, current.String())
		quoted = append(quoted, segQuoted)
		current.Reset()
		segQuoted = false
		return nil
	}

	for i := 0; i < len(path); i++ {
		switch ch := path[i]; {
		case ch == '"':
			inQuote = !inQuote
			segQuoted = true
		case ch == '.' && !inQuote:
			if err := flush(); err != nil {
				return nil, nil, err
			}
		default:
			current.WriteByte(ch)
		}
	}

	if inQuote {
		return nil, nil, &errors.ConfigError{
			Key:    "path",
			Reason: fmt.Sprintf("unterminated quote in field path %q", path),
		}
	}
	if err := flush(); err != nil {
		return nil, nil, err
	}

	return segments, quoted, nil
}

// Format reprints segments as a parseable path, quoting any segment
// that contains a dot or would otherwise read as the wildcard.
// Parse(Format(segs)) yields segs back.
func Format(segments []string) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if strings.Contains(seg, ".") || seg == Wildcard {
			parts[i] = `"` + seg + `"`
		} else {
			parts[i] = seg
		}
	}
	return strings.Join(parts, ".")
}

// HasWildcard reports whether any segment is the wildcard.
func HasWildcard(segments []string) bool {
	for _, seg := range segments {
		if seg == Wildcard {
			return true
		}
	}
	return false
}
