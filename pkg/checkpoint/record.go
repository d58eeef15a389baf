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

package checkpoint

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// Record is one row of a collection's checkpoint log. A record with
// Completed=true means the item passed the bundler's acknowledgement in
// some prior run and is skipped on resume. Records with Completed=false
// are kept for debugging only and never cause skipping.
type Record struct {
	ItemID       string
	CollectionID string

	// OutputPath is an opaque hint from the bundler, empty when unknown.
	OutputPath string

	Completed bool
	Timestamp time.Time

	// Error holds the failure message for Completed=false records.
	Error string
}

var columns = []string{"item_id", "collection_id", "output_path", "completed", "timestamp", "error"}

func writeRecords(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.ItemID,
			r.CollectionID,
			r.OutputPath,
			strconv.FormatBool(r.Completed),
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(columns)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, name := range columns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected column %q at position %d, want %q", header[i], i, name)
		}
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		completed, err := strconv.ParseBool(row[3])
		if err != nil {
			return nil, fmt.Errorf("invalid completed flag %q for item %s: %w", row[3], row[0], err)
		}
		ts, err := time.Parse(time.RFC3339, row[4])
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q for item %s: %w", row[4], row[0], err)
		}

		records = append(records, Record{
			ItemID:       row[0],
			CollectionID: row[1],
			OutputPath:   row[2],
			Completed:    completed,
			Timestamp:    ts,
			Error:        row[5],
		})
	}

	return records, nil
}
