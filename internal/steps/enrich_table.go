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

package steps

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/fieldpath"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

type enrichTableConfig struct {
	// InputFile is a CSV sidecar with a header row.
	InputFile string `yaml:"input_file"`

	// KeyColumn names the column matched against the item id.
	// Default: id.
	KeyColumn string `yaml:"key_column"`

	// FieldMapping maps item field paths to sidecar column names.
	FieldMapping map[string]string `yaml:"field_mapping"`

	// Strategy is update_existing (default) or merge.
	Strategy string `yaml:"strategy"`

	// RequireMatch makes an item without a sidecar row a per-item
	// failure instead of a pass-through.
	RequireMatch bool `yaml:"require_match"`
}

// enrichTable joins items against a CSV sidecar keyed by item id.
type enrichTable struct {
	cfg  enrichTableConfig
	rows map[string]map[string]string
}

func newEnrichFromTable(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg enrichTableConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.InputFile == "" {
		return nil, &errors.ConfigError{Key: "input_file", Reason: "input_file is required"}
	}
	if len(cfg.FieldMapping) == 0 {
		return nil, &errors.ConfigError{Key: "field_mapping", Reason: "field_mapping must have at least one entry"}
	}
	if cfg.KeyColumn == "" {
		cfg.KeyColumn = "id"
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyUpdateExisting
	}
	if cfg.Strategy != StrategyUpdateExisting && cfg.Strategy != StrategyMerge {
		return nil, &errors.ConfigError{
			Key:    "strategy",
			Reason: fmt.Sprintf("unknown strategy %q, want %s or %s", cfg.Strategy, StrategyUpdateExisting, StrategyMerge),
		}
	}
	for pattern := range cfg.FieldMapping {
		if _, err := fieldpath.Parse(pattern); err != nil {
			return nil, err
		}
	}

	rows, err := loadSidecar(cfg.InputFile, cfg.KeyColumn)
	if err != nil {
		return nil, err
	}

	return &enrichTable{cfg: cfg, rows: rows}, nil
}

func loadSidecar(path, keyColumn string) (map[string]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "input_file",
			Reason: fmt.Sprintf("failed to open sidecar %s", path),
			Cause:  err,
		}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "input_file",
			Reason: fmt.Sprintf("failed to parse sidecar %s", path),
			Cause:  err,
		}
	}
	if len(records) == 0 {
		return nil, &errors.ConfigError{
			Key:    "input_file",
			Reason: fmt.Sprintf("sidecar %s has no header row", path),
		}
	}

	header := records[0]
	keyIdx := -1
	for i, name := range header {
		if name == keyColumn {
			keyIdx = i
			break
		}
	}
	if keyIdx < 0 {
		return nil, &errors.ConfigError{
			Key:    "key_column",
			Reason: fmt.Sprintf("sidecar %s has no column %q", path, keyColumn),
		}
	}

	rows := make(map[string]map[string]string, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			row[name] = record[i]
		}
		rows[record[keyIdx]] = row
	}

	return rows, nil
}

func (e *enrichTable) Modify(ctx context.Context, it item.Item, run *pipeline.Context) (item.Item, error) {
	row, ok := e.rows[it.ID()]
	if !ok {
		if e.cfg.RequireMatch {
			return nil, &errors.DataError{
				ItemID:  it.ID(),
				Message: fmt.Sprintf("no sidecar row for item %s", it.ID()),
			}
		}
		return it, nil
	}

	doc := map[string]any(it)

	paths := make([]string, 0, len(e.cfg.FieldMapping))
	for p := range e.cfg.FieldMapping {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	createMissing := e.cfg.Strategy == StrategyMerge
	for _, p := range paths {
		column := e.cfg.FieldMapping[p]
		raw, ok := row[column]
		if !ok {
			return nil, &errors.DataError{
				ItemID:  it.ID(),
				Message: fmt.Sprintf("sidecar has no column %q for path %s", column, p),
			}
		}

		segments, err := fieldpath.Parse(p)
		if err != nil {
			return nil, err
		}
		if e.cfg.Strategy == StrategyUpdateExisting && !fieldpath.Exists(doc, segments) {
			continue
		}
		if err := fieldpath.Set(doc, segments, coerceCell(raw), createMissing); err != nil {
			return nil, &errors.DataError{
				ItemID:  it.ID(),
				Message: fmt.Sprintf("failed to set %s", p),
				Cause:   err,
			}
		}
	}

	return it, nil
}

// coerceCell interprets a CSV cell as a number or bool when it parses
// as one, otherwise keeps the string.
func coerceCell(s string) any {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
