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
	"fmt"
	"sort"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/fieldpath"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

// Update strategies for SetFields and EnrichFromTable.
const (
	// StrategyUpdateExisting writes only paths that already exist on
	// the item. A present null counts as existing; an absent field is
	// skipped.
	StrategyUpdateExisting = "update_existing"

	// StrategyMerge writes every expanded path, creating intermediate
	// maps as needed.
	StrategyMerge = "merge"
)

type setFieldsConfig struct {
	// Updates maps path patterns (wildcards and quoted segments per
	// the fieldpath grammar) to the value to write. Values may contain
	// {item_id}, {collection_id} and {asset_key} tokens.
	Updates map[string]any `yaml:"updates"`

	// Removals lists path patterns whose concrete paths are deleted.
	Removals []string `yaml:"removals"`

	// Strategy is update_existing (default) or merge.
	Strategy string `yaml:"strategy"`
}

// setFields applies declarative field updates and removals per item.
type setFields struct {
	cfg setFieldsConfig
}

func newSetFields(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg setFieldsConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
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

	// Bad path patterns are configuration, not data: fail before any
	// item flows.
	for pattern := range cfg.Updates {
		if _, err := fieldpath.Parse(pattern); err != nil {
			return nil, err
		}
	}
	for _, pattern := range cfg.Removals {
		if _, err := fieldpath.Parse(pattern); err != nil {
			return nil, err
		}
	}

	return &setFields{cfg: cfg}, nil
}

func (s *setFields) Modify(ctx context.Context, it item.Item, run *pipeline.Context) (item.Item, error) {
	doc := map[string]any(it)
	vars := fieldpath.Vars{
		ItemID:       it.ID(),
		CollectionID: collectionOf(it, run),
	}

	updates, err := fieldpath.ExpandUpdates(s.cfg.Updates, doc, vars)
	if err != nil {
		return nil, err
	}

	// Deterministic application order.
	paths := make([]string, 0, len(updates))
	for p := range updates {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	createMissing := s.cfg.Strategy == StrategyMerge
	for _, p := range paths {
		segments, err := fieldpath.Parse(p)
		if err != nil {
			return nil, err
		}
		if s.cfg.Strategy == StrategyUpdateExisting && !fieldpath.Exists(doc, segments) {
			continue
		}
		if err := fieldpath.Set(doc, segments, updates[p], createMissing); err != nil {
			return nil, &errors.DataError{
				ItemID:  it.ID(),
				Message: fmt.Sprintf("failed to set %s", p),
				Cause:   err,
			}
		}
	}

	removals, err := fieldpath.ExpandRemovals(s.cfg.Removals, doc)
	if err != nil {
		return nil, err
	}
	for _, p := range removals {
		segments, err := fieldpath.Parse(p)
		if err != nil {
			return nil, err
		}
		fieldpath.Delete(doc, segments)
	}

	return it, nil
}
