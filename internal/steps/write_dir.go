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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

type writeDirConfig struct {
	// BaseDir is the output root. Items land at
	// <base_dir>/<collection>/<id>.json.
	BaseDir string `yaml:"base_dir"`
}

// manifest summarizes one collection's output, written on Finalize.
type manifest struct {
	Collection  string    `json:"collection"`
	ItemCount   int       `json:"item_count"`
	ItemIDs     []string  `json:"item_ids"`
	GeneratedAt time.Time `json:"generated_at"`
}

// writeDir writes one JSON document per item and a per-collection
// manifest at finalize.
type writeDir struct {
	baseDir string

	mu      sync.Mutex
	written map[string][]string
}

func newWriteToDir(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg writeDirConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		return nil, &errors.ConfigError{Key: "base_dir", Reason: "base_dir is required"}
	}
	return &writeDir{
		baseDir: cfg.BaseDir,
		written: make(map[string][]string),
	}, nil
}

// itemPath is deterministic so OutputPath can report it without state.
func (w *writeDir) itemPath(it item.Item) string {
	collection := it.Collection()
	if collection == "" {
		collection = "default"
	}
	return filepath.Join(w.baseDir, collection, it.ID()+".json")
}

// OutputPath reports where Add put the item.
func (w *writeDir) OutputPath(it item.Item) string {
	return w.itemPath(it)
}

func (w *writeDir) Add(ctx context.Context, it item.Item, run *pipeline.Context) error {
	path := w.itemPath(it)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		// A single item failing to write is per-item, not critical.
		return &errors.DataError{
			ItemID:  it.ID(),
			Message: fmt.Sprintf("failed to create output directory for %s", path),
			Cause:   err,
		}
	}

	data, err := it.Encode()
	if err != nil {
		return &errors.DataError{
			ItemID:  it.ID(),
			Message: "failed to encode item",
			Cause:   err,
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &errors.DataError{
			ItemID:  it.ID(),
			Message: fmt.Sprintf("failed to write %s", path),
			Cause:   err,
		}
	}

	collection := it.Collection()
	if collection == "" {
		collection = "default"
	}
	w.mu.Lock()
	w.written[collection] = append(w.written[collection], it.ID())
	w.mu.Unlock()

	return nil
}

// Finalize writes a manifest per collection. Failures here are
// critical: the output is incomplete without its manifest.
func (w *writeDir) Finalize(ctx context.Context, run *pipeline.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for collection, ids := range w.written {
		sort.Strings(ids)
		m := manifest{
			Collection:  collection,
			ItemCount:   len(ids),
			ItemIDs:     ids,
			GeneratedAt: time.Now().UTC(),
		}

		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return &errors.IOError{Op: "finalize", Cause: err}
		}

		path := filepath.Join(w.baseDir, collection, "manifest.json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return &errors.IOError{Op: "finalize", Path: path, Cause: err}
		}
		run.Logger.Info("wrote collection manifest", "collection", collection, "items", len(ids))
	}

	return nil
}
