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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

type ingestFilesConfig struct {
	// Glob is a doublestar pattern, e.g. "items/**/*.json".
	Glob string `yaml:"glob"`

	// BaseDir anchors a relative glob. Default: current directory.
	BaseDir string `yaml:"base_dir"`
}

// ingestFiles streams item documents from JSON files on disk.
type ingestFiles struct {
	cfg ingestFilesConfig
}

func newIngestFromFiles(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg ingestFilesConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Glob == "" {
		return nil, &errors.ConfigError{Key: "glob", Reason: "glob is required"}
	}

	// ${collection_id} in the glob or base dir resolves against the
	// matrix entry, mirroring IngestFromApi.
	for _, field := range []*string{&cfg.Glob, &cfg.BaseDir} {
		if !strings.Contains(*field, matrixToken) {
			continue
		}
		collection := run.CollectionID()
		if collection == "" {
			return nil, &errors.ConfigError{
				Key:    "glob",
				Reason: "${collection_id} is used but the pipeline has no matrix collection",
			}
		}
		*field = strings.ReplaceAll(*field, matrixToken, collection)
	}

	if !doublestar.ValidatePattern(cfg.Glob) {
		return nil, &errors.ConfigError{
			Key:    "glob",
			Reason: fmt.Sprintf("invalid glob pattern %q", cfg.Glob),
		}
	}
	return &ingestFiles{cfg: cfg}, nil
}

func (f *ingestFiles) Fetch(ctx context.Context, run *pipeline.Context) (<-chan item.Item, <-chan error) {
	itemsCh := make(chan item.Item, pipeline.StreamBuffer)
	errsCh := make(chan error, 1)

	go func() {
		defer close(itemsCh)
		defer close(errsCh)

		pattern := f.cfg.Glob
		if f.cfg.BaseDir != "" {
			pattern = filepath.Join(f.cfg.BaseDir, pattern)
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			errsCh <- &errors.ConfigError{
				Key:    "glob",
				Reason: fmt.Sprintf("glob %q failed", pattern),
				Cause:  err,
			}
			return
		}
		sort.Strings(matches)

		run.Logger.Debug("ingesting item files", "pattern", pattern, "matches", len(matches))

		for _, path := range matches {
			if ctx.Err() != nil {
				return
			}

			data, err := os.ReadFile(path)
			if err != nil {
				errsCh <- &errors.DataError{
					ItemID:  path,
					Message: "failed to read item file",
					Cause:   err,
				}
				continue
			}
			it, err := item.Decode(data)
			if err != nil {
				errsCh <- &errors.DataError{
					ItemID:  path,
					Message: "failed to parse item file",
					Cause:   err,
				}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case itemsCh <- it:
			}
		}
	}()

	return itemsCh, errsCh
}
