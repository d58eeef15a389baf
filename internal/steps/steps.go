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

// Package steps ships the built-in step kinds: fetchers that ingest
// items from APIs or files, modifiers that reshape them, and bundlers
// that write them out.
package steps

import (
	"gopkg.in/yaml.v3"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
	"github.com/stacflow/stacflow/pkg/workflow"
)

// Builtin returns a registry with every built-in step kind.
func Builtin() *pipeline.Registry {
	reg := pipeline.NewRegistry()

	reg.Register("IngestFromApi", workflow.RoleFetcher, newIngestFromAPI)
	reg.Register("IngestFromFiles", workflow.RoleFetcher, newIngestFromFiles)

	reg.Register("SetFields", workflow.RoleModifier, newSetFields)
	reg.Register("EnrichFromTable", workflow.RoleModifier, newEnrichFromTable)
	reg.Register("TransformJq", workflow.RoleModifier, newTransformJq)
	reg.Register("ValidateSchema", workflow.RoleModifier, newValidateSchema)
	reg.Register("FilterExpr", workflow.RoleModifier, newFilterExpr)

	reg.Register("WriteToDir", workflow.RoleBundler, newWriteToDir)
	reg.Register("Collect", workflow.RoleBundler, newCollect)

	return reg
}

// decodeConfig maps a step's raw config into a typed struct through a
// YAML round-trip, reusing the same tags and coercions as the workflow
// loader.
func decodeConfig(config map[string]any, out any) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return &errors.ConfigError{
			Key:    "config",
			Reason: "failed to encode step config",
			Cause:  err,
		}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &errors.ConfigError{
			Key:    "config",
			Reason: "failed to decode step config",
			Cause:  err,
		}
	}
	return nil
}

// collectionOf resolves the collection an item belongs to, preferring
// the item's own attribute over the pipeline's matrix entry.
func collectionOf(it item.Item, run *pipeline.Context) string {
	if c := it.Collection(); c != "" {
		return c
	}
	return run.CollectionID()
}
