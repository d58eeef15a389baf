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

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

const inlineSchemaURL = "inline.json"

type validateSchemaConfig struct {
	// SchemaFile is a path to a JSON Schema document.
	SchemaFile string `yaml:"schema_file"`

	// Schema is an inline schema document, alternative to SchemaFile.
	Schema map[string]any `yaml:"schema"`
}

// validateSchema checks each item against a JSON Schema; violations are
// per-item failures.
type validateSchema struct {
	schema *jsonschema.Schema
}

func newValidateSchema(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg validateSchemaConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.SchemaFile == "" && cfg.Schema == nil {
		return nil, &errors.ConfigError{
			Key:    "schema_file",
			Reason: "one of schema_file or schema is required",
		}
	}
	if cfg.SchemaFile != "" && cfg.Schema != nil {
		return nil, &errors.ConfigError{
			Key:    "schema_file",
			Reason: "schema_file and schema are mutually exclusive",
		}
	}

	compiler := jsonschema.NewCompiler()
	url := cfg.SchemaFile
	if cfg.Schema != nil {
		if err := compiler.AddResource(inlineSchemaURL, cfg.Schema); err != nil {
			return nil, &errors.ConfigError{
				Key:    "schema",
				Reason: "failed to load inline schema",
				Cause:  err,
			}
		}
		url = inlineSchemaURL
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "schema_file",
			Reason: "failed to compile schema",
			Cause:  err,
		}
	}

	return &validateSchema{schema: schema}, nil
}

func (v *validateSchema) Modify(ctx context.Context, it item.Item, run *pipeline.Context) (item.Item, error) {
	if err := v.schema.Validate(map[string]any(it)); err != nil {
		return nil, &errors.ValidationError{
			Field:      "item",
			Message:    err.Error(),
			Suggestion: "fix the item to match the configured schema",
		}
	}
	return it, nil
}
