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

	"github.com/itchyny/gojq"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

type transformJqConfig struct {
	// Expression is a jq program applied to each item. It must yield a
	// single object (the transformed item), or null/empty to drop the
	// item.
	Expression string `yaml:"expression"`
}

// transformJq reshapes items with a compiled jq program.
type transformJq struct {
	code *gojq.Code
}

func newTransformJq(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg transformJqConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Expression == "" {
		return nil, &errors.ConfigError{Key: "expression", Reason: "expression is required"}
	}

	query, err := gojq.Parse(cfg.Expression)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "expression",
			Reason: "failed to parse jq expression",
			Cause:  err,
		}
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "expression",
			Reason: "failed to compile jq expression",
			Cause:  err,
		}
	}

	return &transformJq{code: code}, nil
}

func (t *transformJq) Modify(ctx context.Context, it item.Item, run *pipeline.Context) (item.Item, error) {
	iter := t.code.RunWithContext(ctx, map[string]any(it))

	v, ok := iter.Next()
	if !ok || v == nil {
		// Empty output or null drops the item.
		return nil, nil
	}
	if err, isErr := v.(error); isErr {
		return nil, &errors.DataError{
			ItemID:  it.ID(),
			Message: "jq evaluation failed",
			Cause:   err,
		}
	}

	out, isMap := v.(map[string]any)
	if !isMap {
		return nil, &errors.DataError{
			ItemID:  it.ID(),
			Message: fmt.Sprintf("jq expression produced %T, want an object", v),
		}
	}

	if extra, ok := iter.Next(); ok {
		if err, isErr := extra.(error); isErr {
			return nil, &errors.DataError{
				ItemID:  it.ID(),
				Message: "jq evaluation failed",
				Cause:   err,
			}
		}
		return nil, &errors.DataError{
			ItemID:  it.ID(),
			Message: "jq expression produced multiple values, want exactly one object",
		}
	}

	return item.Item(out), nil
}
