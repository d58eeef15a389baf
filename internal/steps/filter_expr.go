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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/stacflow/stacflow/pkg/errors"
	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

type filterExprConfig struct {
	// Expression is a boolean predicate over the item's fields, e.g.
	// `properties.cloud_cover < 10`. Items evaluating to false are
	// dropped.
	Expression string `yaml:"expression"`
}

// filterExpr drops items whose predicate evaluates to false.
type filterExpr struct {
	source  string
	program *vm.Program
}

func newFilterExpr(config map[string]any, run *pipeline.Context) (any, error) {
	var cfg filterExprConfig
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	if cfg.Expression == "" {
		return nil, &errors.ConfigError{Key: "expression", Reason: "expression is required"}
	}

	program, err := expr.Compile(cfg.Expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, &errors.ConfigError{
			Key:    "expression",
			Reason: "failed to compile filter expression",
			Cause:  err,
		}
	}

	return &filterExpr{source: cfg.Expression, program: program}, nil
}

func (f *filterExpr) Modify(ctx context.Context, it item.Item, run *pipeline.Context) (item.Item, error) {
	out, err := expr.Run(f.program, map[string]any(it))
	if err != nil {
		return nil, &errors.DataError{
			ItemID:  it.ID(),
			Message: fmt.Sprintf("filter %q failed", f.source),
			Cause:   err,
		}
	}

	keep, ok := out.(bool)
	if !ok {
		return nil, &errors.DataError{
			ItemID:  it.ID(),
			Message: fmt.Sprintf("filter %q produced %T, want bool", f.source, out),
		}
	}
	if !keep {
		return nil, nil
	}
	return it, nil
}
