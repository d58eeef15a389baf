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
	"sync"

	"github.com/stacflow/stacflow/pkg/item"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

// Collect is an in-memory bundler for tests and embedding callers that
// want the surviving items back directly.
type Collect struct {
	mu        sync.Mutex
	items     []item.Item
	finalized bool
}

func newCollect(config map[string]any, run *pipeline.Context) (any, error) {
	return &Collect{}, nil
}

func (c *Collect) Add(ctx context.Context, it item.Item, run *pipeline.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, it)
	return nil
}

func (c *Collect) Finalize(ctx context.Context, run *pipeline.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finalized = true
	return nil
}

// Items returns the collected items in bundling order.
func (c *Collect) Items() []item.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]item.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Finalized reports whether the pipeline completed its stream.
func (c *Collect) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized
}
