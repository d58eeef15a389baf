package pipeline

import (
	"context"

	"github.com/stacflow/stacflow/pkg/item"
)

// StreamBuffer is the capacity fetchers should use for their item
// channel. The bounded channel gives backpressure: a slow modifier or
// bundler transparently slows the fetcher.
const StreamBuffer = 32

// Fetcher is the source role. Fetch returns an item stream and an error
// stream; both must be closed when fetching ends. Errors on the error
// stream are per-item failures unless fatal by kind. Fetchers must stop
// producing when ctx is cancelled.
type Fetcher interface {
	Fetch(ctx context.Context, run *Context) (<-chan item.Item, <-chan error)
}

// Modifier is the transformation role, synchronous per item. The
// modifier owns the item for the duration of the call and may mutate it
// freely. Returning (nil, nil) drops the item: deliberate filtering,
// not a failure. Returning an error records a per-item failure unless
// the error is fatal by kind.
type Modifier interface {
	Modify(ctx context.Context, it item.Item, run *Context) (item.Item, error)
}

// Bundler is the sink role. Add accumulates one item; Finalize commits
// the accumulated output. A Finalize error is critical and fails the
// pipeline.
type Bundler interface {
	Add(ctx context.Context, it item.Item, run *Context) error
	Finalize(ctx context.Context, run *Context) error
}

// OutputPather is optionally implemented by bundlers that can report
// where an item was written. The hint is stored on the item's
// checkpoint record; it is opaque and need not be unique per item.
type OutputPather interface {
	OutputPath(it item.Item) string
}
