package steps

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stacflow/stacflow/pkg/checkpoint"
	"github.com/stacflow/stacflow/pkg/pipeline"
)

func testRun(t *testing.T) *pipeline.Context {
	t.Helper()
	cp, err := checkpoint.NewManager(t.TempDir(), "w")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.NewContext("w", logger, cp)
}

func TestBuiltinRegistryCoversAllKinds(t *testing.T) {
	reg := Builtin()
	require.Equal(t, []string{
		"Collect",
		"EnrichFromTable",
		"FilterExpr",
		"IngestFromApi",
		"IngestFromFiles",
		"SetFields",
		"TransformJq",
		"ValidateSchema",
		"WriteToDir",
	}, reg.Kinds())
}
