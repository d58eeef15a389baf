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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacflow/stacflow/internal/commands/history"
	"github.com/stacflow/stacflow/internal/commands/run"
	"github.com/stacflow/stacflow/internal/commands/validate"
	workflowcmd "github.com/stacflow/stacflow/internal/commands/workflow"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stacflow",
		Short: "stacflow - streaming asset metadata pipelines",
		Long: `stacflow runs declarative workflows that stream spatiotemporal asset
metadata through a pipeline of fetch, modify, and bundle steps.

Workflows are YAML files. Run 'stacflow validate' to check one without
executing it.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(validate.NewCommand())
	rootCmd.AddCommand(history.NewCommand())
	rootCmd.AddCommand(workflowcmd.NewExamplesCommand())
	rootCmd.AddCommand(workflowcmd.NewSchemaCommand())

	// First interrupt cancels the context so pipelines flush checkpoints
	// and finalize partial output; a second interrupt kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
