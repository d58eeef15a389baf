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

package run

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacflow/stacflow/internal/steps"
	"github.com/stacflow/stacflow/internal/store"
	"github.com/stacflow/stacflow/pkg/pipeline"
	"github.com/stacflow/stacflow/pkg/workflow"
)

// NewCommand creates the run command.
func NewCommand() *cobra.Command {
	var (
		checkpointDir string
		logLevel      string
		historyDB     string
		useJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow to completion",
		Long: `Run loads a workflow file, validates its step graph, and executes it.
Completed items are checkpointed under the checkpoint directory so a
re-run of the same workflow resumes where it left off.

The command exits 0 when every pipeline finishes (even with per-item
failures) and 1 when any pipeline fails or the workflow is invalid.`,
		Example: `  # Run a workflow with checkpoints under .stacflow
  stacflow run workflow.yaml

  # Resume after a crash, with debug logging
  stacflow run workflow.yaml --log-level debug

  # Keep run history in a local database
  stacflow run workflow.yaml --history-db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, args[0], checkpointDir, logLevel, historyDB, useJSON)
		},
	}

	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", ".stacflow/checkpoints", "Directory for checkpoint state")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "SQLite database for run history (optional)")
	cmd.Flags().BoolVar(&useJSON, "json", false, "Output results as JSON")

	return cmd
}

func runWorkflow(cmd *cobra.Command, path, checkpointDir, logLevel, historyDB string, useJSON bool) error {
	def, err := workflow.Load(path)
	if err != nil {
		return err
	}

	manager, err := pipeline.NewManager(def, steps.Builtin(), checkpointDir, logLevel)
	if err != nil {
		return err
	}
	defer manager.Close()

	if historyDB != "" {
		st, err := store.Open(historyDB)
		if err != nil {
			return err
		}
		defer st.Close()
		manager.WithRunRecorder(st)
	}

	results, err := manager.Execute(cmd.Context())
	if err != nil {
		return err
	}

	if useJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		for _, r := range results {
			fmt.Fprintln(cmd.OutOrStdout(), r.Summary)
		}
	}

	for _, r := range results {
		if !r.Succeeded() {
			return fmt.Errorf("workflow %s failed: %s", def.Name, r.Summary)
		}
	}
	return nil
}
