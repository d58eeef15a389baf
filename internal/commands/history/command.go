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

package history

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stacflow/stacflow/internal/store"
)

// NewCommand creates the history command.
func NewCommand() *cobra.Command {
	var (
		dbPath  string
		limit   int
		useJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history <workflow>",
		Short: "Show past runs of a workflow",
		Long: `History lists recent runs of a workflow from the run-history database
written by "run --history-db", newest first.`,
		Example: `  stacflow history my-workflow --db runs.db
  stacflow history my-workflow --db runs.db --limit 5 --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0], dbPath, limit, useJSON)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database written by run --history-db (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&useJSON, "json", false, "Output runs as JSON")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(cmd *cobra.Command, workflow, dbPath string, limit int, useJSON bool) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), workflow, limit)
	if err != nil {
		return err
	}

	if useJSON {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if len(runs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no runs recorded for workflow %q\n", workflow)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATUS\tITEMS\tFAILURES\tDURATION\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.RunID,
			r.Status,
			r.ItemsProcessed,
			r.FailureCount,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.StartedAt.Local().Format(time.RFC3339),
		)
	}
	return w.Flush()
}
