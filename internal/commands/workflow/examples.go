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

package workflow

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stacflow/stacflow/internal/examples"
)

// NewExamplesCommand creates the examples command.
func NewExamplesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples",
		Short: "Browse embedded example workflows",
		Long: `Browse, view, and copy example workflows.

Examples are embedded in the stacflow binary and work offline. They
demonstrate the common workflow shapes: local file ingestion and
matrix-parallel catalog fetching.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newExamplesListCmd())
	cmd.AddCommand(newExamplesShowCmd())
	cmd.AddCommand(newExamplesCopyCmd())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return newExamplesListCmd().RunE(cmd, args)
	}

	return cmd
}

func newExamplesListCmd() *cobra.Command {
	var useJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available example workflows",
		Example: `  stacflow examples list
  stacflow examples list --json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := examples.List()
			if err != nil {
				return err
			}

			if useJSON {
				data, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, ex := range list {
				fmt.Fprintf(w, "%s\t%s\n", ex.Name, ex.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&useJSON, "json", false, "Output examples as JSON")
	return cmd
}

func newExamplesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "show <name>",
		Short:        "Print an example workflow",
		Example:      `  stacflow examples show local-files`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := examples.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(content))
			return nil
		},
	}
}

func newExamplesCopyCmd() *cobra.Command {
	var dest string

	cmd := &cobra.Command{
		Use:          "copy <name>",
		Short:        "Copy an example workflow to the filesystem",
		Example:      `  stacflow examples copy local-files --to ./workflow.yaml`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			target := dest
			if target == "" {
				target = name + ".yaml"
			}
			if err := examples.CopyTo(name, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "copied example %q to %s\n", name, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "to", "", "Destination path (default: <name>.yaml)")
	return cmd
}
