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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stacflow/stacflow/schemas"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the workflow JSON Schema",
		Long: `Schema prints the JSON Schema for workflow files. Point an editor or a
schema-aware validator at it for completion and early feedback.`,
		Example: `  stacflow schema
  stacflow schema --output workflow.schema.json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := schemas.GetWorkflowSchema()
			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), string(schema))
				return nil
			}
			if err := os.WriteFile(output, schema, 0644); err != nil {
				return fmt.Errorf("failed to write schema: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote schema to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Write the schema to a file instead of stdout")
	return cmd
}
