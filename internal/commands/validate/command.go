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

package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacflow/stacflow/internal/steps"
	"github.com/stacflow/stacflow/pkg/workflow"
)

// NewCommand creates the validate command.
func NewCommand() *cobra.Command {
	var useJSON bool

	cmd := &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Validate workflow YAML structure and step graph",
		Long: `Validate checks that a workflow file has valid YAML syntax, that every
step kind is registered, that the depends_on graph is acyclic, and that
the workflow has exactly one fetcher and one bundler. No step is
instantiated and no item flows.`,
		Example: `  # Basic validation
  stacflow validate workflow.yaml

  # Validation with machine-readable output
  stacflow validate workflow.yaml --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], useJSON)
		},
	}

	cmd.Flags().BoolVar(&useJSON, "json", false, "Output validation result as JSON")

	return cmd
}

type validationReport struct {
	Valid          bool     `json:"valid"`
	Workflow       string   `json:"workflow,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	MatrixEntries  int      `json:"matrix_entries,omitempty"`
	ExecutionOrder []string `json:"execution_order,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, path string, useJSON bool) error {
	report, err := buildReport(path)

	if useJSON {
		data, marshalErr := json.MarshalIndent(report, "", "  ")
		if marshalErr != nil {
			return marshalErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "invalid: %v\n", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "valid: workflow %q, %d steps, execution order: %s\n",
		report.Workflow, report.Steps, strings.Join(report.ExecutionOrder, " -> "))
	if report.MatrixEntries > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "matrix: %d entries\n", report.MatrixEntries)
	}
	return nil
}

func buildReport(path string) (validationReport, error) {
	def, err := workflow.Load(path)
	if err != nil {
		return validationReport{Error: err.Error()}, err
	}

	order, err := workflow.ExecutionOrder(def)
	if err != nil {
		return validationReport{Workflow: def.Name, Error: err.Error()}, err
	}
	if err := workflow.ValidateRoles(def, steps.Builtin()); err != nil {
		return validationReport{Workflow: def.Name, Error: err.Error()}, err
	}

	report := validationReport{
		Valid:          true,
		Workflow:       def.Name,
		Steps:          len(def.Steps),
		ExecutionOrder: order,
	}
	if def.Strategy != nil {
		report.MatrixEntries = len(def.Strategy.Matrix)
	}
	return report, nil
}
