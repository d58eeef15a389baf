// Package schemas provides access to embedded JSON schemas.
package schemas

import (
	_ "embed"
)

// The workflow JSON Schema ships in the binary so tooling can validate
// workflow files and editors can offer completion without network access.
//
//go:embed workflow.schema.json
var workflowSchema []byte

// GetWorkflowSchema returns the embedded workflow JSON Schema as raw bytes.
func GetWorkflowSchema() []byte {
	return workflowSchema
}

// GetWorkflowSchemaString returns the embedded workflow JSON Schema as a string.
func GetWorkflowSchemaString() string {
	return string(workflowSchema)
}
