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

package examples

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Example workflows ship inside the binary so "stacflow examples" works
// offline.
//
//go:embed *.yaml
var embeddedFS embed.FS

// Example is metadata about one embedded example workflow.
type Example struct {
	Name        string
	Description string
	FilePath    string
}

// List returns all embedded examples, sorted by name.
func List() ([]Example, error) {
	entries, err := embeddedFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded examples: %w", err)
	}

	var examples []Example
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		examples = append(examples, Example{
			Name:        name,
			Description: describe(entry.Name()),
			FilePath:    entry.Name(),
		})
	}
	sort.Slice(examples, func(i, j int) bool { return examples[i].Name < examples[j].Name })

	return examples, nil
}

// Get returns the content of an example by name.
func Get(name string) ([]byte, error) {
	content, err := embeddedFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("example %q not found: %w", name, err)
	}
	return content, nil
}

// Exists reports whether an example with the given name is embedded.
func Exists(name string) bool {
	_, err := embeddedFS.ReadFile(name + ".yaml")
	return err == nil
}

// CopyTo writes an example to destPath, creating parent directories.
func CopyTo(name string, destPath string) error {
	content, err := Get(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	if err := os.WriteFile(destPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write example file: %w", err)
	}
	return nil
}

// describe pulls the description field out of the workflow YAML itself
// so the listing never drifts from the file.
func describe(filename string) string {
	content, err := embeddedFS.ReadFile(filename)
	if err != nil {
		return ""
	}

	var meta struct {
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal(content, &meta); err != nil {
		return ""
	}
	return meta.Description
}
