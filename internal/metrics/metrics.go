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

// Package metrics maintains Prometheus counters for pipeline activity.
// Counters are registered on the default registry; exposing them is the
// embedding application's concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	itemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacflow_items_processed_total",
			Help: "Items that reached the bundler, by workflow",
		},
		[]string{"workflow"},
	)

	itemFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacflow_item_failures_total",
			Help: "Per-item failures recorded, by workflow and step",
		},
		[]string{"workflow", "step"},
	)

	checkpointSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacflow_checkpoint_skips_total",
			Help: "Items skipped on resume because a checkpoint marked them completed",
		},
		[]string{"workflow"},
	)

	pipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stacflow_pipeline_runs_total",
			Help: "Pipeline runs by workflow and final status",
		},
		[]string{"workflow", "status"},
	)
)

// RecordItemProcessed counts an item acknowledged by the bundler.
func RecordItemProcessed(workflow string) {
	itemsProcessed.WithLabelValues(workflow).Inc()
}

// RecordItemFailure counts a per-item failure attributed to a step.
func RecordItemFailure(workflow, step string) {
	itemFailures.WithLabelValues(workflow, step).Inc()
}

// RecordCheckpointSkip counts an item skipped at the resume gate.
func RecordCheckpointSkip(workflow string) {
	checkpointSkips.WithLabelValues(workflow).Inc()
}

// RecordRun counts a finished pipeline run with its status.
func RecordRun(workflow, status string) {
	pipelineRuns.WithLabelValues(workflow, status).Inc()
}
