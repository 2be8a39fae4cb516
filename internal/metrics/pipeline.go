// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus collectors for pipeline operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineOps counts completed pipeline operations by outcome.
	PipelineOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediastudio_pipeline_operations_total",
		Help: "Total pipeline operations by outcome",
	}, []string{"operation", "result"})

	// PipelineDuration tracks wall-clock time of whole pipeline operations.
	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediastudio_pipeline_duration_seconds",
		Help:    "Duration of pipeline operations",
		Buckets: prometheus.ExponentialBuckets(0.1, 2.0, 13), // 100ms to ~13m
	}, []string{"operation"})

	// PipelineErrors counts classified failures by taxonomy kind.
	PipelineErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediastudio_pipeline_errors_total",
		Help: "Total classified pipeline failures",
	}, []string{"operation", "kind"})

	// OutputBytes tracks the size of produced artifacts.
	OutputBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediastudio_pipeline_output_bytes",
		Help:    "Size of produced pipeline artifacts",
		Buckets: prometheus.ExponentialBuckets(1024, 4.0, 10), // 1KiB to ~256MiB
	}, []string{"operation"})
)

// ObserveOp records the outcome of one pipeline operation.
func ObserveOp(operation string, start time.Time, errKind string) {
	PipelineDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if errKind == "" {
		PipelineOps.WithLabelValues(operation, "ok").Inc()
		return
	}
	PipelineOps.WithLabelValues(operation, "error").Inc()
	PipelineErrors.WithLabelValues(operation, errKind).Inc()
}
