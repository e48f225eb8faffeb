// Copyright 2026 The ingestcore Authors
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

// Package metrics exposes the Coordinator's per-status counts as
// Prometheus gauges and counters, following the pack's package-level
// var-block-plus-MustRegister convention (see pkg/metrics/metrics.go in
// the cuemby-warren example).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ingestcore_jobs_by_status",
			Help: "Number of ingestion jobs currently in each status.",
		},
		[]string{"status"},
	)

	WorkUnitsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ingestcore_work_units_by_status",
			Help: "Number of work units currently in each status, by unit type.",
		},
		[]string{"unit_type", "status"},
	)

	FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestcore_failures_total",
			Help: "Total structured failures recorded, by kind.",
		},
		[]string{"kind"},
	)

	RecordsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestcore_records_processed_total",
			Help: "Total staged records produced by the parse stage, by job type.",
		},
		[]string{"job_type"},
	)

	RecordsStoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingestcore_records_stored_total",
			Help: "Total records committed by the store stage, by job type.",
		},
		[]string{"job_type"},
	)

	WorkUnitClaimDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingestcore_work_unit_duration_seconds",
			Help:    "Wall-clock time from claim to the end of a work unit's dispatch, successful or not, by unit type.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"unit_type"},
	)

	ReaperRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestcore_reaper_requeued_total",
			Help: "Total stalled work units requeued by the reaper.",
		},
	)

	ReaperFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingestcore_reaper_failed_total",
			Help: "Total stalled work units terminally failed by the reaper after exhausting retries.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		JobsByStatus,
		WorkUnitsByStatus,
		FailuresTotal,
		RecordsProcessedTotal,
		RecordsStoredTotal,
		WorkUnitClaimDuration,
		ReaperRequeuedTotal,
		ReaperFailedTotal,
	)
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
