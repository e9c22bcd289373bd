// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package routine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for generation metrics.
const (
	ResultSuccess  = "success"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
	ResultTimeout  = "timeout"
	ResultRejected = "unauthorized"
)

// Generations counts routine generation attempts by provider and result.
// Use RegisterMetrics to register this with a Prometheus registry.
var Generations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gymbuddy_routine_generations_total",
		Help: "Total number of routine generation requests",
	},
	[]string{"provider", "result"},
)

// GenerationDuration observes time spent in the generator.
// Use RegisterMetrics to register this with a Prometheus registry.
var GenerationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "gymbuddy_routine_generation_seconds",
		Help:    "Routine generation duration in seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
	},
	[]string{"provider"},
)

// RegisterMetrics registers routine metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Generations)
	reg.MustRegister(GenerationDuration)
}

// RecordGeneration increments the generation counter.
func RecordGeneration(provider Provider, result string) {
	label := string(provider)
	if !provider.Valid() {
		label = "unknown"
	}
	Generations.WithLabelValues(label, result).Inc()
}

// RecordGenerationDuration records how long the generator ran.
func RecordGenerationDuration(provider Provider, d time.Duration) {
	GenerationDuration.WithLabelValues(string(provider)).Observe(d.Seconds())
}
