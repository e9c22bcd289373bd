// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymBuddy Contributors

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for gateway metrics.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
)

// AuthAttempts counts register, login and logout calls.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gymbuddy_auth_attempts_total",
		Help: "Total number of authentication operations",
	},
	[]string{"operation", "result"},
)

// ProfileUpserts counts profile saves.
// Use RegisterMetrics to register this with a Prometheus registry.
var ProfileUpserts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gymbuddy_profile_upserts_total",
		Help: "Total number of profile upserts",
	},
	[]string{"result"},
)

// RegisterMetrics registers gateway metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(ProfileUpserts)
}

// RecordAuthAttempt increments the auth counter.
func RecordAuthAttempt(operation, result string) {
	AuthAttempts.WithLabelValues(operation, result).Inc()
}

// RecordProfileUpsert increments the profile upsert counter.
func RecordProfileUpsert(result string) {
	ProfileUpserts.WithLabelValues(result).Inc()
}
