// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus collectors for the auth service.

Collectors are package-level and registered once on the default registry by
[Register]. Recording into an unregistered collector is harmless, so unit tests
never need to call [Register].
*/
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "projectflow_auth"

// # Collectors

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	authOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_outcomes_total",
			Help:      "Authentication operations by operation and outcome code.",
		},
		[]string{"operation", "outcome"},
	)

	roleAssignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_assignments_total",
			Help:      "Role assignments by target label.",
		},
		[]string{"label"},
	)

	sessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Expired sessions removed by the sweeper.",
	})

	bootstrapState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bootstrap_state",
			Help:      "1 for the current data store bootstrap state, 0 otherwise.",
		},
		[]string{"state"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default Prometheus registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			authOutcomes,
			roleAssignments,
			sessionsSwept,
			bootstrapState,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// # Recorders

// RecordAuth counts one authentication operation. outcome is "ok" or an error code.
func RecordAuth(operation, outcome string) {
	authOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordRoleAssignment counts one role assignment.
func RecordRoleAssignment(label string) {
	roleAssignments.WithLabelValues(label).Inc()
}

// RecordSweep adds the number of sessions removed by one sweep.
func RecordSweep(removed int64) {
	if removed > 0 {
		sessionsSwept.Add(float64(removed))
	}
}

// SetBootstrapState marks current as the active state among all states.
func SetBootstrapState(current string, all []string) {
	for _, state := range all {
		value := 0.0
		if state == current {
			value = 1
		}
		bootstrapState.WithLabelValues(state).Set(value)
	}
}

// # HTTP Instrumentation

// Instrument records request count and latency per chi route pattern, so that
// path parameters do not explode label cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusWriter{ResponseWriter: writer, code: http.StatusOK}

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(request.Method, route, strconv.Itoa(recorder.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
