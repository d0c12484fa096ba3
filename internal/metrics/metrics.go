// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Training

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "als_training_duration_seconds",
			Help:    "Wall time of complete ALS training runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "als_training_runs_total",
			Help: "ALS training runs by outcome",
		},
		[]string{"status"}, // success, error, cancelled, skipped
	)

	TrainingRoundDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "als_training_round_duration_seconds",
			Help:    "Wall time of one ALS round (item pass plus user pass)",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	TrainingLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "als_training_loss",
			Help: "Regularized objective after the most recent round, when loss tracking is enabled",
		},
	)

	SolverFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "als_solver_fallbacks_total",
			Help: "Row solves where the Cholesky factorization failed and conjugate gradient was used",
		},
	)

	// Published model

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "als_model_version",
			Help: "Version of the currently published model",
		},
	)

	ModelEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "als_model_entities",
			Help: "Entities in the published model",
		},
		[]string{"kind"}, // users, items, interactions
	)

	ModelLastTrained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "als_model_last_trained_timestamp_seconds",
			Help: "Unix time the published model finished training",
		},
	)

	// Queries

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "als_query_duration_seconds",
			Help:    "Latency of similarity and recommendation queries",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"operation"}, // similar_items, recommend
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "als_queries_total",
			Help: "Similarity and recommendation queries by outcome",
		},
		[]string{"operation", "status"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "als_query_cache_requests_total",
			Help: "Query result cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// Data source

	InteractionsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "als_interactions_loaded",
			Help: "Interaction records read for the most recent training run",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "als_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "als_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	// HTTP

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "als_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "als_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordTrainingRun records a finished training run.
func RecordTrainingRun(status string, duration time.Duration) {
	TrainingRuns.WithLabelValues(status).Inc()
	if status == "success" {
		TrainingDuration.Observe(duration.Seconds())
	}
}

// RecordTrainingRound records one completed round. NaN loss is not exported.
func RecordTrainingRound(loss float64, elapsed time.Duration) {
	TrainingRoundDuration.Observe(elapsed.Seconds())
	if !math.IsNaN(loss) {
		TrainingLoss.Set(loss)
	}
}

// RecordModelPublished updates the published model gauges.
func RecordModelPublished(version int64, users, items, interactions int, trainedAt time.Time) {
	ModelVersion.Set(float64(version))
	ModelEntities.WithLabelValues("users").Set(float64(users))
	ModelEntities.WithLabelValues("items").Set(float64(items))
	ModelEntities.WithLabelValues("interactions").Set(float64(interactions))
	ModelLastTrained.Set(float64(trainedAt.Unix()))
}

// RecordQuery records a query outcome and latency.
func RecordQuery(operation string, duration time.Duration, err error) {
	QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	QueriesTotal.WithLabelValues(operation, status).Inc()
}

// RecordCacheLookup counts a result cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	CacheRequests.WithLabelValues("miss").Inc()
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
