// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the database ping of the readiness probe.
const healthCheckTimeout = 2 * time.Second

// ReadinessStatus is the payload of GET /health/ready.
type ReadinessStatus struct {
	Ready             bool  `json:"ready"`
	ModelLoaded       bool  `json:"model_loaded"`
	ModelVersion      int64 `json:"model_version"`
	DatabaseConnected bool  `json:"database_connected"`
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 200 OK only once a model is published and the catalog database,
// if configured, answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := ReadinessStatus{DatabaseConnected: true}
	if p := h.engine.Current(); p != nil {
		status.ModelLoaded = true
		status.ModelVersion = p.Version
	}
	if h.catalog != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		status.DatabaseConnected = h.catalog.Ping(ctx) == nil
	}
	status.Ready = status.ModelLoaded && status.DatabaseConnected

	if !status.Ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service is not ready", status)
		return
	}
	rw.Success(status)
}
