// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/metrics"
)

func requestCount(method, route, status string) float64 {
	return testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues(method, route, status))
}

func TestPrometheusMetrics_RoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/items/{itemID}/similar", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	const route = "/api/v1/items/{itemID}/similar"
	before := requestCount(http.MethodGet, route, "418")

	for _, id := range []string{"1", "2", "3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/items/"+id+"/similar", nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := requestCount(http.MethodGet, route, "418") - before; got != 3 {
		t.Errorf("requests for %s = %v, want 3", route, got)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/known", func(w http.ResponseWriter, r *http.Request) {})

	before := requestCount(http.MethodGet, unmatchedRoute, "404")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	if got := requestCount(http.MethodGet, unmatchedRoute, "404") - before; got != 1 {
		t.Errorf("unmatched requests delta = %v, want 1", got)
	}
}

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantBytes  int
	}{
		{
			name:       "defaults to 200 when WriteHeader not called",
			handler:    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("Hello")) },
			wantStatus: http.StatusOK,
			wantBytes:  5,
		},
		{
			name: "keeps first status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sr := newStatusRecorder(httptest.NewRecorder())
			tt.handler(sr, httptest.NewRequest(http.MethodGet, "/", nil))
			if sr.status != tt.wantStatus {
				t.Errorf("status = %d, want %d", sr.status, tt.wantStatus)
			}
			if sr.bytes != tt.wantBytes {
				t.Errorf("bytes = %d, want %d", sr.bytes, tt.wantBytes)
			}
		})
	}

	t.Run("does not double wrap", func(t *testing.T) {
		t.Parallel()
		sr := newStatusRecorder(httptest.NewRecorder())
		if newStatusRecorder(sr) != sr {
			t.Error("newStatusRecorder wrapped an existing recorder")
		}
	})
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewTestLogger(&buf)

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithLogger(r.Context(), logger)
		AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})).ServeHTTP(w, r.WithContext(ctx))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/model/train", nil))

	out := buf.String()
	for _, want := range []string{`"status":500`, `"method":"POST"`, `"request_id":"` + rec.Header().Get(RequestIDHeader) + `"`} {
		if !strings.Contains(out, want) {
			t.Errorf("access log %q missing %s", out, want)
		}
	}
}
