// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - RequestID: UUID-based request tracking, propagated into the logging context
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request count and latency labelled by chi route pattern

The router installs them in this order:

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

Labelling by route pattern ("/api/v1/items/{itemID}/similar") instead of
the raw path keeps metric cardinality bounded by the number of routes.
*/
package middleware
