// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

/*
Package api provides the HTTP REST API for alsrec.

Key Components:

  - Router: chi route configuration and the global middleware stack
  - Handler: request handlers for queries, training and health probes
  - Response formatting: a standard JSON envelope with request metadata
  - Rate limiting and CORS via go-chi/httprate and go-chi/cors

Endpoints:

	GET  /api/v1/items/{itemID}/similar?k=&normalized=
	GET  /api/v1/users/{userID}/recommendations?k=&filter_seen=&exclude=
	GET  /api/v1/items/search?q=&limit=
	POST /api/v1/model/train
	GET  /api/v1/model/status
	GET  /health/live
	GET  /health/ready
	GET  /metrics

Response Envelope:

Every JSON endpoint answers with

	{
	  "success": true,
	  "data": {...},
	  "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

where exactly one of data and error is present.

Error Mapping:

Domain errors are mapped to status codes in one place (writeDomainError):
unknown user or item ids are 404, no published model is 503, a training
run already in progress is 409, and rejected query parameters are 400.
*/
package api
