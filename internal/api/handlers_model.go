// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package api

import (
	"net/http"

	"github.com/tomtom215/alsrec/internal/logging"
)

// TrainAcceptedResponse is the payload of POST /model/train.
type TrainAcceptedResponse struct {
	Status string `json:"status"`

	// CurrentVersion is the version published when the run was accepted.
	CurrentVersion int64 `json:"current_version"`
}

// TrainModel handles POST /api/v1/model/train. The run proceeds in the
// background; poll /model/status for the outcome.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var current int64
	if p := h.engine.Current(); p != nil {
		current = p.Version
	}

	requestID := logging.RequestIDFromContext(r.Context())
	done, err := h.engine.StartTraining(h.baseCtx)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	go func() {
		if err := <-done; err != nil {
			logging.Warn().Err(err).Str("request_id", requestID).Msg("training run requested over HTTP failed")
		}
	}()

	rw.Accepted(TrainAcceptedResponse{
		Status:         "accepted",
		CurrentVersion: current,
	})
}

// ModelStatus handles GET /api/v1/model/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(h.engine.Status())
}
