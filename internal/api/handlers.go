// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package api

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/alsrec/internal/database"
	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/recommend"
	"github.com/tomtom215/alsrec/internal/recommend/als"
	"github.com/tomtom215/alsrec/internal/validation"
)

// queryTimeout bounds catalog lookups made while serving a request.
const queryTimeout = 10 * time.Second

// Catalog resolves item titles. *database.DB implements it.
type Catalog interface {
	ResolveTitle(ctx context.Context, query string, limit int) ([]database.TitleMatch, error)
	ItemTitles(ctx context.Context, ids []int64) (map[int64]string, error)
	Ping(ctx context.Context) error
}

// Handler serves the API endpoints.
type Handler struct {
	engine  *recommend.Engine
	catalog Catalog

	// baseCtx bounds training runs started over HTTP; they outlive the request.
	baseCtx   context.Context
	startTime time.Time
}

// NewHandler creates a handler. catalog may be nil, which disables title
// search and title enrichment. Training runs started through the API are
// cancelled when ctx is.
func NewHandler(ctx context.Context, engine *recommend.Engine, catalog Catalog) *Handler {
	return &Handler{
		engine:    engine,
		catalog:   catalog,
		baseCtx:   ctx,
		startTime: time.Now(),
	}
}

// ItemResult is a ranked item in query responses.
type ItemResult struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
	Title  string  `json:"title,omitempty"`
}

// withTitles converts scored items to results, attaching catalog titles when
// available. A failed title lookup is logged and the results go out untitled.
func (h *Handler) withTitles(ctx context.Context, items []recommend.ScoredItem) []ItemResult {
	out := make([]ItemResult, len(items))
	for i, it := range items {
		out[i] = ItemResult{ItemID: it.ItemID, Score: it.Score}
	}
	if h.catalog == nil || len(items) == 0 {
		return out
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	titles, err := h.catalog.ItemTitles(ctx, ids)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("item title lookup failed")
		return out
	}
	for i := range out {
		out[i].Title = titles[out[i].ItemID]
	}
	return out
}

// writeDomainError maps engine and catalog errors to responses.
func writeDomainError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, als.ErrUnknownIdentifier):
		rw.NotFound(err.Error())
	case errors.Is(err, als.ErrNotTrained):
		rw.ServiceUnavailable(ErrCodeModelNotReady, "No model has been trained yet")
	case errors.Is(err, recommend.ErrTrainingInProgress):
		rw.Conflict("A training run is already in progress")
	case errors.Is(err, recommend.ErrNoDataProvider):
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "No interaction source is configured")
	case errors.Is(err, als.ErrIndexOutOfRange), errors.Is(err, als.ErrShapeMismatch):
		rw.BadRequest(err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "Request timed out")
	default:
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("request failed")
		rw.InternalError("An internal error occurred")
	}
}

// writeParamError answers a parse or validation failure with 400.
func writeParamError(rw *ResponseWriter, perr *ParamError, verr *validation.RequestValidationError) {
	if perr != nil {
		rw.ValidationError(perr.Error(), map[string]interface{}{
			"field": perr.Param,
			"value": perr.Value,
		})
		return
	}
	apiErr := verr.ToAPIError()
	rw.ValidationError(apiErr.Message, apiErr.Details)
}
