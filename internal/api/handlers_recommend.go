// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/alsrec/internal/database"
	"github.com/tomtom215/alsrec/internal/logging"
	"github.com/tomtom215/alsrec/internal/recommend"
	"github.com/tomtom215/alsrec/internal/validation"
)

// SimilarItemsResponse is the payload of GET /items/{itemID}/similar.
type SimilarItemsResponse struct {
	ItemID     int64        `json:"item_id"`
	Normalized bool         `json:"normalized"`
	Items      []ItemResult `json:"items"`
	Count      int          `json:"count"`
}

// RecommendationsResponse is the payload of GET /users/{userID}/recommendations.
type RecommendationsResponse struct {
	UserID     int64        `json:"user_id"`
	FilterSeen bool         `json:"filter_seen"`
	Items      []ItemResult `json:"items"`
	Count      int          `json:"count"`
}

// SearchResponse is the payload of GET /items/search.
type SearchResponse struct {
	Query   string                `json:"query"`
	Matches []database.TitleMatch `json:"matches"`
	Count   int                   `json:"count"`
}

// SimilarItems handles GET /api/v1/items/{itemID}/similar.
// The queried item is always the first result.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	p := newParamParser(r)
	req := SimilarItemsRequest{
		ItemID:     p.int64("itemID", chi.URLParam(r, "itemID")),
		K:          p.int("k", 0),
		Normalized: p.bool("normalized", false),
	}
	if p.err != nil {
		writeParamError(rw, p.err, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeParamError(rw, nil, verr)
		return
	}

	items, err := h.engine.SimilarItems(r.Context(), req.ItemID, req.K, req.Normalized)
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	results := h.withTitles(r.Context(), items)
	rw.Success(SimilarItemsResponse{
		ItemID:     req.ItemID,
		Normalized: req.Normalized,
		Items:      results,
		Count:      len(results),
	})
}

// Recommendations handles GET /api/v1/users/{userID}/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	p := newParamParser(r)
	req := RecommendRequest{
		UserID:     p.int64("userID", chi.URLParam(r, "userID")),
		K:          p.int("k", 0),
		FilterSeen: p.bool("filter_seen", true),
		Exclude:    p.int64List("exclude"),
	}
	if p.err != nil {
		writeParamError(rw, p.err, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeParamError(rw, nil, verr)
		return
	}

	items, err := h.engine.Recommend(r.Context(), req.UserID, req.K, recommend.RecommendOptions{
		FilterSeen: req.FilterSeen,
		Exclude:    req.Exclude,
	})
	if err != nil {
		writeDomainError(rw, err)
		return
	}

	results := h.withTitles(r.Context(), items)
	rw.Success(RecommendationsResponse{
		UserID:     req.UserID,
		FilterSeen: req.FilterSeen,
		Items:      results,
		Count:      len(results),
	})
}

// SearchItems handles GET /api/v1/items/search and resolves a title query to
// catalog item ids.
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.catalog == nil {
		rw.ServiceUnavailable(ErrCodeServiceUnavailable, "Item catalog is not available")
		return
	}

	p := newParamParser(r)
	req := SearchRequest{
		Query: r.URL.Query().Get("q"),
		Limit: p.int("limit", 0),
	}
	if p.err != nil {
		writeParamError(rw, p.err, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		writeParamError(rw, nil, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	matches, err := h.catalog.ResolveTitle(ctx, req.Query, req.Limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if matches == nil {
		matches = []database.TitleMatch{}
	}

	logging.Ctx(r.Context()).Debug().
		Str("query", req.Query).
		Int("matches", len(matches)).
		Msg("title search")

	rw.Success(SearchResponse{
		Query:   req.Query,
		Matches: matches,
		Count:   len(matches),
	})
}
