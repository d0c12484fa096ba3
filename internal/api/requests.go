// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// SimilarItemsRequest holds the parameters of GET /items/{itemID}/similar.
// K of zero selects the engine default.
type SimilarItemsRequest struct {
	ItemID     int64 `query:"itemID"`
	K          int   `query:"k" validate:"min=0,max=10000"`
	Normalized bool  `query:"normalized"`
}

// RecommendRequest holds the parameters of GET /users/{userID}/recommendations.
type RecommendRequest struct {
	UserID     int64   `query:"userID"`
	K          int     `query:"k" validate:"min=0,max=10000"`
	FilterSeen bool    `query:"filter_seen"`
	Exclude    []int64 `query:"exclude" validate:"max=1000"`
}

// SearchRequest holds the parameters of GET /items/search.
type SearchRequest struct {
	Query string `query:"q" validate:"required,notblank,max=200"`
	Limit int    `query:"limit" validate:"min=0,max=100"`
}

// ParamError reports a query or path parameter that could not be parsed.
type ParamError struct {
	Param string
	Value string
	Want  string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("parameter %q: %q is not %s", e.Param, e.Value, e.Want)
}

// paramParser collects the first parse failure so handlers check once.
type paramParser struct {
	r   *http.Request
	err *ParamError
}

func newParamParser(r *http.Request) *paramParser {
	return &paramParser{r: r}
}

func (p *paramParser) fail(param, value, want string) {
	if p.err == nil {
		p.err = &ParamError{Param: param, Value: value, Want: want}
	}
}

// int64 parses a required decimal id, e.g. a path parameter.
func (p *paramParser) int64(param, value string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		p.fail(param, value, "an integer id")
		return 0
	}
	return v
}

// int parses an optional integer query parameter.
func (p *paramParser) int(param string, def int) int {
	raw := p.r.URL.Query().Get(param)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(param, raw, "an integer")
		return def
	}
	return v
}

// bool parses an optional boolean query parameter.
func (p *paramParser) bool(param string, def bool) bool {
	raw := p.r.URL.Query().Get(param)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(param, raw, "a boolean")
		return def
	}
	return v
}

// int64List parses a comma-separated id list. Empty entries are skipped.
func (p *paramParser) int64List(param string) []int64 {
	raw := p.r.URL.Query().Get(param)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			p.fail(param, part, "an integer id")
			return nil
		}
		out = append(out, v)
	}
	return out
}
