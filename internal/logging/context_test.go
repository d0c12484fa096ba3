// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || TrainingRunFromContext(ctx) != "" {
		t.Fatal("empty context returned ids")
	}

	id := GenerateRequestID()
	if len(id) != 36 {
		t.Errorf("GenerateRequestID() = %q, want uuid", id)
	}
	ctx = ContextWithRequestID(ctx, id)
	ctx = ContextWithTrainingRun(ctx, "run-1")
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("RequestIDFromContext() = %q, want %q", got, id)
	}
	if got := TrainingRunFromContext(ctx); got != "run-1" {
		t.Errorf("TrainingRunFromContext() = %q, want run-1", got)
	}
}

func TestCtx(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-42")
	ctx = ContextWithTrainingRun(ctx, "run-7")

	Ctx(ctx).Info().Msg("served")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"training_run":"run-7"`, `"message":"served"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
