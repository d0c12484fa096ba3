// alsrec - Implicit-Feedback Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alsrec

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.Level != "info" {
		t.Errorf("Level = %q, want info", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if !cfg.Timestamp {
		t.Error("Timestamp = false, want true")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	defer SetLogger(prev)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	Init(Config{Level: "warn", Format: "json", Output: &buf})
	Info().Msg("dropped")
	Warn().Str("component", "test").Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info entry written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"kept"`) || !strings.Contains(out, `"component":"test"`) {
		t.Errorf("warn entry missing fields: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  zerolog.Level
		valid bool
	}{
		{"trace", zerolog.TraceLevel, true},
		{"DEBUG", zerolog.DebugLevel, true},
		{" info ", zerolog.InfoLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"error", zerolog.ErrorLevel, true},
		{"off", zerolog.Disabled, true},
		{"verbose", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if got := ValidLevel(tt.input); got != tt.valid {
			t.Errorf("ValidLevel(%q) = %v, want %v", tt.input, got, tt.valid)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	defer SetLogger(prev)

	SetLogger(NewTestLogger(&buf))
	l := WithComponent("trainer")
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"component":"trainer"`) {
		t.Errorf("component field missing: %s", buf.String())
	}
}
