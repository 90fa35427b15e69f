//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	ctx := WithRunID(WithJobID(WithTraceID(context.Background(), "t1"), 7), "r1")

	With(ctx, &base).Info().Msg("hello")

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("bad log line %q: %v", buf.String(), err)
	}
	if got["trace_id"] != "t1" || got["job_id"] != float64(7) || got["run_id"] != "r1" {
		t.Errorf("missing context fields: %v", got)
	}
	if TraceIDFrom(ctx) != "t1" || TraceIDFrom(context.Background()) != "" {
		t.Error("TraceIDFrom mismatch")
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("sk-1234567890", false); got != "sk-1...90" {
		t.Errorf("wanted sk-1...90, got %s", got)
	}
	if got := Redact("short", false); got != "***" {
		t.Errorf("wanted ***, got %s", got)
	}
	if got := Redact("sk-1234567890", true); got != "sk-1234567890" {
		t.Errorf("wanted the value in dev, got %s", got)
	}
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if len(a) != 26 || a == b {
		t.Errorf("wanted distinct 26 char ids, got %q %q", a, b)
	}
}
