package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestComponentIsReplacedNotRepeated(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentApp, Writer: &buf, JSON: true})

	l.With(FieldRequestID, "req_1").WithComponent(ComponentHTTP).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v\n%s", err, buf.String())
	}
	if rec[FieldComponent] != ComponentHTTP {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentHTTP)
	}
	if rec[FieldRequestID] != "req_1" {
		t.Errorf("request_id = %v, want req_1", rec[FieldRequestID])
	}
	if n := strings.Count(buf.String(), `"component"`); n != 1 {
		t.Errorf("component appears %d times in %s", n, buf.String())
	}
}

func TestFromContext(t *testing.T) {
	l := NewText(&bytes.Buffer{}, slog.LevelInfo, ComponentSync)
	if got := FromContext(IntoContext(context.Background(), l)); got != l {
		t.Errorf("FromContext() returned a different logger")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q, want unknown", got.Component())
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(NewText(&buf, slog.LevelDebug, ComponentHTTP))
		r := httptest.NewRequest("GET", "/api/rows", nil)
		sl.LogHTTPEnd(context.Background(), r, tt.status, 3, "10.0.0.1")
		if !strings.Contains(buf.String(), "level="+tt.level) {
			t.Errorf("status %d logged as %s", tt.status, buf.String())
		}
	}
}

func TestToSliceIsSorted(t *testing.T) {
	got := NewFields().WithRow("r1", 2).WithOperation("update").ToSlice()
	want := []any{FieldOperation, "update", FieldRowID, "r1", FieldRowVersion, int64(2)}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
