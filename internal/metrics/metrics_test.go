package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := out
	out = &buf
	t.Cleanup(func() { out = orig })
	return &buf
}

func TestRecorderFlushOutput(t *testing.T) {
	buf := captureOutput(t)

	rec := New(Namespace)
	rec.Dimension("Operation", "zip")
	rec.Metric("EncodeMs", 1234.5, UnitMilliseconds)
	rec.Metric("ClipCount", 3, UnitCount)
	rec.Property("sessionId", "abc-123")
	rec.Flush()

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if doc["namespace"] != Namespace {
		t.Errorf("namespace = %v, want %s", doc["namespace"], Namespace)
	}
	if _, ok := doc["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
	if doc["Operation"] != "zip" {
		t.Errorf("Operation = %v", doc["Operation"])
	}
	if doc["EncodeMs"] != 1234.5 {
		t.Errorf("EncodeMs = %v", doc["EncodeMs"])
	}
	if doc["ClipCount"] != float64(3) {
		t.Errorf("ClipCount = %v", doc["ClipCount"])
	}
	if doc["sessionId"] != "abc-123" {
		t.Errorf("sessionId = %v", doc["sessionId"])
	}

	defs, ok := doc["metrics"].([]interface{})
	if !ok || len(defs) != 2 {
		t.Fatalf("metrics = %v, want 2 definitions", doc["metrics"])
	}
}

func TestRecorderFlushEmpty(t *testing.T) {
	buf := captureOutput(t)

	New(Namespace).Flush() // No metrics — should produce no output

	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorderCount(t *testing.T) {
	rec := New(Namespace)
	rec.Count("Errors")

	if v, ok := rec.values["Errors"]; !ok || v != float64(1) {
		t.Errorf("expected Errors=1, got %v", v)
	}
	if m, ok := rec.metrics["Errors"]; !ok || m.Unit != UnitCount {
		t.Errorf("expected unit Count, got %v", m.Unit)
	}
}

func TestRecorderChaining(t *testing.T) {
	rec := New(Namespace).
		Dimension("Op", "single").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "single" {
		t.Error("chaining Dimension failed")
	}
	if rec.values["Duration"] != float64(100) {
		t.Error("chaining Metric failed")
	}
	if rec.values["Calls"] != float64(1) {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}
