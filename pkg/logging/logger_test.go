package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("line %q is not JSON: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"Warn", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJSONLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, WarnLevel)

	l.Debug("dropped")
	l.Info("dropped")
	l.Warn("kept", Operation("nodend"))
	l.Error("kept too")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Level != "WARN" || lines[0].Message != "kept" {
		t.Errorf("first line = %+v", lines[0])
	}
	if lines[0].Fields["operation"] != "nodend" {
		t.Errorf("operation field = %v", lines[0].Fields["operation"])
	}
	if lines[1].Fields != nil {
		t.Errorf("line without fields should omit them, got %v", lines[1].Fields)
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(RequestID("abc"), Engine("native"))

	child.Info("dispatch", Vertices(4))
	parent.Info("plain")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0].Fields["request_id"] != "abc" || lines[0].Fields["engine"] != "native" {
		t.Errorf("child fields = %v", lines[0].Fields)
	}
	if lines[0].Fields["vertices"] != float64(4) {
		t.Errorf("vertices = %v", lines[0].Fields["vertices"])
	}
	if _, ok := lines[1].Fields["request_id"]; ok {
		t.Error("parent picked up child fields")
	}

	// Level changes reach children.
	parent.SetLevel(ErrorLevel)
	if child.GetLevel() != ErrorLevel {
		t.Errorf("child level = %v, want ERROR", child.GetLevel())
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, DebugLevel)

	timer := StartTimer(l, "partition", Operation("partgraphkway"))
	time.Sleep(time.Millisecond)
	if timer.Elapsed() <= 0 {
		t.Error("Elapsed() should be positive")
	}
	timer.End(EdgeCut(3))
	timer.EndWarn(errors.New("engine returned error"))

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0].Level != "INFO" || lines[0].Fields["edgecut"] != float64(3) {
		t.Errorf("End line = %+v", lines[0])
	}
	if _, ok := lines[0].Fields["latency"]; !ok {
		t.Error("End line has no latency")
	}
	if lines[1].Level != "WARN" || lines[1].Fields["error"] != "engine returned error" {
		t.Errorf("EndWarn line = %+v", lines[1])
	}
}

func TestFieldConstructors(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{Vertices(10), "vertices", 10},
		{Arcs(20), "arcs", 20},
		{Parts(3), "nparts", 3},
		{Seed(-1), "seed", -1},
		{Duration("timeout", 5*time.Second), "timeout", "5s"},
		{Error(nil), "error", nil},
		{Error(errors.New("boom")), "error", "boom"},
		{JobID("j1"), "job_id", "j1"},
	}
	for _, tt := range tests {
		if tt.field.Key != tt.key || tt.field.Value != tt.value {
			t.Errorf("field = %+v, want {%s %v}", tt.field, tt.key, tt.value)
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("ignored")
	if l.With(Operation("x")) == nil {
		t.Error("With() returned nil")
	}
}

func TestOpen(t *testing.T) {
	path := t.TempDir() + "/graphpart.log"
	l, closer, err := Open(path, InfoLevel)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Open(t.TempDir()+"/missing/dir/x.log", InfoLevel); err == nil {
		t.Error("Open() into a missing directory should fail")
	}
}
