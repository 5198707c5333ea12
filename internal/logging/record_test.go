package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecorder_ConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	r := NewRecorder(&console)
	path := filepath.Join(t.TempDir(), "dispatch.log")
	if err := r.SetOutput(path); err != nil {
		t.Fatalf("SetOutput: %v", err)
	}

	r.Record(&DispatchRecord{DispatchID: "d1", Function: "f1", Backend: "GitHubActions", Success: true, StatusCode: 204})
	r.Record(&DispatchRecord{DispatchID: "d2", Function: "f2", Backend: "OpenWhisk", ErrorKind: "trigger_failed", Error: "status 500"})
	r.Close()

	out := console.String()
	if !strings.Contains(out, "✓ d1 f1 via GitHubActions") {
		t.Fatalf("missing success summary in %q", out)
	}
	if !strings.Contains(out, "trigger_failed: status 500") {
		t.Fatalf("missing error line in %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	var rec DispatchRecord
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.DispatchID != "d1" || rec.StatusCode != 204 || rec.Timestamp.IsZero() {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.Record(&DispatchRecord{})
	r.Close()
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "json", "debug")
	defer InitStructured("text", "info")

	Op().Debug("hello", "k", "v")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Fatalf("expected JSON log line, got %q", buf.String())
	}
}
