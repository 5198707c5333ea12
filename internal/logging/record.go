package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DispatchRecord is one dispatch outcome.
type DispatchRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	DispatchID   string    `json:"dispatch_id"`
	TraceID      string    `json:"trace_id,omitempty"`
	Function     string    `json:"function"`
	Server       string    `json:"server,omitempty"`
	Backend      string    `json:"backend,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	ActivationID string    `json:"activation_id,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	Success      bool      `json:"success"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Recorder writes dispatch records: a one-line summary to the console and,
// when a file is set, a JSON line per record.
type Recorder struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
}

// NewRecorder creates a recorder printing summaries to console. A nil
// console disables the summary.
func NewRecorder(console io.Writer) *Recorder {
	return &Recorder{console: console}
}

// SetOutput appends JSON records to the file at path.
func (r *Recorder) SetOutput(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		r.file.Close()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open dispatch log: %w", err)
	}
	r.file = f
	return nil
}

// Record writes entry, stamping its timestamp.
func (r *Recorder) Record(entry *DispatchRecord) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.Timestamp = time.Now()

	if r.console != nil {
		status := "✓"
		if !entry.Success {
			status = "✗"
		}
		fmt.Fprintf(r.console, "[dispatch] %s %s %s via %s %dms\n",
			status, entry.DispatchID, entry.Function, entry.Backend, entry.DurationMs)
		if entry.Error != "" {
			fmt.Fprintf(r.console, "[dispatch]   %s: %s\n", entry.ErrorKind, entry.Error)
		}
	}

	if r.file != nil {
		data, err := json.Marshal(entry)
		if err != nil {
			Op().Warn("marshal dispatch record", "error", err)
			return
		}
		r.file.Write(append(data, '\n'))
	}
}

// Close closes the record file.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
