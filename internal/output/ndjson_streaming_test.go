package output

import (
	"bufio"
	"encoding/json"
	"io"
	"testing"
	"time"

	"repofleet/internal/outcome"
)

// flushingWriter wraps a bufio.Writer so the sink's flushIfPossible hook
// pushes each line through immediately, the way a line-buffered pipe would.
type flushingWriter struct {
	w *bufio.Writer
}

func (f *flushingWriter) Write(p []byte) (int, error) { return f.w.Write(p) }
func (f *flushingWriter) Flush() error                { return f.w.Flush() }

func TestEmitSink_NDJSON_LinesVisibleBeforeClose(t *testing.T) {
	pr, pw := io.Pipe()
	defer pr.Close()

	sink, err := NewEmitSink(&flushingWriter{w: bufio.NewWriter(pw)}, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink failed: %v", err)
	}

	lines := make(chan string, 4)
	go func() {
		scanner := bufio.NewScanner(pr)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	readLine := func() string {
		t.Helper()
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before expected line")
			}
			return line
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for ndjson line; write did not flush")
			return ""
		}
	}

	if err := sink.Write(Event{Type: "run.started", Op: outcome.OpFetch, Items: 2}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var started Event
	if err := json.Unmarshal([]byte(readLine()), &started); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if started.Type != "run.started" || started.Items != 2 {
		t.Fatalf("unexpected run.started event: %#v", started)
	}

	if err := sink.Write(outcome.Outcome{Index: 0, Op: outcome.OpFetch, Name: "a", Status: outcome.StatusOK}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var item Event
	if err := json.Unmarshal([]byte(readLine()), &item); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if item.Type != "item.result" || item.Outcome == nil || item.Outcome.Name != "a" {
		t.Fatalf("unexpected item.result event: %#v", item)
	}

	// Close is a no-op for ndjson; both lines were already on the wire.
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	pw.Close()

	if _, ok := <-lines; ok {
		t.Fatalf("unexpected extra line after close")
	}
}
