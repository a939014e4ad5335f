package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"repofleet/internal/outcome"
)

func TestConsoleSink_TextStatusLines(t *testing.T) {
	tests := []struct {
		name  string
		input outcome.Outcome
		want  string
	}{
		{
			name:  "ok without detail",
			input: outcome.Outcome{Name: "widget", Status: outcome.StatusOK, Op: outcome.OpFetch},
			want:  "[OK] widget\n",
		},
		{
			name:  "ok with detail note",
			input: outcome.Outcome{Name: "widget", Status: outcome.StatusOK, Op: outcome.OpChangelog, Detail: "12 lines"},
			want:  "[OK] widget (12 lines)\n",
		},
		{
			name:  "skip with reason",
			input: outcome.Outcome{Name: "widget", Status: outcome.StatusSkipped, Reason: outcome.ReasonAlreadyExists},
			want:  "[SKIP] widget - already exists\n",
		},
		{
			name:  "fail with reason and detail",
			input: outcome.Outcome{Name: "widget", Status: outcome.StatusFailed, Reason: outcome.ReasonCloneError, Detail: "git clone: exit status 128"},
			want:  "[FAIL] widget - clone error: git clone: exit status 128\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, "text")

			if err := sink.Write(tt.input); err != nil {
				t.Fatalf("Write error: %v", err)
			}
			// Color codes are disabled off-tty, so the output is comparable
			// as plain text.
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsoleSink_TextSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text")

	s := outcome.Summary{Total: 3, Succeeded: 2, Failed: 1}
	if err := sink.Write(Event{Type: "run.finished", Op: outcome.OpFetch, Summary: &s, ExitCode: 1}); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	want := "Summary: 2 succeeded, 0 skipped, 1 failed (3 total)\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestConsoleSink_TextIgnoresOtherEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text")

	if err := sink.Write(Event{Type: "run.started", Op: outcome.OpFetch, Items: 5}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if buf.Len() > 0 {
		t.Errorf("expected no output for run.started in text mode, got: %q", buf.String())
	}
}

func TestConsoleSink_JSONAggregatesUntilClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "json")

	outcomes := []outcome.Outcome{
		{Index: 0, Op: outcome.OpFetch, Name: "a", Status: outcome.StatusOK},
		{Index: 1, Op: outcome.OpFetch, Name: "b", Status: outcome.StatusFailed, Reason: outcome.ReasonCloneError},
	}
	for _, o := range outcomes {
		if err := sink.Write(o); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	// Lifecycle events are ignored in JSON aggregate mode.
	if err := sink.Write(Event{Type: "run.finished"}); err != nil {
		t.Fatalf("Write event error: %v", err)
	}

	if buf.Len() > 0 {
		t.Fatalf("expected no output before Close, got: %q", buf.String())
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	var decoded []outcome.Outcome
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v; got: %s", err, buf.String())
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d outcomes, want 2", len(decoded))
	}
	if decoded[1].Reason != outcome.ReasonCloneError {
		t.Errorf("decoded[1].Reason = %q, want %q", decoded[1].Reason, outcome.ReasonCloneError)
	}
}

func TestConsoleSink_NDJSONStreamsEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson")

	if err := sink.Write(Event{Type: "run.started", Op: outcome.OpFetch, Items: 1}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := sink.Write(outcome.Outcome{Index: 0, Op: outcome.OpFetch, Name: "a", Status: outcome.StatusOK}); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"type":"run.started"`) {
		t.Errorf("line 0 missing run.started: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"type":"item.result"`) || !strings.Contains(lines[1], `"status":"OK"`) {
		t.Errorf("line 1 missing item.result: %s", lines[1])
	}
}

func TestConsoleSink_UnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "xml")
	if err := sink.Write(outcome.Outcome{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
