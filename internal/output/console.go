package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"repofleet/internal/outcome"

	"github.com/fatih/color"
)

var (
	statusOKColor   = color.New(color.FgGreen)
	statusSkipColor = color.New(color.FgYellow)
	statusFailColor = color.New(color.FgRed)
)

func colorStatus(s outcome.Status) string {
	switch s {
	case outcome.StatusOK:
		return statusOKColor.Sprint(string(s))
	case outcome.StatusSkipped:
		return statusSkipColor.Sprint(string(s))
	case outcome.StatusFailed:
		return statusFailColor.Sprint(string(s))
	default:
		return string(s)
	}
}

type ConsoleSink struct {
	writer   io.Writer
	format   string // "text", "json", "ndjson"
	mu       sync.Mutex
	outcomes []outcome.Outcome // For JSON array output
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	return &ConsoleSink{
		writer: w,
		format: format,
	}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	switch s.format {
	case "json":
		o, ok := v.(outcome.Outcome)
		if !ok {
			// Ignore lifecycle events in JSON console mode.
			return nil
		}
		s.outcomes = append(s.outcomes, o)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case outcome.Outcome:
			e := eventFromOutcome(t)
			if err := encoder.Encode(e); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		switch t := v.(type) {
		case outcome.Outcome:
			if err := s.printOutcome(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case Event:
			// The only event with a human-facing text rendering is the final
			// summary; the per-item lines carry everything else.
			if t.Type == "run.finished" && t.Summary != nil {
				if _, err := fmt.Fprintf(s.writer, "Summary: %s\n", t.Summary); err != nil {
					return err
				}
				return flushIfPossible(s.writer)
			}
			return nil
		default:
			return nil
		}
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

// printOutcome renders one status line:
//
//	[OK] name
//	[SKIP] name - already exists
//	[FAIL] name - clone error: <detail>
func (s *ConsoleSink) printOutcome(o outcome.Outcome) error {
	if _, err := fmt.Fprintf(s.writer, "[%s] %s", colorStatus(o.Status), o.Name); err != nil {
		return err
	}
	switch {
	case o.Reason != "" && o.Detail != "":
		if _, err := fmt.Fprintf(s.writer, " - %s: %s", o.Reason, o.Detail); err != nil {
			return err
		}
	case o.Reason != "":
		if _, err := fmt.Fprintf(s.writer, " - %s", o.Reason); err != nil {
			return err
		}
	case o.Detail != "":
		if _, err := fmt.Fprintf(s.writer, " (%s)", o.Detail); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(s.writer)
	return err
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.outcomes); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}
