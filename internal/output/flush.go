package output

import "io"

type flusher interface {
	Flush() error
}

// flushIfPossible pushes buffered bytes through after every streamed line so
// NDJSON consumers see events as they happen, not on Close.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
