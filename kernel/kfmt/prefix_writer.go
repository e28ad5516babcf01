package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line.
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	// midLine is set while the current line already carries the prefix.
	midLine bool
}

// Write writes len(p) bytes from p to the underlying writer, injecting the
// configured prefix before the first byte of every line. The injected prefix
// is not included in the returned byte count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written, start int

	for i := 0; i < len(p); i++ {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		if p[i] != '\n' {
			continue
		}

		n, err := w.Sink.Write(p[start : i+1])
		written += n
		if err != nil {
			return written, err
		}

		start = i + 1
		w.midLine = false
	}

	if start < len(p) {
		n, err := w.Sink.Write(p[start:])
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}
