package efi

import (
	"unicode/utf16"
	"unicode/utf8"
)

// ConsoleWriter is an io.Writer that prints to the firmware console. Text is
// converted to UTF-16 and line feeds are expanded to CR LF. It must not be
// used after exiting boot services.
type ConsoleWriter struct {
	Out TextOutput

	buf [128]uint16
	n   int
}

// Write implements io.Writer.
func (w *ConsoleWriter) Write(p []byte) (int, error) {
	for i := 0; i < len(p); {
		r, size := utf8.DecodeRune(p[i:])
		i += size

		// Room for a surrogate pair or CR LF plus the terminating NUL.
		if w.n+3 > len(w.buf) {
			if err := w.flush(); err != nil {
				return 0, err
			}
		}

		switch {
		case r == '\n':
			w.buf[w.n], w.buf[w.n+1] = '\r', '\n'
			w.n += 2
		case r >= 0x10000:
			hi, lo := utf16.EncodeRune(r)
			w.buf[w.n], w.buf[w.n+1] = uint16(hi), uint16(lo)
			w.n += 2
		default:
			w.buf[w.n] = uint16(r)
			w.n++
		}
	}

	if err := w.flush(); err != nil {
		return 0, err
	}

	return len(p), nil
}

func (w *ConsoleWriter) flush() error {
	if w.n == 0 {
		return nil
	}

	w.buf[w.n] = 0
	status := w.Out.OutputString(w.buf[:w.n+1])
	w.n = 0

	if status.IsError() {
		return &StatusError{Op: "OutputString", Status: status}
	}
	return nil
}
