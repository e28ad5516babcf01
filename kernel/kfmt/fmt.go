package kfmt

import "io"

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	digits = "0123456789abcdef"

	// numBuf is filled right-to-left while formatting integers.
	numBuf [maxBufSize]byte

	// singleByte is a shared buffer for writing single characters.
	singleByte [1]byte

	// earlyPrintBuffer stores Printf output until an output sink is
	// attached.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. If set to
	// nil, output is redirected to earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the early print buffer to it. Passing nil detaches
// the current sink so that subsequent output is buffered again.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently attached output sink or nil if output
// is being buffered.
func GetOutputSink() io.Writer {
	return outputSink
}

// Output returns an io.Writer that sends its output wherever Printf does at
// the time of each write.
func Output() io.Writer {
	return printfWriter{}
}

type printfWriter struct{}

func (printfWriter) Write(p []byte) (int, error) {
	write(outputSink, p)
	return len(p), nil
}

// Printf provides a minimal Printf implementation that can be used before a
// heap is available. It supports the following subset of formatting verbs:
//
//	%s the uninterpreted bytes of a string or byte slice
//	%d base 10
//	%o base 8
//	%x base 16, lower-case
//	%t "true" or "false"
//
// An optional decimal width may precede the verb. Strings and base-10
// integers are left-padded with spaces; base-8 and base-16 integers are
// left-padded with zeroes. Named types are not unwrapped: callers must convert
// them to a built-in type first.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but writes the formatted output to w. A
// nil w sends output to the early print buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var argIndex int

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			writeByte(w, format[i])
			continue
		}

		width := 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			write(w, errNoVerb)
			break
		}

		verb := format[i]
		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 's', 'd', 'o', 'x', 't':
		default:
			write(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			write(w, errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch verb {
		case 's':
			fmtString(w, arg, width)
		case 't':
			fmtBool(w, arg)
		case 'd':
			fmtInt(w, arg, 10, width)
		case 'o':
			fmtInt(w, arg, 8, width)
		case 'x':
			fmtInt(w, arg, 16, width)
		}
	}

	for ; argIndex < len(args); argIndex++ {
		write(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		write(w, errWrongArgType)
	case b:
		write(w, trueValue)
	default:
		write(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		fmtRepeat(w, ' ', width-len(s))
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		fmtRepeat(w, ' ', width-len(s))
		write(w, s)
	default:
		write(w, errWrongArgType)
	}
}

func fmtRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt writes v in the requested base. All built-in integer types are
// supported.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		mag uint64
		neg bool
		sv  int64
	)

	switch n := v.(type) {
	case uint8:
		mag = uint64(n)
	case uint16:
		mag = uint64(n)
	case uint32:
		mag = uint64(n)
	case uint64:
		mag = n
	case uint:
		mag = uint64(n)
	case uintptr:
		mag = uint64(n)
	case int8:
		sv = int64(n)
	case int16:
		sv = int64(n)
	case int32:
		sv = int64(n)
	case int64:
		sv = n
	case int:
		sv = int64(n)
	default:
		write(w, errWrongArgType)
		return
	}

	if sv < 0 {
		neg = true
		mag = ^uint64(sv) + 1
	} else if sv > 0 {
		mag = uint64(sv)
	}

	if width >= maxBufSize {
		width = maxBufSize - 1
	}

	pos := len(numBuf)
	for {
		pos--
		numBuf[pos] = digits[mag%base]
		if mag /= base; mag == 0 {
			break
		}
	}

	if base == 10 {
		if neg {
			pos--
			numBuf[pos] = '-'
		}
		for len(numBuf)-pos < width {
			pos--
			numBuf[pos] = ' '
		}
	} else {
		signLen := 0
		if neg {
			signLen = 1
		}
		for len(numBuf)-pos+signLen < width {
			pos--
			numBuf[pos] = '0'
		}
		if neg {
			pos--
			numBuf[pos] = '-'
		}
	}

	write(w, numBuf[pos:])
}

func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	write(w, singleByte[:])
}

func write(w io.Writer, p []byte) {
	if w != nil {
		w.Write(p)
		return
	}

	earlyPrintBuffer.Write(p)
}
