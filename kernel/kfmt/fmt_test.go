package kfmt

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestPrintf(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	// mute vet warnings about malformed printf formatting strings
	printfn := Printf

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("no args") },
			"no args",
		},
		{
			func() { printfn("%t", true) },
			"true",
		},
		{
			func() { printfn("%41t", false) },
			"false",
		},
		{
			func() { printfn("%s arg", "STRING") },
			"STRING arg",
		},
		{
			func() { printfn("%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func() { printfn("'%4s' arg with padding", "ABC") },
			"' ABC' arg with padding",
		},
		{
			func() { printfn("'%4s' arg longer than padding", "ABCDE") },
			"'ABCDE' arg longer than padding",
		},
		{
			func() { printfn("uint arg: %d", uint8(10)) },
			"uint arg: 10",
		},
		{
			func() { printfn("uint arg: %o", uint16(0777)) },
			"uint arg: 777",
		},
		{
			func() { printfn("uint arg: 0x%x", uint32(0xbadf00d)) },
			"uint arg: 0xbadf00d",
		},
		{
			func() { printfn("uint arg with padding: '%10d'", uint64(123)) },
			"uint arg with padding: '       123'",
		},
		{
			func() { printfn("uint arg with padding: '0x%16x'", uint64(0xfee00000)) },
			"uint arg with padding: '0x00000000fee00000'",
		},
		{
			func() { printfn("max uint64: %x", uint64(0xffffffffffffffff)) },
			"max uint64: ffffffffffffffff",
		},
		{
			func() { printfn("zero: %d", 0) },
			"zero: 0",
		},
		{
			func() { printfn("uintptr 0x%x", uintptr(0xb8000)) },
			"uintptr 0xb8000",
		},
		{
			func() { printfn("int arg: %d", int8(-10)) },
			"int arg: -10",
		},
		{
			func() { printfn("int arg: %x", int32(-0xbadf00d)) },
			"int arg: -badf00d",
		},
		{
			func() { printfn("int arg with padding: '%10d'", int64(-12345678)) },
			"int arg with padding: ' -12345678'",
		},
		{
			func() { printfn("int arg with padding: '%10x'", int64(-0xbeef)) },
			"int arg with padding: '-00000beef'",
		},
		{
			func() { printfn("min int64: %d", int64(-9223372036854775808)) },
			"min int64: -9223372036854775808",
		},
		{
			func() { printfn("padding longer than maxBufSize '%128x'", uint32(0xbadf00d)) },
			fmt.Sprintf("padding longer than maxBufSize '%sbadf00d'", strings.Repeat("0", maxBufSize-1-7)),
		},
		{
			func() { printfn("%%%s%d%t", "foo", 123, true) },
			`%foo123true`,
		},
		{
			func() { printfn("more args", "foo", "bar", "baz") },
			`more args%!(EXTRA)%!(EXTRA)%!(EXTRA)`,
		},
		{
			func() { printfn("missing args %s") },
			`missing args (MISSING)`,
		},
		{
			func() { printfn("bad verb %Q") },
			`bad verb %!(NOVERB)`,
		},
		{
			func() { printfn("trailing %") },
			`trailing %!(NOVERB)`,
		},
		{
			func() { printfn("not bool %t", "foo") },
			`not bool %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not int %d", "foo") },
			`not int %!(WRONGTYPE)`,
		},
		{
			func() { printfn("not string %s", 123) },
			`not string %!(WRONGTYPE)`,
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected to get\n%q\ngot:\n%q", specIndex, spec.expOutput, got)
		}
	}
}

func TestPrintfToRingBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	outputSink = nil
	io.Copy(io.Discard, &earlyPrintBuffer)

	exp := "hello world"
	Printf(exp)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}

	if got := GetOutputSink(); got != &buf {
		t.Fatal("expected GetOutputSink to return the attached sink")
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer

	exp := "hello world"
	Fprintf(&buf, exp)

	if got := buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}

func TestOutput(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	outputSink = nil
	io.Copy(io.Discard, &earlyPrintBuffer)

	w := Output()
	if n, err := w.Write([]byte("buffered ")); n != 9 || err != nil {
		t.Fatalf("expected Write to return (9, nil); got (%d, %v)", n, err)
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)
	w.Write([]byte("direct"))

	if exp, got := "buffered direct", buf.String(); got != exp {
		t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
	}
}
