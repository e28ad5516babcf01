package kfmt

import (
	"walnut/kernel"
	"walnut/kernel/cpu"

	"github.com/pkg/errors"
)

var (
	// cpuHaltFn is mocked by tests.
	cpuHaltFn = cpu.Halt

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// moduleReporter is implemented by typed errors that carry data and therefore
// cannot be *kernel.Error sentinels but still know which module raised them.
type moduleReporter interface {
	KernelModule() string
}

// Panic outputs the supplied error (if not nil) and halts the CPU. Errors
// annotated with errors.Wrap are reported with their full message and with the
// module of their root cause. Calls to Panic never return.
func Panic(e interface{}) {
	var module, msg string

	switch t := e.(type) {
	case *kernel.Error:
		module, msg = t.Module, t.Message
	case string:
		module, msg = errRuntimePanic.Module, t
	case error:
		module, msg = errRuntimePanic.Module, t.Error()
		switch cause := errors.Cause(t).(type) {
		case *kernel.Error:
			module = cause.Module
		case moduleReporter:
			module = cause.KernelModule()
		}
	}

	Printf("\n-----------------------------------\n")
	if module != "" {
		Printf("[%s] unrecoverable error: %s\n", module, msg)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	cpuHaltFn()
}
