// Package cpu exposes the processor controls that the boot path needs once
// firmware services are gone.
package cpu

var (
	// archHaltFn is installed by platform code that can execute a real
	// halt instruction (e.g. HLT with interrupts masked).
	archHaltFn func()
)

// SetHaltFn registers the architecture-specific halt implementation.
func SetHaltFn(fn func()) {
	archHaltFn = fn
}

// Halt stops instruction execution on the boot processor. Calls to Halt never
// return. If no architecture hook has been registered Halt spins forever.
func Halt() {
	if archHaltFn != nil {
		archHaltFn()
	}

	for {
	}
}
