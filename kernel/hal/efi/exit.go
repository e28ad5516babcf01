package efi

import (
	"walnut/kernel"
	"walnut/kernel/kfmt"
	"walnut/kernel/mm"
)

// memoryMapBufferSize is the size of the buffer receiving the memory map.
const memoryMapBufferSize = 16 * 1024

var (
	errExitSequenceOrder = &kernel.Error{Module: "efi", Message: "exit sequence step invoked out of order"}

	// memoryMapBuf receives the firmware memory map. It is not allocated
	// on demand as allocating may itself change the memory map.
	memoryMapBuf [memoryMapBufferSize]byte

	// panicFn is invoked when exiting boot services fails. It is
	// overridden by tests.
	panicFn = kfmt.Panic
)

// StatusError is returned when a firmware service reports a failure.
type StatusError struct {
	Op     string
	Status Status
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return e.Op + " failed: " + e.Status.String()
}

// KernelModule returns the name of the module that generated the error.
func (*StatusError) KernelModule() string {
	return "efi"
}

type exitState uint8

const (
	exitInit exitState = iota
	exitMapCaptured
	exitServicesExited
	exitAborted
)

// String implements fmt.Stringer.
func (s exitState) String() string {
	switch s {
	case exitInit:
		return "init"
	case exitMapCaptured:
		return "map captured"
	case exitServicesExited:
		return "services exited"
	default:
		return "aborted"
	}
}

// exitSequence captures the memory map and exits boot services with the
// key of that map. Any firmware call between the two steps, console output
// included, may change the map and invalidate the key, so kfmt output is
// buffered from capture until the sequence ends.
type exitSequence struct {
	state  exitState
	st     *SystemTable
	image  Handle
	mmap   MemoryMap
	usable mm.RangeSet
}

func (seq *exitSequence) captureMap() error {
	if seq.state != exitInit {
		return errExitSequenceOrder
	}

	m, status := seq.st.BootServices.GetMemoryMap(memoryMapBuf[:])
	if status.IsError() {
		seq.state = exitAborted
		return &StatusError{Op: "GetMemoryMap", Status: status}
	}

	usable, err := m.UsableRanges()
	if err != nil {
		seq.state = exitAborted
		return err
	}

	seq.mmap, seq.usable = m, usable
	seq.state = exitMapCaptured
	return nil
}

func (seq *exitSequence) exit() error {
	if seq.state != exitMapCaptured {
		return errExitSequenceOrder
	}

	if status := seq.st.BootServices.ExitBootServices(seq.image, seq.mmap.Key); status.IsError() {
		seq.state = exitAborted
		return &StatusError{Op: "ExitBootServices", Status: status}
	}

	seq.state = exitServicesExited
	return nil
}

// GetMemoryMap captures the current memory map and returns the memory that
// remains usable after exiting boot services together with the map key.
func GetMemoryMap(st *SystemTable) (mm.RangeSet, uint64, error) {
	seq := exitSequence{st: st}
	if err := seq.captureMap(); err != nil {
		return mm.RangeSet{}, 0, err
	}
	return seq.usable, seq.mmap.Key, nil
}

// ExitBootServices captures the memory map of the registered system table
// and exits boot services using its key. On success the system table is
// unregistered and the usable memory is returned. The kfmt output sink is
// detached while the sequence runs; it stays detached on success since the
// firmware console is gone. A failed exit is unrecoverable and is reported
// through kfmt.Panic.
func ExitBootServices(image Handle) (mm.RangeSet, error) {
	st, kerr := Load()
	if kerr != nil {
		return mm.RangeSet{}, kerr
	}

	sink := kfmt.GetOutputSink()
	kfmt.SetOutputSink(nil)

	seq := exitSequence{st: st, image: image}
	if err := seq.captureMap(); err != nil {
		kfmt.SetOutputSink(sink)
		return mm.RangeSet{}, err
	}

	if err := seq.exit(); err != nil {
		kfmt.SetOutputSink(sink)
		panicFn(err)
		return mm.RangeSet{}, err
	}

	Destroy()
	return seq.usable, nil
}
