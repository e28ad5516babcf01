// Package mm contains the physical memory bookkeeping types shared by the
// boot path and the kernel memory managers.
package mm

import "math"

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a frame number (shift right
	// by PageShift) and vice-versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes. UEFI memory
	// descriptors count pages of this size.
	PageSize = uint64(1 << PageShift)
)

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// Frame describes a physical memory page index.
type Frame uint64

const (
	// InvalidFrame is returned by page allocators when
	// they fail to reserve the requested frame.
	InvalidFrame = Frame(math.MaxUint64)
)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical address of the first byte in this Frame.
func (f Frame) Address() uint64 {
	return uint64(f) << PageShift
}

// FrameFromAddress returns the Frame that contains the given physical address.
// Addresses that are not page-aligned are rounded down.
func FrameFromAddress(physAddr uint64) Frame {
	return Frame(physAddr >> PageShift)
}
