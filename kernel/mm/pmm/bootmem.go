// Package pmm provides the physical frame allocator used while the kernel
// bootstraps itself on top of the memory handed off by firmware.
package pmm

import (
	"io"

	"walnut/kernel"
	"walnut/kernel/kfmt"
	"walnut/kernel/mm"
)

var (
	// ErrBootAllocOutOfMemory is returned when every usable range has been
	// exhausted.
	ErrBootAllocOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Message: "out of memory"}
)

// BootMemAllocator implements a rudimentary physical memory allocator which
// is used to bootstrap the kernel.
//
// The allocator hands out page-aligned frames from the usable ranges that
// were collected when exiting boot services. Allocation starts at the
// largest range and then proceeds through the remaining ranges in address
// order. Allocations are tracked via a counter that contains the next free
// frame in the current range.
//
// It is not possible to free allocated frames. Once the kernel is properly
// initialized, the allocated frames will be handed over to a more advanced
// memory allocator that does support freeing.
type BootMemAllocator struct {
	// allocCount tracks the total number of allocated frames.
	allocCount uint64

	set mm.RangeSet

	// order lists the indices of the ranges in set in allocation order.
	order [mm.MaxRanges]int
	cur   int

	// nextFrame is the next candidate frame in the current range.
	nextFrame mm.Frame
}

// Init sets up the allocator to serve frames out of set. It returns
// ErrBootAllocOutOfMemory if set is empty.
func (alloc *BootMemAllocator) Init(set mm.RangeSet) *kernel.Error {
	*alloc = BootMemAllocator{set: set}

	largest, ok := set.Largest()
	if !ok {
		return ErrBootAllocOutOfMemory
	}

	n := 0
	for i := 0; i < set.Len(); i++ {
		if set.At(i) == largest {
			alloc.order[n] = i
			n++
			break
		}
	}
	for i := 0; i < set.Len(); i++ {
		if set.At(i) != largest {
			alloc.order[n] = i
			n++
		}
	}

	return nil
}

// AllocFrame reserves the next available free frame. It returns
// ErrBootAllocOutOfMemory if no more memory can be allocated.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	for ; alloc.cur < alloc.set.Len(); alloc.cur, alloc.nextFrame = alloc.cur+1, 0 {
		startFrame, endFrame := frameSpan(alloc.set.At(alloc.order[alloc.cur]))
		if alloc.nextFrame < startFrame {
			alloc.nextFrame = startFrame
		}

		if alloc.nextFrame < endFrame {
			frame := alloc.nextFrame
			alloc.nextFrame++
			alloc.allocCount++
			return frame, nil
		}
	}

	return mm.InvalidFrame, ErrBootAllocOutOfMemory
}

// AllocCount returns the number of frames allocated so far.
func (alloc *BootMemAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// frameSpan returns the frames fully contained in r as a half-open
// interval. Range bounds that are not page-aligned are rounded inwards.
func frameSpan(r mm.Range) (mm.Frame, mm.Frame) {
	pageSizeMinus1 := mm.PageSize - 1
	if r.Start > ^uint64(0)-pageSizeMinus1 {
		return 0, 0
	}

	return mm.FrameFromAddress(r.Start + pageSizeMinus1), mm.FrameFromAddress(r.End)
}

// PrintMemoryMap prints out the usable ranges managed by the allocator.
func (alloc *BootMemAllocator) PrintMemoryMap(w io.Writer) {
	kfmt.Fprintf(w, "[boot_mem_alloc] system memory map:\n")
	alloc.set.Visit(func(r mm.Range) bool {
		kfmt.Fprintf(w, "\t[0x%16x - 0x%16x], size: %10d\n", r.Start, r.End, r.Size())
		return true
	})

	kfmt.Fprintf(w, "[boot_mem_alloc] available memory: %dKb\n", uint64(mm.Size(alloc.set.TotalSize())/mm.Kb))
	if largest, ok := alloc.set.Largest(); ok {
		kfmt.Fprintf(w, "[boot_mem_alloc] largest range: 0x%x - 0x%x\n", largest.Start, largest.End)
	}
	kfmt.Fprintf(w, "[boot_mem_alloc] allocated frames: %d\n", alloc.allocCount)
}
