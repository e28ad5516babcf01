package efi

import (
	"encoding/binary"

	"walnut/kernel"
	"walnut/kernel/mm"
)

// MemoryDescriptorVersion is the descriptor version passed to
// SetVirtualAddressMap.
const MemoryDescriptorVersion = 1

var (
	// ErrVirtualAddressOverflow is returned by IDMap when offsetting a
	// descriptor wraps around the address space.
	ErrVirtualAddressOverflow = &kernel.Error{Module: "efi", Message: "virtual address overflows the address space"}

	// vmapBuf holds the encoded descriptors passed to
	// SetVirtualAddressMap.
	vmapBuf [mm.MaxRanges * SizeofMemoryDescriptor]byte
)

// ToDescriptors writes one conventional memory descriptor per range in set
// to out and returns the number of descriptors written. Ranges that do not
// fit in out are dropped.
func ToDescriptors(set *mm.RangeSet, out []MemoryDescriptor) int {
	n := 0
	set.Visit(func(r mm.Range) bool {
		if n == len(out) {
			return false
		}

		size := r.Size()
		pages := size / PageSize
		if size%PageSize != 0 {
			pages++
		}

		out[n] = MemoryDescriptor{
			Type:          ConventionalMemory,
			PhysicalStart: r.Start,
			VirtualStart:  r.Start,
			NumberOfPages: pages,
			Attribute:     MemoryWB,
		}
		n++
		return true
	})

	return n
}

// IDMap sets the virtual start of each descriptor to its physical start plus
// offset. The descriptors are left unchanged if any of them would overflow.
func IDMap(descs []MemoryDescriptor, offset uint64) *kernel.Error {
	for i := range descs {
		if descs[i].PhysicalStart+offset < descs[i].PhysicalStart {
			return ErrVirtualAddressOverflow
		}
	}

	for i := range descs {
		descs[i].VirtualStart = descs[i].PhysicalStart + offset
	}

	return nil
}

// SetVirtualAddressMap describes the ranges in set to firmware, mapped at
// physical address plus offset. It must be called after exiting boot
// services.
func SetVirtualAddressMap(rt RuntimeServices, set *mm.RangeSet, offset uint64) error {
	var descs [mm.MaxRanges]MemoryDescriptor

	n := ToDescriptors(set, descs[:])
	if err := IDMap(descs[:n], offset); err != nil {
		return err
	}

	for i, desc := range descs[:n] {
		b := vmapBuf[i*SizeofMemoryDescriptor:]
		binary.LittleEndian.PutUint32(b[0:], uint32(desc.Type))
		binary.LittleEndian.PutUint32(b[4:], 0)
		binary.LittleEndian.PutUint64(b[8:], desc.PhysicalStart)
		binary.LittleEndian.PutUint64(b[16:], desc.VirtualStart)
		binary.LittleEndian.PutUint64(b[24:], desc.NumberOfPages)
		binary.LittleEndian.PutUint64(b[32:], desc.Attribute)
	}

	status := rt.SetVirtualAddressMap(SizeofMemoryDescriptor, MemoryDescriptorVersion, vmapBuf[:n*SizeofMemoryDescriptor])
	if status.IsError() {
		return &StatusError{Op: "SetVirtualAddressMap", Status: status}
	}

	return nil
}
