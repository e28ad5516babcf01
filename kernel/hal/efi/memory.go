package efi

import (
	"encoding/binary"
	"math/bits"

	"walnut/kernel"
	"walnut/kernel/mm"
)

// MemoryType classifies a memory descriptor.
type MemoryType uint32

// The list of memory types defined by the UEFI specification.
const (
	ReservedMemoryType MemoryType = iota
	LoaderCode
	LoaderData
	BootServicesCode
	BootServicesData
	RuntimeServicesCode
	RuntimeServicesData
	ConventionalMemory
	UnusableMemory
	ACPIReclaimMemory
	ACPIMemoryNVS
	MemoryMappedIO
	MemoryMappedIOPortSpace
	PalCode
	PersistentMemory
	maxMemoryType
)

var memoryTypeNames = [maxMemoryType]string{
	"reserved",
	"loader code",
	"loader data",
	"boot services code",
	"boot services data",
	"runtime services code",
	"runtime services data",
	"conventional",
	"unusable",
	"ACPI (reclaimable)",
	"ACPI NVS",
	"MMIO",
	"MMIO port space",
	"PAL code",
	"persistent",
}

// String implements fmt.Stringer.
func (t MemoryType) String() string {
	if t < maxMemoryType {
		return memoryTypeNames[t]
	}
	return "unknown"
}

// AvailableAfterExit returns true if memory of this type can be used by the
// kernel once boot services have been exited. ACPI reclaimable memory is
// excluded so the ACPI tables stay intact.
func (t MemoryType) AvailableAfterExit() bool {
	switch t {
	case BootServicesCode, BootServicesData, ConventionalMemory, PersistentMemory:
		return true
	default:
		return false
	}
}

// Memory attribute bits.
const (
	MemoryUC      uint64 = 0x1
	MemoryWC      uint64 = 0x2
	MemoryWT      uint64 = 0x4
	MemoryWB      uint64 = 0x8
	MemoryRuntime uint64 = 0x8000000000000000
)

// MemoryDescriptor describes a region of physical memory.
type MemoryDescriptor struct {
	Type          MemoryType
	_             uint32
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// SizeofMemoryDescriptor is the encoded size of MemoryDescriptor. Firmware
// may report a larger descriptor stride.
const SizeofMemoryDescriptor = 40

// Range returns the physical range covered by the descriptor. The second
// return value is false if the range does not fit in the address space.
func (d *MemoryDescriptor) Range() (mm.Range, bool) {
	hi, size := bits.Mul64(d.NumberOfPages, PageSize)
	if hi != 0 {
		return mm.Range{}, false
	}

	end, carry := bits.Add64(d.PhysicalStart, size, 0)
	if carry != 0 {
		return mm.Range{}, false
	}

	return mm.Range{Start: d.PhysicalStart, End: end}, true
}

var (
	// ErrBadDescriptorSize is returned when firmware reports a descriptor
	// stride smaller than a MemoryDescriptor.
	ErrBadDescriptorSize = &kernel.Error{Module: "efi", Message: "memory descriptor size is smaller than the descriptor layout"}

	// ErrBadDescriptor is returned for descriptors whose range wraps
	// around the address space.
	ErrBadDescriptor = &kernel.Error{Module: "efi", Message: "memory descriptor range overflows the address space"}

	// ErrNoValidMemoryArea is returned when the memory map contains no
	// memory usable after exiting boot services.
	ErrNoValidMemoryArea = &kernel.Error{Module: "efi", Message: "no memory area available after exiting boot services"}
)

// MemoryMap is a memory map returned by GetMemoryMap. Descriptors are
// DescriptorSize bytes apart in Buffer.
type MemoryMap struct {
	Buffer            []byte
	Key               uint64
	DescriptorSize    uint64
	DescriptorVersion uint32
}

// Len returns the number of descriptors in the map.
func (m *MemoryMap) Len() int {
	if m.DescriptorSize < SizeofMemoryDescriptor {
		return 0
	}
	return int(uint64(len(m.Buffer)) / m.DescriptorSize)
}

// Descriptor decodes the i-th descriptor. Only the first
// SizeofMemoryDescriptor bytes of each stride are interpreted.
func (m *MemoryMap) Descriptor(i int) MemoryDescriptor {
	b := m.Buffer[uint64(i)*m.DescriptorSize:]
	return MemoryDescriptor{
		Type:          MemoryType(binary.LittleEndian.Uint32(b[0:])),
		PhysicalStart: binary.LittleEndian.Uint64(b[8:]),
		VirtualStart:  binary.LittleEndian.Uint64(b[16:]),
		NumberOfPages: binary.LittleEndian.Uint64(b[24:]),
		Attribute:     binary.LittleEndian.Uint64(b[32:]),
	}
}

// MemRegionVisitor is invoked for each descriptor of a memory map. Returning
// false stops the iteration.
type MemRegionVisitor func(desc *MemoryDescriptor) bool

// VisitMemRegions invokes visitor for each descriptor in the map.
func (m *MemoryMap) VisitMemRegions(visitor MemRegionVisitor) {
	for i, n := 0, m.Len(); i < n; i++ {
		desc := m.Descriptor(i)
		if !visitor(&desc) {
			return
		}
	}
}

// UsableRanges collects the memory that remains usable after exiting boot
// services into a RangeSet.
func (m *MemoryMap) UsableRanges() (mm.RangeSet, error) {
	var (
		set mm.RangeSet
		err error
	)

	if m.DescriptorSize < SizeofMemoryDescriptor {
		return set, ErrBadDescriptorSize
	}

	m.VisitMemRegions(func(desc *MemoryDescriptor) bool {
		if !desc.Type.AvailableAfterExit() {
			return true
		}

		r, ok := desc.Range()
		if !ok {
			err = ErrBadDescriptor
			return false
		}

		if insertErr := set.Insert(r); insertErr != nil {
			err = insertErr
			return false
		}
		return true
	})

	if err != nil {
		return set, err
	}

	if set.Len() == 0 {
		return set, ErrNoValidMemoryArea
	}

	return set, nil
}
