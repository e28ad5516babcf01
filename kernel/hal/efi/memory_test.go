package efi

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"

	"walnut/kernel/mm"
)

// encodeMemoryMap lays out descs with the given stride, filling the bytes
// past each descriptor with a marker that must never be decoded.
func encodeMemoryMap(stride int, descs ...MemoryDescriptor) []byte {
	buf := make([]byte, stride*len(descs))
	for i := range buf {
		buf[i] = 0xa5
	}

	for i, desc := range descs {
		b := buf[i*stride:]
		binary.LittleEndian.PutUint32(b[0:], uint32(desc.Type))
		binary.LittleEndian.PutUint32(b[4:], 0)
		binary.LittleEndian.PutUint64(b[8:], desc.PhysicalStart)
		binary.LittleEndian.PutUint64(b[16:], desc.VirtualStart)
		binary.LittleEndian.PutUint64(b[24:], desc.NumberOfPages)
		binary.LittleEndian.PutUint64(b[32:], desc.Attribute)
	}

	return buf
}

func desc(typ MemoryType, start, end uint64) MemoryDescriptor {
	return MemoryDescriptor{Type: typ, PhysicalStart: start, NumberOfPages: (end - start) / PageSize}
}

var handoffDescriptors = []MemoryDescriptor{
	desc(LoaderCode, 0, 0x1000),
	desc(ConventionalMemory, 0x1000, 0x100000),
	desc(ConventionalMemory, 0x100000, 0x200000),
	desc(MemoryMappedIO, 0x200000, 0x201000),
}

func TestUsableRanges(t *testing.T) {
	for _, stride := range []int{SizeofMemoryDescriptor, 48, 64} {
		m := MemoryMap{
			Buffer:         encodeMemoryMap(stride, handoffDescriptors...),
			DescriptorSize: uint64(stride),
		}

		if got := m.Len(); got != len(handoffDescriptors) {
			t.Fatalf("[stride %d] expected %d descriptors; got %d", stride, len(handoffDescriptors), got)
		}

		set, err := m.UsableRanges()
		if err != nil {
			t.Fatalf("[stride %d] unexpected error: %v", stride, err)
		}

		if exp := []mm.Range{{Start: 0x1000, End: 0x200000}}; !reflect.DeepEqual(set.Ranges(), exp) {
			t.Fatalf("[stride %d] expected ranges %v; got %v", stride, exp, set.Ranges())
		}

		if exp, got := uint64(0x1ff000), set.TotalSize(); got != exp {
			t.Fatalf("[stride %d] expected total size 0x%x; got 0x%x", stride, exp, got)
		}
	}
}

func TestUsableRangesTypes(t *testing.T) {
	var descs []MemoryDescriptor
	for typ := ReservedMemoryType; typ < maxMemoryType; typ++ {
		start := uint64(typ) * 0x10000
		descs = append(descs, desc(typ, start, start+0x1000))
	}

	m := MemoryMap{
		Buffer:         encodeMemoryMap(SizeofMemoryDescriptor, descs...),
		DescriptorSize: SizeofMemoryDescriptor,
	}

	set, err := m.UsableRanges()
	if err != nil {
		t.Fatal(err)
	}

	exp := []mm.Range{
		{Start: 0x30000, End: 0x31000},
		{Start: 0x40000, End: 0x41000},
		{Start: 0x70000, End: 0x71000},
		{Start: 0xe0000, End: 0xe1000},
	}
	if !reflect.DeepEqual(set.Ranges(), exp) {
		t.Fatalf("expected ranges %v; got %v", exp, set.Ranges())
	}
}

func TestUsableRangesErrors(t *testing.T) {
	specs := []struct {
		descr  string
		m      MemoryMap
		expErr error
	}{
		{
			"descriptor size too small",
			MemoryMap{Buffer: make([]byte, 64), DescriptorSize: 32},
			ErrBadDescriptorSize,
		},
		{
			"no usable memory",
			MemoryMap{Buffer: encodeMemoryMap(SizeofMemoryDescriptor, desc(MemoryMappedIO, 0, 0x1000)), DescriptorSize: SizeofMemoryDescriptor},
			ErrNoValidMemoryArea,
		},
		{
			"empty map",
			MemoryMap{DescriptorSize: SizeofMemoryDescriptor},
			ErrNoValidMemoryArea,
		},
		{
			"descriptor wraps address space",
			MemoryMap{
				Buffer: encodeMemoryMap(SizeofMemoryDescriptor, MemoryDescriptor{
					Type:          ConventionalMemory,
					PhysicalStart: math.MaxUint64 - PageSize + 1,
					NumberOfPages: 2,
				}),
				DescriptorSize: SizeofMemoryDescriptor,
			},
			ErrBadDescriptor,
		},
		{
			"page count overflows",
			MemoryMap{
				Buffer: encodeMemoryMap(SizeofMemoryDescriptor, MemoryDescriptor{
					Type:          ConventionalMemory,
					NumberOfPages: math.MaxUint64 / 2,
				}),
				DescriptorSize: SizeofMemoryDescriptor,
			},
			ErrBadDescriptor,
		},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			if _, err := spec.m.UsableRanges(); err != spec.expErr {
				t.Fatalf("expected error %v; got %v", spec.expErr, err)
			}
		})
	}
}

func TestUsableRangesOverflowsSet(t *testing.T) {
	var descs []MemoryDescriptor
	for i := uint64(0); i <= mm.MaxRanges; i++ {
		descs = append(descs, desc(ConventionalMemory, i*0x2000, i*0x2000+0x1000))
	}

	m := MemoryMap{
		Buffer:         encodeMemoryMap(SizeofMemoryDescriptor, descs...),
		DescriptorSize: SizeofMemoryDescriptor,
	}

	if _, err := m.UsableRanges(); err != mm.ErrRangeSetFull {
		t.Fatalf("expected ErrRangeSetFull; got %v", err)
	}
}

func TestVisitMemRegions(t *testing.T) {
	m := MemoryMap{
		Buffer:         encodeMemoryMap(48, handoffDescriptors...),
		DescriptorSize: 48,
	}

	var visited []MemoryType
	m.VisitMemRegions(func(d *MemoryDescriptor) bool {
		visited = append(visited, d.Type)
		return d.Type != ConventionalMemory
	})

	if exp := []MemoryType{LoaderCode, ConventionalMemory}; !reflect.DeepEqual(visited, exp) {
		t.Fatalf("expected to visit %v; got %v", exp, visited)
	}
}
