package mm

import (
	"math"
	"math/bits"

	"walnut/kernel"
)

// MaxRanges is the capacity of a RangeSet. Firmware memory maps seen in
// practice coalesce into a few dozen usable ranges.
const MaxRanges = 256

var (
	// ErrRangeSetFull is returned by Insert when the range would occupy a
	// new slot in a RangeSet that already holds MaxRanges entries.
	ErrRangeSetFull = &kernel.Error{Module: "mm", Message: "range set capacity exceeded"}

	// ErrInvalidRange is returned by Insert for ranges whose start lies
	// past their end.
	ErrInvalidRange = &kernel.Error{Module: "mm", Message: "range start is greater than range end"}
)

// Range describes the half-open physical address interval [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Size returns the number of bytes covered by the range.
func (r Range) Size() uint64 {
	return r.End - r.Start
}

// Empty returns true if the range covers no bytes.
func (r Range) Empty() bool {
	return r.Start >= r.End
}

// Contains returns true if addr falls inside the range.
func (r Range) Contains(addr uint64) bool {
	return r.Start <= addr && addr < r.End
}

// RangeSet is an ordered set of disjoint, non-adjacent ranges backed by a
// fixed-size array so it can be populated before any allocator exists. The
// zero value is an empty set.
//
// Ranges are kept sorted by their start address. Inserting a range that
// overlaps or touches existing entries merges them into a single entry.
type RangeSet struct {
	ranges [MaxRanges]Range
	count  int
}

// Insert adds r to the set, merging it with every entry it overlaps or is
// adjacent to. Empty ranges are ignored. If r does not merge with any entry
// and the set is full, Insert returns ErrRangeSetFull and leaves the set
// unchanged.
func (s *RangeSet) Insert(r Range) *kernel.Error {
	if r.Start > r.End {
		return ErrInvalidRange
	}

	if r.Empty() {
		return nil
	}

	// Entries ending before r.Start neither overlap nor touch r. Since
	// the set is sorted and disjoint, the entries that do form a single
	// run [first, last).
	first := 0
	for first < s.count && s.ranges[first].End < r.Start {
		first++
	}

	last := first
	for ; last < s.count && s.ranges[last].Start <= r.End; last++ {
		if s.ranges[last].Start < r.Start {
			r.Start = s.ranges[last].Start
		}
		if s.ranges[last].End > r.End {
			r.End = s.ranges[last].End
		}
	}

	merged := last - first
	if merged == 0 {
		if s.count == MaxRanges {
			return ErrRangeSetFull
		}

		copy(s.ranges[first+1:s.count+1], s.ranges[first:s.count])
		s.ranges[first] = r
		s.count++
		return nil
	}

	s.ranges[first] = r
	copy(s.ranges[first+1:], s.ranges[last:s.count])
	s.count -= merged - 1
	for i := s.count; i < s.count+merged-1; i++ {
		s.ranges[i] = Range{}
	}

	return nil
}

// Len returns the number of ranges in the set.
func (s *RangeSet) Len() int {
	return s.count
}

// At returns the i-th range in ascending start order.
func (s *RangeSet) At(i int) Range {
	return s.ranges[:s.count][i]
}

// Largest returns the widest range in the set. When several ranges share the
// maximum width, the one with the lowest start address is returned. The
// second return value is false if the set is empty.
func (s *RangeSet) Largest() (Range, bool) {
	if s.count == 0 {
		return Range{}, false
	}

	largest := s.ranges[0]
	for _, r := range s.ranges[1:s.count] {
		if r.Size() > largest.Size() {
			largest = r
		}
	}

	return largest, true
}

// TotalSize returns the sum of the widths of all ranges. The sum saturates at
// math.MaxUint64 instead of wrapping.
func (s *RangeSet) TotalSize() uint64 {
	var total, carry uint64
	for _, r := range s.ranges[:s.count] {
		if total, carry = bits.Add64(total, r.Size(), 0); carry != 0 {
			return math.MaxUint64
		}
	}

	return total
}

// Visit invokes visitor for each range in ascending start order until the
// visitor returns false.
func (s *RangeSet) Visit(visitor func(Range) bool) {
	for _, r := range s.ranges[:s.count] {
		if !visitor(r) {
			return
		}
	}
}

// Ranges returns a copy of the set contents in ascending start order.
func (s *RangeSet) Ranges() []Range {
	return append([]Range(nil), s.ranges[:s.count]...)
}
