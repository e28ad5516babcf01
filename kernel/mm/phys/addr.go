// Package phys provides read access to physical memory and a bounds-checked
// cursor for decoding firmware structures stored in it.
package phys

import "math/bits"

// Addr is a physical memory address.
type Addr uint64

// Add returns a+n. The second return value is false if the sum does not fit
// in the physical address space.
func (a Addr) Add(n uint64) (Addr, bool) {
	sum, carry := bits.Add64(uint64(a), n, 0)
	return Addr(sum), carry == 0
}
