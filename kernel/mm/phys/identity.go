package phys

import "unsafe"

// Identity is a Memory that reads physical memory through an identity
// mapping. It is only usable while physical addresses are directly
// addressable, as is the case under UEFI boot services.
type Identity struct{}

// ReadPhys implements Memory.
func (Identity) ReadPhys(addr Addr, p []byte) error {
	if len(p) == 0 {
		return nil
	}

	if _, ok := addr.Add(uint64(len(p))); !ok {
		return ErrAddrOverflow
	}

	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(p))
	copy(p, src)
	return nil
}
