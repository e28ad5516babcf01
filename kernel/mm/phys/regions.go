package phys

// Region is a block of bytes that appears at a physical base address.
type Region struct {
	Base Addr
	Data []byte
}

// End returns the address one past the last byte of the region.
func (r Region) End() Addr {
	return r.Base + Addr(len(r.Data))
}

// Regions is a Memory backed by a sparse set of byte buffers. It serves
// table dumps captured from a running system and fixtures built by tests.
type Regions struct {
	regions []Region
}

// Map places data at base. Regions mapped later take precedence over earlier
// ones that cover the same addresses. Map fails with ErrAddrOverflow if the
// region would wrap around the address space.
func (m *Regions) Map(base Addr, data []byte) error {
	if _, ok := base.Add(uint64(len(data))); !ok {
		return ErrAddrOverflow
	}

	m.regions = append(m.regions, Region{Base: base, Data: data})
	return nil
}

// ReadPhys implements Memory. The requested range must lie within a single
// mapped region.
func (m *Regions) ReadPhys(addr Addr, p []byte) error {
	end, ok := addr.Add(uint64(len(p)))
	if !ok {
		return ErrAddrOverflow
	}

	for i := len(m.regions) - 1; i >= 0; i-- {
		r := m.regions[i]
		if addr >= r.Base && end <= r.End() {
			copy(p, r.Data[addr-r.Base:])
			return nil
		}
	}

	return ErrUnmapped
}
