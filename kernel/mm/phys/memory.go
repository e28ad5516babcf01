package phys

import (
	"bytes"
	"encoding/binary"

	"walnut/kernel"
)

var (
	// ErrUnmapped is returned when a read touches physical memory that
	// the Memory implementation cannot access.
	ErrUnmapped = &kernel.Error{Module: "phys", Message: "physical range is not backed by memory"}

	// ErrAddrOverflow is returned when a physical range wraps around the
	// end of the address space.
	ErrAddrOverflow = &kernel.Error{Module: "phys", Message: "physical range wraps around the address space"}

	errUnsupportedValue = &kernel.Error{Module: "phys", Message: "value does not have a fixed binary size"}
)

// Memory is implemented by objects that can read physical memory.
//
// ReadPhys fills p with the bytes starting at addr. It either reads len(p)
// bytes or returns an error. Implementations must not assume any alignment
// for addr.
type Memory interface {
	ReadPhys(addr Addr, p []byte) error
}

// ReadUint8 reads a byte from physical memory.
func ReadUint8(mem Memory, addr Addr) (uint8, error) {
	var buf [1]byte
	if err := mem.ReadPhys(addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a little-endian uint16 from physical memory.
func ReadUint16(mem Memory, addr Addr) (uint16, error) {
	var buf [2]byte
	if err := mem.ReadPhys(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// ReadUint32 reads a little-endian uint32 from physical memory.
func ReadUint32(mem Memory, addr Addr) (uint32, error) {
	var buf [4]byte
	if err := mem.ReadPhys(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a little-endian uint64 from physical memory.
func ReadUint64(mem Memory, addr Addr) (uint64, error) {
	var buf [8]byte
	if err := mem.ReadPhys(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Read decodes the little-endian representation of v stored at addr. The
// value must be a pointer to a fixed-size value as accepted by
// encoding/binary.
func Read(mem Memory, addr Addr, v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		return errUnsupportedValue
	}

	buf := make([]byte, size)
	if err := mem.ReadPhys(addr, buf); err != nil {
		return err
	}

	return binary.Read(bytes.NewReader(buf), binary.LittleEndian, v)
}
