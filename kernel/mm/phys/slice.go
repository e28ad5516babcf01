package phys

import (
	"encoding/binary"

	"walnut/kernel"
)

// ErrSliceExhausted is returned when a Slice operation needs more bytes than
// the slice has left.
var ErrSliceExhausted = &kernel.Error{Module: "phys", Message: "insufficient bytes remaining in slice"}

// Slice is a cursor over the physical range [Addr(), Addr()+Len()). Reads
// consume bytes from the front of the range. Failed operations leave the
// cursor untouched.
type Slice struct {
	mem  Memory
	addr Addr
	len  uint64
}

// NewSlice returns a Slice covering length bytes starting at addr.
func NewSlice(mem Memory, addr Addr, length uint64) (Slice, error) {
	if _, ok := addr.Add(length); !ok {
		return Slice{}, ErrAddrOverflow
	}

	return Slice{mem: mem, addr: addr, len: length}, nil
}

// Addr returns the address of the next unread byte.
func (s *Slice) Addr() Addr {
	return s.addr
}

// Len returns the number of unread bytes.
func (s *Slice) Len() uint64 {
	return s.len
}

// Empty returns true if all bytes have been consumed.
func (s *Slice) Empty() bool {
	return s.len == 0
}

// Peek decodes v from the front of the slice without advancing it. See Read
// for the values accepted by v.
func (s *Slice) Peek(v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		return errUnsupportedValue
	}

	if uint64(size) > s.len {
		return ErrSliceExhausted
	}

	return Read(s.mem, s.addr, v)
}

// Consume decodes v from the front of the slice and advances past it.
func (s *Slice) Consume(v interface{}) error {
	if err := s.Peek(v); err != nil {
		return err
	}

	// Peek succeeded so binary.Size(v) is non-negative and fits in s.len.
	size := uint64(binary.Size(v))
	s.addr += Addr(size)
	s.len -= size
	return nil
}

// Discard skips n bytes.
func (s *Slice) Discard(n uint64) error {
	if n > s.len {
		return ErrSliceExhausted
	}

	s.addr += Addr(n)
	s.len -= n
	return nil
}
