package phys

import (
	"math"
	"runtime"
	"testing"
	"unsafe"
)

func TestAddrAdd(t *testing.T) {
	specs := []struct {
		addr  Addr
		n     uint64
		exp   Addr
		expOK bool
	}{
		{0, 0, 0, true},
		{0x1000, 0x24, 0x1024, true},
		{math.MaxUint64 - 1, 1, math.MaxUint64, true},
		{math.MaxUint64, 1, 0, false},
		{math.MaxUint64 - 35, 36, 0, false},
	}

	for specIndex, spec := range specs {
		got, ok := spec.addr.Add(spec.n)
		if ok != spec.expOK {
			t.Errorf("[spec %d] expected ok to be %t; got %t", specIndex, spec.expOK, ok)
			continue
		}

		if ok && got != spec.exp {
			t.Errorf("[spec %d] expected sum 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}
}

func TestRegions(t *testing.T) {
	var mem Regions
	if err := mem.Map(0x1000, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatal(err)
	}
	if err := mem.Map(0x2000, []byte{0xaa, 0xbb}); err != nil {
		t.Fatal(err)
	}

	t.Run("read inside region", func(t *testing.T) {
		v, err := ReadUint32(&mem, 0x1003)
		if err != nil {
			t.Fatal(err)
		}

		if exp := uint32(0x07060504); v != exp {
			t.Fatalf("expected unaligned read to return 0x%x; got 0x%x", exp, v)
		}
	})

	t.Run("read past region end", func(t *testing.T) {
		if _, err := ReadUint32(&mem, 0x1006); err != ErrUnmapped {
			t.Fatalf("expected ErrUnmapped; got %v", err)
		}
	})

	t.Run("read unmapped address", func(t *testing.T) {
		if _, err := ReadUint8(&mem, 0x3000); err != ErrUnmapped {
			t.Fatalf("expected ErrUnmapped; got %v", err)
		}
	})

	t.Run("later mapping wins", func(t *testing.T) {
		if err := mem.Map(0x2001, []byte{0xcc}); err != nil {
			t.Fatal(err)
		}

		v, err := ReadUint8(&mem, 0x2001)
		if err != nil {
			t.Fatal(err)
		}
		if v != 0xcc {
			t.Fatalf("expected 0xcc; got 0x%x", v)
		}
	})

	t.Run("wrapping region", func(t *testing.T) {
		if err := mem.Map(math.MaxUint64-1, make([]byte, 4)); err != ErrAddrOverflow {
			t.Fatalf("expected ErrAddrOverflow; got %v", err)
		}
	})
}

func TestReadHelpers(t *testing.T) {
	var mem Regions
	mem.Map(0, []byte{0xef, 0xbe, 0xad, 0xde, 0x78, 0x56, 0x34, 0x12})

	if v, err := ReadUint16(&mem, 0); err != nil || v != 0xbeef {
		t.Errorf("expected ReadUint16 to return 0xbeef; got 0x%x, %v", v, err)
	}

	if v, err := ReadUint64(&mem, 0); err != nil || v != 0x12345678deadbeef {
		t.Errorf("expected ReadUint64 to return 0x12345678deadbeef; got 0x%x, %v", v, err)
	}

	var pair struct {
		Lo uint32
		Hi uint32
	}
	if err := Read(&mem, 0, &pair); err != nil {
		t.Fatal(err)
	}
	if pair.Lo != 0xdeadbeef || pair.Hi != 0x12345678 {
		t.Errorf("expected Read to decode {0xdeadbeef 0x12345678}; got %+v", pair)
	}

	var notFixed []int
	if err := Read(&mem, 0, &notFixed); err != errUnsupportedValue {
		t.Errorf("expected errUnsupportedValue; got %v", err)
	}
}

func TestIdentity(t *testing.T) {
	src := []byte{0x11, 0x22, 0x33, 0x44}
	addr := Addr(uintptr(unsafe.Pointer(&src[0])))

	v, err := ReadUint32(Identity{}, addr)
	runtime.KeepAlive(src)
	if err != nil {
		t.Fatal(err)
	}

	if exp := uint32(0x44332211); v != exp {
		t.Fatalf("expected 0x%x; got 0x%x", exp, v)
	}

	if err = (Identity{}).ReadPhys(math.MaxUint64, make([]byte, 2)); err != ErrAddrOverflow {
		t.Fatalf("expected ErrAddrOverflow; got %v", err)
	}
}

func TestSlice(t *testing.T) {
	var mem Regions
	mem.Map(0x100, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})

	s, err := NewSlice(&mem, 0x100, 6)
	if err != nil {
		t.Fatal(err)
	}

	var u16 uint16
	if err = s.Peek(&u16); err != nil {
		t.Fatal(err)
	}
	if u16 != 0x0201 || s.Len() != 6 {
		t.Fatalf("expected Peek to read 0x0201 without advancing; got 0x%x, len %d", u16, s.Len())
	}

	var u32 uint32
	if err = s.Consume(&u32); err != nil {
		t.Fatal(err)
	}
	if u32 != 0x04030201 {
		t.Fatalf("expected Consume to read 0x04030201; got 0x%x", u32)
	}
	if exp := Addr(0x104); s.Addr() != exp || s.Len() != 2 {
		t.Fatalf("expected cursor at 0x%x with 2 bytes left; got 0x%x with %d", exp, s.Addr(), s.Len())
	}

	t.Run("consume exhausted", func(t *testing.T) {
		cur := s
		if err := cur.Consume(&u32); err != ErrSliceExhausted {
			t.Fatalf("expected ErrSliceExhausted; got %v", err)
		}
		if cur != s {
			t.Fatal("expected failed Consume to leave the cursor untouched")
		}
	})

	t.Run("discard exhausted", func(t *testing.T) {
		cur := s
		if err := cur.Discard(3); err != ErrSliceExhausted {
			t.Fatalf("expected ErrSliceExhausted; got %v", err)
		}
		if cur != s {
			t.Fatal("expected failed Discard to leave the cursor untouched")
		}
	})

	if err = s.Discard(2); err != nil {
		t.Fatal(err)
	}
	if !s.Empty() {
		t.Fatalf("expected slice to be empty; %d bytes left", s.Len())
	}
}

func TestSliceReadError(t *testing.T) {
	var mem Regions
	mem.Map(0x100, []byte{0x01, 0x02})

	// The slice claims more bytes than the backing memory provides.
	s, err := NewSlice(&mem, 0x100, 8)
	if err != nil {
		t.Fatal(err)
	}

	var u32 uint32
	if err = s.Consume(&u32); err != ErrUnmapped {
		t.Fatalf("expected ErrUnmapped; got %v", err)
	}
	if s.Len() != 8 || s.Addr() != 0x100 {
		t.Fatal("expected failed Consume to leave the cursor untouched")
	}
}

func TestNewSliceOverflow(t *testing.T) {
	if _, err := NewSlice(&Regions{}, math.MaxUint64-3, 8); err != ErrAddrOverflow {
		t.Fatalf("expected ErrAddrOverflow; got %v", err)
	}
}
