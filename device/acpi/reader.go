package acpi

import (
	"walnut/device/acpi/table"
	"walnut/kernel/mm/phys"
)

// Header describes a validated ACPI table.
type Header struct {
	table.SDTHeader

	// Type is derived from the header signature.
	Type table.TableType

	// Addr is the physical address of the table header.
	Addr phys.Addr

	// PayloadAddr and PayloadLen describe the table contents that follow
	// the header.
	PayloadAddr phys.Addr
	PayloadLen  uint64
}

// Name returns the table signature as a string.
func (h *Header) Name() string {
	return string(h.SDTHeader.Signature[:])
}

// ReadHeader decodes the table header at addr, verifies the checksum over
// the full table length and returns the location of the table payload.
func ReadHeader(mem phys.Memory, addr phys.Addr) (Header, error) {
	var hdr table.SDTHeader
	if err := phys.Read(mem, addr, &hdr); err != nil {
		return Header{}, err
	}

	typ := table.TypeOf(hdr.Signature)
	if err := verifyChecksum(mem, addr, uint64(hdr.Length), typ); err != nil {
		if acpiErr, ok := err.(*Error); ok {
			acpiErr.Signature = hdr.Signature
		}
		return Header{}, err
	}

	if hdr.Length < table.SizeofSDTHeader {
		return Header{}, &Error{Kind: LengthMismatch, Table: typ, Signature: hdr.Signature}
	}

	payloadAddr, ok := addr.Add(table.SizeofSDTHeader)
	if !ok {
		return Header{}, &Error{Kind: IntegerOverflow, Table: typ, Signature: hdr.Signature}
	}

	return Header{
		SDTHeader:   hdr,
		Type:        typ,
		Addr:        addr,
		PayloadAddr: payloadAddr,
		PayloadLen:  uint64(hdr.Length) - table.SizeofSDTHeader,
	}, nil
}

// verifyChecksum returns ChecksumMismatch unless the size bytes starting at
// addr sum to zero modulo 256. Bytes are loaded one at a time.
func verifyChecksum(mem phys.Memory, addr phys.Addr, size uint64, typ table.TableType) error {
	if _, ok := addr.Add(size); !ok {
		return errorf(IntegerOverflow, typ)
	}

	var sum uint8
	for end := addr + phys.Addr(size); addr < end; addr++ {
		b, err := phys.ReadUint8(mem, addr)
		if err != nil {
			return err
		}
		sum += b
	}

	if sum != 0 {
		return errorf(ChecksumMismatch, typ)
	}

	return nil
}
