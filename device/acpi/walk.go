package acpi

import (
	"github.com/pkg/errors"

	"walnut/device/acpi/table"
	"walnut/kernel/mm/phys"
)

// Options controls how Walk reacts to malformed tables.
type Options struct {
	// Lenient makes Walk skip XSDT entries whose table fails checksum or
	// length validation instead of aborting. Skipped tables are listed in
	// Tables.Skipped.
	Lenient bool
}

// SkippedTable records an XSDT entry ignored by a lenient walk.
type SkippedTable struct {
	Addr phys.Addr
	Err  error
}

// Tables is the result of a successful walk.
type Tables struct {
	RSDPAddr phys.Addr
	RSDP     table.ExtRSDPDescriptor
	XSDT     Header

	// Headers lists the validated tables reachable from the XSDT in
	// entry order. The DSDT, which is referenced by the FADT, follows
	// the FADT.
	Headers []Header

	Skipped []SkippedTable

	// Topology is only valid when HasTopology is set.
	Topology    Topology
	HasTopology bool
}

// Walk validates the RSDP at rsdpAddr, then every table referenced by the
// XSDT, decoding the MADT into a Topology. Unless opts.Lenient is set, the
// first error aborts the walk.
func Walk(mem phys.Memory, rsdpAddr phys.Addr, opts Options) (*Tables, error) {
	rsdp, err := ReadRSDP(mem, rsdpAddr)
	if err != nil {
		return nil, err
	}

	xsdt, err := ReadHeader(mem, phys.Addr(rsdp.XSDTAddr))
	if err != nil {
		return nil, err
	}

	if xsdt.Type != table.TableXSDT {
		return nil, &Error{Kind: TableTypeMismatch, Table: table.TableXSDT, Found: xsdt.Type, Signature: xsdt.Signature}
	}

	if xsdt.PayloadLen%table.SizeofXSDTEntry != 0 {
		return nil, errorf(XSDTBadEntries, table.TableXSDT)
	}

	tables := &Tables{
		RSDPAddr: rsdpAddr,
		RSDP:     rsdp,
		XSDT:     xsdt,
	}

	for offset := uint64(0); offset < xsdt.PayloadLen; offset += table.SizeofXSDTEntry {
		entryAddr, ok := xsdt.PayloadAddr.Add(offset)
		if !ok {
			return nil, errorf(IntegerOverflow, table.TableXSDT)
		}

		tableAddr, err := phys.ReadUint64(mem, entryAddr)
		if err != nil {
			return nil, err
		}

		if err = tables.visit(mem, phys.Addr(tableAddr)); err != nil {
			if !opts.Lenient || !skippable(err) {
				return nil, err
			}

			tables.Skipped = append(tables.Skipped, SkippedTable{Addr: phys.Addr(tableAddr), Err: err})
		}
	}

	return tables, nil
}

// visit validates the table at addr and dispatches on its type.
func (t *Tables) visit(mem phys.Memory, addr phys.Addr) error {
	header, err := ReadHeader(mem, addr)
	if err != nil {
		return err
	}

	switch header.Type {
	case table.TableMADT:
		topo, err := ParseMADT(mem, header.PayloadAddr, header.PayloadLen)
		if err != nil {
			return err
		}

		t.Headers = append(t.Headers, header)
		if !t.HasTopology {
			t.Topology, t.HasTopology = topo, true
		}
	case table.TableFADT:
		dsdt, err := readDSDT(mem, header)
		if err != nil {
			return errors.Wrap(err, "DSDT")
		}

		t.Headers = append(t.Headers, header)
		if dsdt != nil {
			t.Headers = append(t.Headers, *dsdt)
		}
	default:
		t.Headers = append(t.Headers, header)
	}

	return nil
}

// fadtDsdtOffset is the payload offset of FADT.Dsdt.
const fadtDsdtOffset = 4

// readDSDT follows the FADT to the DSDT. It returns nil if the FADT is too
// short to carry the 64-bit DSDT address and holds no 32-bit one either.
func readDSDT(mem phys.Memory, fadtHeader Header) (*Header, error) {
	var fadt table.FADT

	if fadtHeader.PayloadLen >= table.SizeofFADT {
		if err := phys.Read(mem, fadtHeader.PayloadAddr, &fadt); err != nil {
			return nil, err
		}
	} else if fadtHeader.PayloadLen >= fadtDsdtOffset+4 {
		// ACPI 1.0 FADTs end before the 64-bit extensions.
		dsdt, err := phys.ReadUint32(mem, fadtHeader.PayloadAddr+fadtDsdtOffset)
		if err != nil {
			return nil, err
		}
		fadt.Dsdt = dsdt
	}

	dsdtAddr := phys.Addr(fadt.Dsdt)
	if fadt.Ext.Dsdt != 0 {
		dsdtAddr = phys.Addr(fadt.Ext.Dsdt)
	}

	if dsdtAddr == 0 {
		return nil, nil
	}

	header, err := ReadHeader(mem, dsdtAddr)
	if err != nil {
		return nil, err
	}

	if header.Type != table.TableDSDT {
		return nil, &Error{Kind: TableTypeMismatch, Table: table.TableDSDT, Found: header.Type, Signature: header.Signature}
	}

	return &header, nil
}

// skippable returns true for the validation errors a lenient walk tolerates.
func skippable(err error) bool {
	return errors.Is(err, &Error{Kind: ChecksumMismatch}) || errors.Is(err, &Error{Kind: LengthMismatch})
}
