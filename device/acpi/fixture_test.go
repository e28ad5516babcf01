package acpi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"

	"walnut/device/acpi/table"
	"walnut/kernel/mm/phys"
)

const (
	rsdpAddr phys.Addr = 0x1000
	xsdtAddr phys.Addr = 0x2000
	madtAddr phys.Addr = 0x3000
	fadtAddr phys.Addr = 0x4000
	dsdtAddr phys.Addr = 0x5000
	hpetAddr phys.Addr = 0x6000
)

func encode(v interface{}) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// fixChecksum sets b[off] so that b sums to zero.
func fixChecksum(b []byte, off int) {
	b[off] = 0
	var sum uint8
	for _, v := range b {
		sum += v
	}
	b[off] = -sum
}

func makeTable(sig string, payload []byte) []byte {
	hdr := table.SDTHeader{
		Length:      uint32(table.SizeofSDTHeader + len(payload)),
		Revision:    2,
		OEMRevision: 1,
	}
	copy(hdr.Signature[:], sig)
	copy(hdr.OEMID[:], "WALNUT")
	copy(hdr.OEMTableID[:], "TESTTBL ")

	b := append(encode(&hdr), payload...)
	fixChecksum(b, 9)
	return b
}

func makeRSDP(revision uint8, xsdt phys.Addr) []byte {
	rsdp := table.ExtRSDPDescriptor{
		RSDPDescriptor: table.RSDPDescriptor{
			Signature: table.RSDPSignature,
			Revision:  revision,
		},
		Length:   table.SizeofExtRSDP,
		XSDTAddr: uint64(xsdt),
	}
	copy(rsdp.OEMID[:], "WALNUT")

	b := encode(&rsdp)
	fixChecksum(b[:table.SizeofRSDP], 8)
	fixChecksum(b, 32)
	return b
}

func makeXSDTPayload(addrs ...phys.Addr) []byte {
	var payload []byte
	for _, addr := range addrs {
		payload = append(payload, encode(uint64(addr))...)
	}
	return payload
}

func madtRecord(typ table.MADTEntryType, v interface{}) []byte {
	payload := encode(v)
	return append([]byte{uint8(typ), uint8(table.SizeofMADTEntry + len(payload))}, payload...)
}

func makeMADTPayload(lapicAddr uint32, records ...[]byte) []byte {
	payload := encode(&table.MADT{LocalControllerAddress: lapicAddr, Flags: 1})
	for _, rec := range records {
		payload = append(payload, rec...)
	}
	return payload
}

func makeFADTPayload(dsdt phys.Addr) []byte {
	fadt := table.FADT{Dsdt: uint32(dsdt)}
	fadt.Ext.Dsdt = uint64(dsdt)
	return encode(&fadt)
}

// defaultFixture maps a well-formed ACPI 2.0 table set: an XSDT listing a
// MADT describing two processors and one IO APIC, a FADT pointing at a DSDT
// and an HPET table.
func defaultFixture(t *testing.T) *phys.Regions {
	mem := &phys.Regions{}
	mapFixture(t, mem, rsdpAddr, makeRSDP(2, xsdtAddr))
	mapFixture(t, mem, xsdtAddr, makeTable("XSDT", makeXSDTPayload(madtAddr, fadtAddr, hpetAddr)))
	mapFixture(t, mem, madtAddr, makeTable("APIC", makeMADTPayload(0xfee00000,
		madtRecord(table.MADTEntryTypeLocalAPIC, &table.MADTEntryLocalAPIC{ProcessorID: 0, APICID: 0, Flags: 1}),
		madtRecord(table.MADTEntryTypeLocalAPIC, &table.MADTEntryLocalAPIC{ProcessorID: 1, APICID: 1, Flags: 1}),
		madtRecord(table.MADTEntryTypeIOAPIC, &table.MADTEntryIOAPIC{APICID: 2, Address: 0xfec00000}),
	)))
	mapFixture(t, mem, fadtAddr, makeTable("FACP", makeFADTPayload(dsdtAddr)))
	mapFixture(t, mem, dsdtAddr, makeTable("DSDT", []byte{0x10, 0x20}))
	mapFixture(t, mem, hpetAddr, makeTable("HPET", make([]byte, 20)))
	return mem
}

func mapFixture(t *testing.T, mem *phys.Regions, addr phys.Addr, data []byte) {
	t.Helper()
	if err := mem.Map(addr, data); err != nil {
		t.Fatal(err)
	}
}

func expError(t *testing.T, err error, kind ErrorKind, typ table.TableType) {
	t.Helper()

	acpiErr, ok := errors.Cause(err).(*Error)
	if !ok {
		t.Fatalf("expected an *acpi.Error with kind %q; got %v", kind, err)
	}

	if acpiErr.Kind != kind || acpiErr.Table != typ {
		t.Fatalf("expected error %q for table %s; got %q for table %s", kind, typ, acpiErr.Kind, acpiErr.Table)
	}
}
