package acpi

import (
	"encoding/binary"

	"walnut/device/acpi/table"
	"walnut/kernel/mm/phys"
)

// Local APIC flags shared by the local APIC and x2APIC records.
const (
	LocalAPICEnabled       uint32 = 1 << 0
	LocalAPICOnlineCapable uint32 = 1 << 1
)

// LocalAPIC describes a processor listed in the MADT.
type LocalAPIC struct {
	ProcessorID uint32
	APICID      uint32
	Flags       uint32

	// X2APIC is set for processors described by an x2APIC record.
	X2APIC bool
}

// Usable returns true if the processor is enabled or can be brought
// online.
func (l LocalAPIC) Usable() bool {
	return l.Flags&(LocalAPICEnabled|LocalAPICOnlineCapable) != 0
}

// IOAPIC describes an I/O APIC listed in the MADT.
type IOAPIC struct {
	ID               uint8
	Address          uint32
	SysInterruptBase uint32
}

// InterruptOverride maps a bus IRQ to a global system interrupt.
type InterruptOverride struct {
	Bus             uint8
	IRQ             uint8
	GlobalInterrupt uint32
	Flags           uint16
}

// Topology summarizes the interrupt controllers and processors described by
// the MADT.
type Topology struct {
	// LocalAPICAddr is the physical address of the local APIC registers.
	// A local APIC address override record replaces the 32-bit address
	// found in the MADT preamble.
	LocalAPICAddr uint64
	Flags         uint32

	// CPUCount is the number of processor local APIC records.
	CPUCount int

	// IOAPICAddr is the address of the last IO APIC record.
	IOAPICAddr  uint32
	IOAPICCount int

	Processors []LocalAPIC
	IOAPICs    []IOAPIC
	Overrides  []InterruptOverride

	// NMICount is the number of local APIC and IO APIC NMI records.
	NMICount int

	// UnknownRecords counts the records that were skipped.
	UnknownRecords int
}

// ParseMADT decodes the MADT payload of payloadLen bytes starting at addr.
// Every record of a known type must have exactly the size of its layout; any
// malformed record fails the whole table with LengthMismatch.
func ParseMADT(mem phys.Memory, addr phys.Addr, payloadLen uint64) (Topology, error) {
	var topo Topology

	s, err := phys.NewSlice(mem, addr, payloadLen)
	if err != nil {
		return topo, errorf(IntegerOverflow, table.TableMADT)
	}

	var madt table.MADT
	if err = consume(&s, &madt); err != nil {
		return topo, err
	}

	topo.LocalAPICAddr = uint64(madt.LocalControllerAddress)
	topo.Flags = madt.Flags

	for !s.Empty() {
		var entry table.MADTEntry
		if err = consume(&s, &entry); err != nil {
			return topo, err
		}

		if entry.Length < table.SizeofMADTEntry {
			return topo, errorf(LengthMismatch, table.TableMADT)
		}
		recordLen := uint64(entry.Length - table.SizeofMADTEntry)

		switch entry.Type {
		case table.MADTEntryTypeLocalAPIC:
			var rec table.MADTEntryLocalAPIC
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}

			topo.CPUCount++
			topo.Processors = append(topo.Processors, LocalAPIC{
				ProcessorID: uint32(rec.ProcessorID),
				APICID:      uint32(rec.APICID),
				Flags:       rec.Flags,
			})
		case table.MADTEntryTypeLocalX2APIC:
			var rec table.MADTEntryLocalX2APIC
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}

			topo.Processors = append(topo.Processors, LocalAPIC{
				ProcessorID: rec.ProcessorUID,
				APICID:      rec.X2APICID,
				Flags:       rec.Flags,
				X2APIC:      true,
			})
		case table.MADTEntryTypeIOAPIC:
			var rec table.MADTEntryIOAPIC
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}

			topo.IOAPICAddr = rec.Address
			topo.IOAPICCount++
			topo.IOAPICs = append(topo.IOAPICs, IOAPIC{
				ID:               rec.APICID,
				Address:          rec.Address,
				SysInterruptBase: rec.SysInterruptBase,
			})
		case table.MADTEntryTypeIntSrcOverride:
			var rec table.MADTEntryInterruptSrcOverride
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}

			topo.Overrides = append(topo.Overrides, InterruptOverride{
				Bus:             rec.BusSrc,
				IRQ:             rec.IRQSrc,
				GlobalInterrupt: rec.GlobalInterrupt,
				Flags:           rec.Flags,
			})
		case table.MADTEntryTypeIOAPICNMISource:
			var rec table.MADTEntryIOAPICNMISource
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}
			topo.NMICount++
		case table.MADTEntryTypeNMI:
			var rec table.MADTEntryNMI
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}
			topo.NMICount++
		case table.MADTEntryTypeLocalAPICAddrOvrd:
			var rec table.MADTEntryLocalAPICAddrOverride
			if err = consumeRecord(&s, recordLen, &rec); err != nil {
				return topo, err
			}
			topo.LocalAPICAddr = rec.Address
		default:
			if err = s.Discard(recordLen); err != nil {
				return topo, sliceErr(err)
			}
			topo.UnknownRecords++
		}
	}

	return topo, nil
}

// consumeRecord decodes a record payload into v after checking that the
// declared payload length matches the size of v.
func consumeRecord(s *phys.Slice, recordLen uint64, v interface{}) error {
	if uint64(binary.Size(v)) != recordLen {
		return errorf(LengthMismatch, table.TableMADT)
	}

	return consume(s, v)
}

func consume(s *phys.Slice, v interface{}) error {
	if err := s.Consume(v); err != nil {
		return sliceErr(err)
	}
	return nil
}

// sliceErr reports running out of MADT bytes as a length mismatch. Other
// errors come from the memory backend and are returned unchanged.
func sliceErr(err error) error {
	if err == phys.ErrSliceExhausted {
		return errorf(LengthMismatch, table.TableMADT)
	}
	return err
}
