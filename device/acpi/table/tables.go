// Package table defines the binary layouts of the ACPI tables and records
// decoded by the acpi package. All layouts are little-endian and packed;
// they are meant to be decoded with encoding/binary, never overlaid on
// memory, since firmware does not align them.
package table

// RSDPDescriptor defines the root system descriptor pointer for ACPI 1.0. This
// is used as the entry-point for parsing ACPI data.
type RSDPDescriptor struct {
	// The signature must contain "RSD PTR " (last byte is a space).
	Signature [8]byte

	// A value that when added to the sum of all other bytes contained in
	// this descriptor should result in the value 0.
	Checksum uint8

	OEMID [6]byte

	// ACPI revision number. It is 0 for ACPI1.0 and 2 for versions 2.0 to 6.2.
	Revision uint8

	// Physical address of 32-bit root system descriptor table.
	RSDTAddr uint32
}

// ExtRSDPDescriptor extends RSDPDescriptor with additional fields. It is used
// when RSDPDescriptor.Revision > 1.
type ExtRSDPDescriptor struct {
	RSDPDescriptor

	// The size of the extended descriptor.
	Length uint32

	// Physical address of 64-bit root system descriptor table.
	XSDTAddr uint64

	// A value that when added to the sum of all bytes contained in the
	// extended descriptor should result in the value 0.
	ExtendedChecksum uint8

	_ [3]byte
}

// Encoded sizes of the fixed layouts.
const (
	SizeofRSDP        = 20
	SizeofExtRSDP     = 36
	SizeofSDTHeader   = 36
	SizeofMADT        = 8
	SizeofFADT        = 244 - SizeofSDTHeader
	SizeofMADTEntry   = 2
	SizeofXSDTEntry   = 8
	ACPIRev2Plus      = 2
	RSDPSignatureSize = 8
)

// RSDPSignature is the signature stored at the start of the RSDP.
var RSDPSignature = [RSDPSignatureSize]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// SDTHeader defines the common header for all ACPI-related tables.
type SDTHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The length of the table, including this header.
	Length uint32

	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the ASL compiler that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// AddressSpace defines the location where a set of registers resides.
type AddressSpace uint8

// The list of supported address space types.
const (
	AddressSpaceSysMemory AddressSpace = iota
	AddressSpaceSysIO
	AddressSpacePCI
	AddressSpaceEmbController
	AddressSpaceSMBus
	AddressSpaceFuncFixedHW = 0x7f
)

// GenericAddress specifies a register range located in a particular address
// space.
type GenericAddress struct {
	Space      AddressSpace
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

// PowerProfileType describes a power profile referenced by the FADT table.
type PowerProfileType uint8

// The list of supported power profile types
const (
	PowerProfileUnspecified PowerProfileType = iota
	PowerProfileDesktop
	PowerProfileMobile
	PowerProfileWorkstation
	PowerProfileEnterpriseServer
	PowerProfileSOHOServer
	PowerProfileAppliancePC
	PowerProfilePerformanceServer
)

// FADT64 contains the 64-bit FADT extensions which are used by ACPI2+
type FADT64 struct {
	FirmwareControl uint64

	Dsdt uint64

	PM1aEventBlock   GenericAddress
	PM1bEventBlock   GenericAddress
	PM1aControlBlock GenericAddress
	PM1bControlBlock GenericAddress
	PM2ControlBlock  GenericAddress
	PMTimerBlock     GenericAddress
	GPE0Block        GenericAddress
	GPE1Block        GenericAddress
}

// FADT (Fixed ACPI Description Table) contains information about fixed
// register blocks used for power management. It follows the table header;
// the acpi package uses it to locate the DSDT.
type FADT struct {
	FirmwareCtrl uint32
	Dsdt         uint32

	_ uint8

	PreferredPowerManagementProfile PowerProfileType
	SCIInterrupt                    uint16
	SMICommandPort                  uint32
	AcpiEnable                      uint8
	AcpiDisable                     uint8
	S4BIOSReq                       uint8
	PSTATEControl                   uint8
	PM1aEventBlock                  uint32
	PM1bEventBlock                  uint32
	PM1aControlBlock                uint32
	PM1bControlBlock                uint32
	PM2ControlBlock                 uint32
	PMTimerBlock                    uint32
	GPE0Block                       uint32
	GPE1Block                       uint32
	PM1EventLength                  uint8
	PM1ControlLength                uint8
	PM2ControlLength                uint8
	PMTimerLength                   uint8
	GPE0Length                      uint8
	GPE1Length                      uint8
	GPE1Base                        uint8
	CStateControl                   uint8
	WorstC2Latency                  uint16
	WorstC3Latency                  uint16
	FlushSize                       uint16
	FlushStride                     uint16
	DutyOffset                      uint8
	DutyWidth                       uint8
	DayAlarm                        uint8
	MonthAlarm                      uint8
	Century                         uint8

	// Reserved in ACPI 1.0; used since ACPI 2.0+
	BootArchitectureFlags uint16

	_     uint8
	Flags uint32

	ResetReg GenericAddress

	ResetValue uint8
	_          [3]uint8

	// 64-bit pointers to the above structures used by ACPI 2.0+
	Ext FADT64
}

// MADT (Multiple APIC Description Table) holds the fixed fields that follow
// the header of the table containing information about the interrupt
// controllers and the number of installed CPUs. They are followed by a
// series of variable sized records, each starting with a MADTEntry.
type MADT struct {
	LocalControllerAddress uint32
	Flags                  uint32
}

// MADTEntryLocalAPIC describes a single physical processor and its local
// interrupt controller.
type MADTEntryLocalAPIC struct {
	ProcessorID uint8
	APICID      uint8
	Flags       uint32
}

// MADTEntryIOAPIC describes an I/O Advanced Programmable Interrupt Controller.
type MADTEntryIOAPIC struct {
	APICID uint8
	_      uint8

	// Address contains the address of the controller.
	Address uint32

	// SysInterruptBase defines the first interrupt number that this
	// controller handles.
	SysInterruptBase uint32
}

// MADTEntryInterruptSrcOverride contains the data for an Interrupt Source
// Override.  This mechanism is used to map IRQ sources to global system
// interrupts.
type MADTEntryInterruptSrcOverride struct {
	BusSrc          uint8
	IRQSrc          uint8
	GlobalInterrupt uint32
	Flags           uint16
}

// MADTEntryIOAPICNMISource specifies a global system interrupt that should
// be configured as a non-maskable interrupt.
type MADTEntryIOAPICNMISource struct {
	Flags           uint16
	GlobalInterrupt uint32
}

// MADTEntryNMI describes a non-maskable interrupt that we need to set up for
// a single processor or all processors.
type MADTEntryNMI struct {
	// Processor specifies the local APIC that we need to configure for
	// this NMI. If set to 0xff we need to configure all processor APICs.
	Processor uint8

	Flags uint16

	// This value will be either 0 or 1 and specifies which entry in the
	// local vector table of the processor's local APIC we need to setup.
	LINT uint8
}

// MADTEntryLocalAPICAddrOverride provides the 64-bit address of the local
// APIC, replacing MADT.LocalControllerAddress.
type MADTEntryLocalAPICAddrOverride struct {
	_       uint16
	Address uint64
}

// MADTEntryLocalX2APIC describes a processor whose local APIC operates in
// x2APIC mode.
type MADTEntryLocalX2APIC struct {
	_            uint16
	X2APICID     uint32
	Flags        uint32
	ProcessorUID uint32
}

// MADTEntryType describes the type of a MADT record.
type MADTEntryType uint8

// The list of supported MADT entry types.
const (
	MADTEntryTypeLocalAPIC          MADTEntryType = 0
	MADTEntryTypeIOAPIC             MADTEntryType = 1
	MADTEntryTypeIntSrcOverride     MADTEntryType = 2
	MADTEntryTypeIOAPICNMISource    MADTEntryType = 3
	MADTEntryTypeNMI                MADTEntryType = 4
	MADTEntryTypeLocalAPICAddrOvrd  MADTEntryType = 5
	MADTEntryTypeLocalX2APIC        MADTEntryType = 9
	madtEntryTypeFirstUnassignedTag MADTEntryType = 0x18
)

// Known returns true if t is one of the record types decoded by the acpi
// package.
func (t MADTEntryType) Known() bool {
	switch t {
	case MADTEntryTypeLocalAPIC, MADTEntryTypeIOAPIC, MADTEntryTypeIntSrcOverride,
		MADTEntryTypeIOAPICNMISource, MADTEntryTypeNMI, MADTEntryTypeLocalAPICAddrOvrd,
		MADTEntryTypeLocalX2APIC:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (t MADTEntryType) String() string {
	switch t {
	case MADTEntryTypeLocalAPIC:
		return "local APIC"
	case MADTEntryTypeIOAPIC:
		return "IO APIC"
	case MADTEntryTypeIntSrcOverride:
		return "interrupt source override"
	case MADTEntryTypeIOAPICNMISource:
		return "IO APIC NMI source"
	case MADTEntryTypeNMI:
		return "local APIC NMI"
	case MADTEntryTypeLocalAPICAddrOvrd:
		return "local APIC address override"
	case MADTEntryTypeLocalX2APIC:
		return "local x2APIC"
	}
	if t >= madtEntryTypeFirstUnassignedTag && t < 0x80 {
		return "reserved"
	}
	return "unknown"
}

// MADTEntry is the sub-header of every MADT record. Length covers the whole
// record including these two bytes.
type MADTEntry struct {
	Type   MADTEntryType
	Length uint8
}
