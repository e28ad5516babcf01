// Package efi decodes the UEFI system table handed to the kernel image,
// captures the firmware memory map and drives the exit from boot services.
package efi

// PageSize is the size of the pages counted by memory descriptors.
const PageSize = 4096

// Handle is an opaque firmware handle such as the handle of the loaded
// kernel image.
type Handle uintptr

// Status is the value returned by every firmware service.
type Status uint64

const statusErrorBit Status = 1 << 63

// The list of status codes reported by the services used by the kernel.
const (
	Success          Status = 0
	LoadError               = statusErrorBit | 1
	InvalidParameter        = statusErrorBit | 2
	Unsupported             = statusErrorBit | 3
	BadBufferSize           = statusErrorBit | 4
	BufferTooSmall          = statusErrorBit | 5
	NotReady                = statusErrorBit | 6
	DeviceError             = statusErrorBit | 7
	WriteProtected          = statusErrorBit | 8
	OutOfResources          = statusErrorBit | 9
	NotFound                = statusErrorBit | 14
)

// IsError returns true if the status reports a failure. Statuses without
// the high bit set are successes or warnings.
func (s Status) IsError() bool {
	return s&statusErrorBit != 0
}

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case LoadError:
		return "load error"
	case InvalidParameter:
		return "invalid parameter"
	case Unsupported:
		return "unsupported"
	case BadBufferSize:
		return "bad buffer size"
	case BufferTooSmall:
		return "buffer too small"
	case NotReady:
		return "not ready"
	case DeviceError:
		return "device error"
	case WriteProtected:
		return "write protected"
	case OutOfResources:
		return "out of resources"
	case NotFound:
		return "not found"
	}

	if s.IsError() {
		return "error"
	}
	return "warning"
}

// GUID is a firmware globally unique identifier in its in-memory layout.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Vendor GUIDs of the configuration tables that carry the ACPI RSDP.
var (
	ACPI20TableGUID = GUID{0x8868e871, 0xe4f1, 0x11d3, [8]byte{0xbc, 0x22, 0x00, 0x80, 0xc7, 0x3c, 0x88, 0x81}}
	ACPITableGUID   = GUID{0xeb9d2d30, 0x2d88, 0x11d3, [8]byte{0x9a, 0x16, 0x00, 0x90, 0x27, 0x3f, 0xc1, 0x4d}}
)

// String returns the canonical textual form of the GUID.
func (g GUID) String() string {
	const hexDigits = "0123456789abcdef"

	var (
		buf [36]byte
		pos int
	)

	put := func(v uint64, nibbles int) {
		for i := nibbles - 1; i >= 0; i-- {
			buf[pos] = hexDigits[(v>>(uint(i)*4))&0xf]
			pos++
		}
	}
	dash := func() {
		buf[pos] = '-'
		pos++
	}

	put(uint64(g.Data1), 8)
	dash()
	put(uint64(g.Data2), 4)
	dash()
	put(uint64(g.Data3), 4)
	dash()
	put(uint64(g.Data4[0]), 2)
	put(uint64(g.Data4[1]), 2)
	dash()
	for _, b := range g.Data4[2:] {
		put(uint64(b), 2)
	}

	return string(buf[:])
}

// ConfigurationTable is an entry of the system table's configuration table
// array, pointing at a vendor table such as the ACPI RSDP.
type ConfigurationTable struct {
	VendorGUID  GUID
	VendorTable uint64
}

// TableHeader precedes the system, boot services and runtime services
// tables.
type TableHeader struct {
	Signature  uint64
	Revision   uint32
	HeaderSize uint32
	CRC32      uint32
	_          uint32
}
