package efi

import (
	"math/bits"
	"unsafe"

	"walnut/kernel"
	"walnut/kernel/mm/phys"
)

// Table signatures.
const (
	SystemTableSignature     uint64 = 0x5453595320494249 // "IBI SYST"
	BootServicesSignature    uint64 = 0x56524553544f4f42 // "BOOTSERV"
	RuntimeServicesSignature uint64 = 0x56524553544e5552 // "RUNTSERV"
)

// Offsets of the service entry points used by the kernel.
const (
	getMemoryMapOffset         = 56
	exitBootServicesOffset     = 232
	setVirtualAddressMapOffset = 56
	outputStringOffset         = 8

	sizeofConfigurationTable = 24

	// maxConfigTables bounds the configuration table array decoded from
	// the system table.
	maxConfigTables = 1024
)

var (
	errBadSystemTable     = &kernel.Error{Module: "efi", Message: "system table signature mismatch"}
	errBadBootServices    = &kernel.Error{Module: "efi", Message: "boot services table signature mismatch"}
	errBadRuntimeServices = &kernel.Error{Module: "efi", Message: "runtime services table signature mismatch"}
	errTooManyConfigTabs  = &kernel.Error{Module: "efi", Message: "system table lists too many configuration tables"}
)

// BootServices exposes the boot services used while handing off to the
// kernel. They are only valid until ExitBootServices succeeds.
type BootServices interface {
	// GetMemoryMap fills buf with the current memory map and returns
	// its layout. On success, m.Buffer is the prefix of buf holding the
	// map.
	GetMemoryMap(buf []byte) (m MemoryMap, status Status)

	// ExitBootServices terminates boot services. mapKey must be the key
	// of the most recent memory map.
	ExitBootServices(image Handle, mapKey uint64) Status
}

// RuntimeServices exposes the runtime services used by the kernel.
type RuntimeServices interface {
	// SetVirtualAddressMap switches runtime services to the virtual
	// addresses set in the descriptors encoded in descs.
	SetVirtualAddressMap(descSize uint64, descVersion uint32, descs []byte) Status
}

// TextOutput is the firmware console.
type TextOutput interface {
	// OutputString prints a NUL-terminated UTF-16 string.
	OutputString(s []uint16) Status
}

// SystemTable is the decoded form of the system table passed to the image
// entry point.
type SystemTable struct {
	Header              TableHeader
	FirmwareVendor      phys.Addr
	FirmwareRevision    uint32
	ConOut              TextOutput
	BootServices        BootServices
	RuntimeServices     RuntimeServices
	ConfigurationTables []ConfigurationTable
}

// Caller invokes a firmware entry point using the platform calling
// convention and returns its status. It is implemented by the image entry
// trampoline.
type Caller interface {
	Call(fn uintptr, args ...uintptr) Status
}

// rawSystemTable is the in-memory layout of the system table.
type rawSystemTable struct {
	Header               TableHeader
	FirmwareVendor       uint64
	FirmwareRevision     uint32
	_                    uint32
	ConsoleInHandle      uint64
	ConIn                uint64
	ConsoleOutHandle     uint64
	ConOut               uint64
	StandardErrorHandle  uint64
	StdErr               uint64
	RuntimeServices      uint64
	BootServices         uint64
	NumberOfTableEntries uint64
	ConfigurationTable   uint64
}

// DecodeSystemTable decodes the system table at addr. The service entry
// points it references are bound to caller.
func DecodeSystemTable(mem phys.Memory, addr phys.Addr, caller Caller) (*SystemTable, error) {
	var raw rawSystemTable
	if err := phys.Read(mem, addr, &raw); err != nil {
		return nil, err
	}

	if raw.Header.Signature != SystemTableSignature {
		return nil, errBadSystemTable
	}

	st := &SystemTable{
		Header:           raw.Header,
		FirmwareVendor:   phys.Addr(raw.FirmwareVendor),
		FirmwareRevision: raw.FirmwareRevision,
	}

	bs, err := decodeBootServices(mem, phys.Addr(raw.BootServices), caller)
	if err != nil {
		return nil, err
	}
	st.BootServices = bs

	rt, err := decodeRuntimeServices(mem, phys.Addr(raw.RuntimeServices), caller)
	if err != nil {
		return nil, err
	}
	st.RuntimeServices = rt

	if raw.ConOut != 0 {
		fn, err := readEntryPoint(mem, phys.Addr(raw.ConOut), outputStringOffset)
		if err != nil {
			return nil, err
		}
		st.ConOut = &textOutput{caller: caller, this: uintptr(raw.ConOut), outputString: fn}
	}

	if st.ConfigurationTables, err = decodeConfigTables(mem, phys.Addr(raw.ConfigurationTable), raw.NumberOfTableEntries); err != nil {
		return nil, err
	}

	return st, nil
}

func decodeBootServices(mem phys.Memory, addr phys.Addr, caller Caller) (*bootServices, error) {
	if err := checkSignature(mem, addr, BootServicesSignature, errBadBootServices); err != nil {
		return nil, err
	}

	bs := &bootServices{caller: caller}
	var err error
	if bs.getMemoryMap, err = readEntryPoint(mem, addr, getMemoryMapOffset); err != nil {
		return nil, err
	}
	if bs.exitBootServices, err = readEntryPoint(mem, addr, exitBootServicesOffset); err != nil {
		return nil, err
	}

	return bs, nil
}

func decodeRuntimeServices(mem phys.Memory, addr phys.Addr, caller Caller) (*runtimeServices, error) {
	if err := checkSignature(mem, addr, RuntimeServicesSignature, errBadRuntimeServices); err != nil {
		return nil, err
	}

	fn, err := readEntryPoint(mem, addr, setVirtualAddressMapOffset)
	if err != nil {
		return nil, err
	}

	return &runtimeServices{caller: caller, setVirtualAddressMap: fn}, nil
}

func decodeConfigTables(mem phys.Memory, addr phys.Addr, count uint64) ([]ConfigurationTable, error) {
	if count > maxConfigTables {
		return nil, errTooManyConfigTabs
	}

	hi, size := bits.Mul64(count, sizeofConfigurationTable)
	if hi != 0 {
		return nil, phys.ErrAddrOverflow
	}

	s, err := phys.NewSlice(mem, addr, size)
	if err != nil {
		return nil, err
	}

	tables := make([]ConfigurationTable, count)
	for i := range tables {
		if err = s.Consume(&tables[i]); err != nil {
			return nil, err
		}
	}

	return tables, nil
}

func checkSignature(mem phys.Memory, addr phys.Addr, sig uint64, sigErr *kernel.Error) error {
	got, err := phys.ReadUint64(mem, addr)
	if err != nil {
		return err
	}

	if got != sig {
		return sigErr
	}
	return nil
}

func readEntryPoint(mem phys.Memory, table phys.Addr, offset uint64) (uintptr, error) {
	addr, ok := table.Add(offset)
	if !ok {
		return 0, phys.ErrAddrOverflow
	}

	fn, err := phys.ReadUint64(mem, addr)
	if err != nil {
		return 0, err
	}
	return uintptr(fn), nil
}

// getMemoryMapArgs holds the output arguments of GetMemoryMap. It is heap
// allocated so the addresses passed to firmware stay valid for the call.
type getMemoryMapArgs struct {
	mapSize     uint64
	mapKey      uint64
	descSize    uint64
	descVersion uint32
}

type bootServices struct {
	caller           Caller
	getMemoryMap     uintptr
	exitBootServices uintptr
}

func (bs *bootServices) GetMemoryMap(buf []byte) (MemoryMap, Status) {
	if len(buf) == 0 {
		return MemoryMap{}, BufferTooSmall
	}

	args := &getMemoryMapArgs{mapSize: uint64(len(buf))}
	status := bs.caller.Call(bs.getMemoryMap,
		uintptr(unsafe.Pointer(&args.mapSize)),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&args.mapKey)),
		uintptr(unsafe.Pointer(&args.descSize)),
		uintptr(unsafe.Pointer(&args.descVersion)),
	)

	if status.IsError() {
		return MemoryMap{}, status
	}

	if args.mapSize > uint64(len(buf)) {
		return MemoryMap{}, BadBufferSize
	}

	return MemoryMap{
		Buffer:            buf[:args.mapSize],
		Key:               args.mapKey,
		DescriptorSize:    args.descSize,
		DescriptorVersion: args.descVersion,
	}, status
}

func (bs *bootServices) ExitBootServices(image Handle, mapKey uint64) Status {
	return bs.caller.Call(bs.exitBootServices, uintptr(image), uintptr(mapKey))
}

type runtimeServices struct {
	caller               Caller
	setVirtualAddressMap uintptr
}

func (rt *runtimeServices) SetVirtualAddressMap(descSize uint64, descVersion uint32, descs []byte) Status {
	if len(descs) == 0 {
		return InvalidParameter
	}

	return rt.caller.Call(rt.setVirtualAddressMap,
		uintptr(len(descs)),
		uintptr(descSize),
		uintptr(descVersion),
		uintptr(unsafe.Pointer(&descs[0])),
	)
}

type textOutput struct {
	caller       Caller
	this         uintptr
	outputString uintptr
}

func (out *textOutput) OutputString(s []uint16) Status {
	if len(s) == 0 {
		return Success
	}

	return out.caller.Call(out.outputString, out.this, uintptr(unsafe.Pointer(&s[0])))
}
