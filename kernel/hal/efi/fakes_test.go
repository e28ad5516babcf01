package efi

// fakeFirmware implements BootServices, RuntimeServices and TextOutput,
// logging every call in order.
type fakeFirmware struct {
	calls []string

	mapBuf      []byte
	mapKey      uint64
	descSize    uint64
	mapStatus   Status
	exitStatus  Status
	vmapStatus  Status
	printStatus Status

	exitKey   uint64
	exitImage Handle

	vmapDescSize    uint64
	vmapDescVersion uint32
	vmapDescs       []byte

	output []uint16
}

func (f *fakeFirmware) GetMemoryMap(buf []byte) (MemoryMap, Status) {
	f.calls = append(f.calls, "GetMemoryMap")
	if f.mapStatus.IsError() {
		return MemoryMap{}, f.mapStatus
	}

	n := copy(buf, f.mapBuf)
	return MemoryMap{Buffer: buf[:n], Key: f.mapKey, DescriptorSize: f.descSize, DescriptorVersion: 1}, Success
}

func (f *fakeFirmware) ExitBootServices(image Handle, mapKey uint64) Status {
	f.calls = append(f.calls, "ExitBootServices")
	f.exitImage, f.exitKey = image, mapKey
	return f.exitStatus
}

func (f *fakeFirmware) SetVirtualAddressMap(descSize uint64, descVersion uint32, descs []byte) Status {
	f.calls = append(f.calls, "SetVirtualAddressMap")
	f.vmapDescSize, f.vmapDescVersion = descSize, descVersion
	f.vmapDescs = append([]byte(nil), descs...)
	return f.vmapStatus
}

func (f *fakeFirmware) OutputString(s []uint16) Status {
	f.calls = append(f.calls, "OutputString")
	f.output = append(f.output, s...)
	return f.printStatus
}

func (f *fakeFirmware) systemTable() *SystemTable {
	return &SystemTable{
		Header:          TableHeader{Signature: SystemTableSignature},
		ConOut:          f,
		BootServices:    f,
		RuntimeServices: f,
	}
}
