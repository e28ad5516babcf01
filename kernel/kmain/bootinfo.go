package kmain

import (
	"walnut/device/acpi"
	"walnut/kernel/hal/efi"
	"walnut/kernel/mm"
	"walnut/kernel/mm/phys"
)

// BootInfo is handed to the kernel once boot services have been exited. It
// is passed by value and holds everything the kernel knows about the
// machine at that point.
type BootInfo struct {
	// Memory lists the physical memory that is free for the kernel to use.
	Memory mm.RangeSet

	// Topology is only valid when HasTopology is set.
	Topology    acpi.Topology
	HasTopology bool

	// RSDP is the physical address of the ACPI RSDP or 0 if ACPI was
	// disabled or not found.
	RSDP phys.Addr

	Image efi.Handle
}

// KernelMain is the kernel entry point invoked with the boot information.
// It must not return.
type KernelMain func(BootInfo)
