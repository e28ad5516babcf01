// Package kmain contains the boot path that runs between the firmware
// handing control to the kernel image and the kernel taking over the
// machine.
package kmain

import (
	"sync/atomic"

	"walnut/device"
	"walnut/device/acpi"
	"walnut/kernel"
	"walnut/kernel/cpu"
	"walnut/kernel/hal"
	"walnut/kernel/hal/efi"
	"walnut/kernel/kfmt"
	"walnut/kernel/mm/phys"
	"walnut/kernel/mm/pmm"

	"github.com/pkg/errors"
)

var (
	errKmainReturned       = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errKernelMainReentered = &kernel.Error{Module: "kmain", Message: "kernel main already invoked"}
	errMissingKernelMain   = &kernel.Error{Module: "kmain", Message: "no kernel main supplied"}

	// kernelMainInvoked is set the first time control is handed to a
	// kernel main function.
	kernelMainInvoked atomic.Bool

	bootMemAllocator pmm.BootMemAllocator

	// The following functions are mocked by tests.
	panicFn             = kfmt.Panic
	haltFn              = cpu.Halt
	detectHardwareFn    = hal.DetectHardware
	exitBootServicesFn  = efi.ExitBootServices
	setVirtualAddressFn = efi.SetVirtualAddressMap
)

// EfiMain is invoked by the image entry trampoline with the firmware image
// handle and the decoded system table. It parses the boot configuration,
// attaches the firmware console, validates the ACPI tables, exits boot
// services and finally passes control to kernelMain.
//
// EfiMain is not expected to return. Every failure is reported via
// kfmt.Panic, annotated with the boot stage that failed.
func EfiMain(image efi.Handle, st *efi.SystemTable, mem phys.Memory, cmdLine string, kernelMain KernelMain) {
	if kernelMain == nil {
		panicFn(errMissingKernelMain)
		return
	}

	cfg, err := ParseCmdLine(cmdLine)
	if err != nil {
		panicFn(errors.Wrap(err, "boot config"))
		return
	}

	if kerr := efi.Register(st); kerr != nil {
		panicFn(errors.Wrap(kerr, "register system table"))
		return
	}

	// Without a firmware console, output stays buffered until the kernel
	// attaches its own sink.
	if st.ConOut != nil {
		kfmt.SetOutputSink(&efi.ConsoleWriter{Out: st.ConOut})
	}
	kfmt.Printf("[kmain] firmware revision %d.%d\n", st.FirmwareRevision>>16, st.FirmwareRevision&0xffff)

	info := BootInfo{Image: image}
	if cfg.ACPI != ACPIOff {
		if err = detectACPI(&info, mem, st.ConfigurationTables, cfg); err != nil {
			efi.Destroy()
			panicFn(errors.Wrap(err, "detect hardware"))
			return
		}
	}

	if info.Memory, err = exitBootServicesFn(image); err != nil {
		efi.Destroy()
		panicFn(errors.Wrap(err, "exit boot services"))
		return
	}

	if cfg.VMap {
		if err = setVirtualAddressFn(st.RuntimeServices, &info.Memory, cfg.VMapOffset); err != nil {
			panicFn(errors.Wrap(err, "set virtual address map"))
			return
		}
	}

	kfmt.SetOutputSink(nil)

	if !kernelMainInvoked.CompareAndSwap(false, true) {
		panicFn(errKernelMainReentered)
		return
	}

	kernelMain(info)

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// detectACPI probes the ACPI driver and copies the RSDP location and the
// processor topology it found to info.
func detectACPI(info *BootInfo, mem phys.Memory, configTables []efi.ConfigurationTable, cfg Config) error {
	drv := acpi.NewDriver(mem, configTables, acpi.Options{Lenient: cfg.ACPI == ACPILenient}, cfg.Quiet)

	drivers := device.DriverInfoList{
		{
			Order:    device.DetectOrderACPI,
			Probe:    func() device.Driver { return drv },
			Required: cfg.ACPI == ACPIStrict,
		},
	}

	if err := detectHardwareFn(drivers); err != nil {
		return err
	}

	// A lenient boot tolerates a driver that failed to initialize.
	if drv.Tables() != nil {
		info.RSDP = drv.RSDP()
		info.Topology, info.HasTopology = drv.Topology()
	}

	return nil
}

// Kmain is the default kernel main. It seeds the boot memory allocator with
// the usable memory, prints a summary of the machine and halts.
//
//go:noinline
func Kmain(info BootInfo) {
	if err := bootMemAllocator.Init(info.Memory); err != nil {
		panicFn(err)
		return
	}

	// Reserve a page the kernel can use before the paging code is up.
	scratch, err := bootMemAllocator.AllocFrame()
	if err != nil {
		panicFn(err)
		return
	}
	kfmt.Printf("[kmain] scratch frame at 0x%x\n", scratch.Address())

	bootMemAllocator.PrintMemoryMap(kfmt.Output())

	if info.HasTopology {
		kfmt.Printf("[kmain] %d CPU(s), IO APIC at 0x%x, RSDP at 0x%x\n",
			info.Topology.CPUCount, info.Topology.IOAPICAddr, uint64(info.RSDP),
		)
	}

	haltFn()
}
