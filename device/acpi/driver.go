package acpi

import (
	"io"

	"walnut/kernel/hal/efi"
	"walnut/kernel/kfmt"
	"walnut/kernel/mm/phys"
)

// Driver locates and validates the ACPI tables published by firmware.
type Driver struct {
	mem          phys.Memory
	configTables []efi.ConfigurationTable
	opts         Options
	quiet        bool

	tables *Tables
}

// NewDriver returns a driver that reads ACPI tables through mem, starting
// from the RSDP listed in the firmware configuration tables. When quiet is
// set the driver does not list the discovered tables.
func NewDriver(mem phys.Memory, configTables []efi.ConfigurationTable, opts Options, quiet bool) *Driver {
	return &Driver{
		mem:          mem,
		configTables: configTables,
		opts:         opts,
		quiet:        quiet,
	}
}

// DriverInit initializes this driver.
func (drv *Driver) DriverInit(w io.Writer) error {
	rsdpAddr, err := LocateRSDP(drv.configTables)
	if err != nil {
		return err
	}

	tables, err := Walk(drv.mem, rsdpAddr, drv.opts)
	if err != nil {
		return err
	}

	drv.tables = tables
	for _, skipped := range tables.Skipped {
		kfmt.Fprintf(w, "table at 0x%16x [%s; skipping]\n", uint64(skipped.Addr), skipped.Err.Error())
	}

	if !drv.quiet {
		drv.printTableInfo(w)
	}

	if tables.HasTopology {
		topo := &tables.Topology
		kfmt.Fprintf(w, "%d CPU(s), %d IO APIC(s), local APIC at 0x%x\n",
			topo.CPUCount, topo.IOAPICCount, topo.LocalAPICAddr,
		)
	}

	return nil
}

// DriverName returns the name of this driver.
func (*Driver) DriverName() string {
	return "ACPI"
}

// DriverVersion returns the version of this driver.
func (*Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// Tables returns the result of the table walk or nil if the driver has not
// been initialized.
func (drv *Driver) Tables() *Tables {
	return drv.tables
}

// Topology returns the processor and interrupt controller summary decoded
// from the MADT. The second return value is false if no MADT was found.
func (drv *Driver) Topology() (Topology, bool) {
	if drv.tables == nil {
		return Topology{}, false
	}
	return drv.tables.Topology, drv.tables.HasTopology
}

// RSDP returns the physical address of the RSDP or 0 if the driver has not
// been initialized.
func (drv *Driver) RSDP() phys.Addr {
	if drv.tables == nil {
		return 0
	}
	return drv.tables.RSDPAddr
}

func (drv *Driver) printTableInfo(w io.Writer) {
	printHeader(w, &drv.tables.XSDT)
	for i := range drv.tables.Headers {
		printHeader(w, &drv.tables.Headers[i])
	}
}

func printHeader(w io.Writer, header *Header) {
	kfmt.Fprintf(w, "%s at 0x%16x %6x (%6s %8s)\n",
		header.Name(),
		uint64(header.Addr),
		header.Length,
		string(header.OEMID[:]),
		string(header.OEMTableID[:]),
	)
}
