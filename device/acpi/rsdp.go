package acpi

import (
	"walnut/device/acpi/table"
	"walnut/kernel/hal/efi"
	"walnut/kernel/mm/phys"
)

// LocateRSDP searches the firmware configuration tables for the RSDP. The
// ACPI 2.0 entry is preferred over the ACPI 1.0 one.
func LocateRSDP(tables []efi.ConfigurationTable) (phys.Addr, error) {
	for _, guid := range []efi.GUID{efi.ACPI20TableGUID, efi.ACPITableGUID} {
		for _, entry := range tables {
			if entry.VendorGUID == guid {
				return phys.Addr(entry.VendorTable), nil
			}
		}
	}

	return 0, errorf(RSDPNotFound, table.TableRSDP)
}

// ReadRSDP decodes and validates the RSDP at addr. Only ACPI 2.0+ systems,
// whose RSDP carries the 64-bit XSDT address, are supported.
func ReadRSDP(mem phys.Memory, addr phys.Addr) (table.ExtRSDPDescriptor, error) {
	var rsdp table.ExtRSDPDescriptor

	if err := phys.Read(mem, addr, &rsdp.RSDPDescriptor); err != nil {
		return rsdp, err
	}

	if err := verifyChecksum(mem, addr, table.SizeofRSDP, table.TableRSDP); err != nil {
		return rsdp, err
	}

	if rsdp.Signature != table.RSDPSignature {
		return rsdp, errorf(SignatureMismatch, table.TableRSDP)
	}

	if rsdp.Revision < table.ACPIRev2Plus {
		return rsdp, errorf(RevisionTooOld, table.TableRSDP)
	}

	if err := phys.Read(mem, addr, &rsdp); err != nil {
		return rsdp, err
	}

	if rsdp.Length != table.SizeofExtRSDP {
		return rsdp, errorf(RSDPExtendedSizeMismatch, table.TableRSDPExtended)
	}

	if err := verifyChecksum(mem, addr, table.SizeofExtRSDP, table.TableRSDPExtended); err != nil {
		return rsdp, err
	}

	return rsdp, nil
}
