package kmain

import (
	"strconv"
	"strings"

	"walnut/kernel"

	"github.com/pkg/errors"
)

// ACPIMode selects how the boot path treats the firmware ACPI tables.
type ACPIMode uint8

// The supported ACPI modes.
const (
	// ACPIStrict aborts the boot on the first malformed table.
	ACPIStrict ACPIMode = iota

	// ACPILenient skips tables that fail validation.
	ACPILenient

	// ACPIOff does not look for ACPI tables.
	ACPIOff
)

var errBadBootOption = &kernel.Error{Module: "kmain", Message: "invalid boot option"}

// Config holds the options parsed from the boot command line.
type Config struct {
	ACPI ACPIMode

	// VMapOffset is added to the physical address of each usable range
	// when VMap is set and the ranges are described to firmware via
	// SetVirtualAddressMap.
	VMap       bool
	VMapOffset uint64

	// Quiet suppresses the table listing of the ACPI driver.
	Quiet bool
}

// ParseCmdLine parses a command line made of whitespace-separated key=value
// pairs. A key without a value is treated as being set to its own name.
// Unknown keys are ignored.
func ParseCmdLine(cmdLine string) (Config, error) {
	var cfg Config

	for _, pair := range strings.Fields(cmdLine) {
		k, v := pair, pair
		if kv := strings.SplitN(pair, "=", 2); len(kv) == 2 {
			k, v = kv[0], kv[1]
		}

		switch k {
		case "acpi":
			switch v {
			case "strict":
				cfg.ACPI = ACPIStrict
			case "lenient":
				cfg.ACPI = ACPILenient
			case "off":
				cfg.ACPI = ACPIOff
			default:
				return cfg, errors.Wrapf(errBadBootOption, "acpi=%s", v)
			}
		case "vmap":
			offset, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 64)
			if err != nil {
				return cfg, errors.Wrapf(errBadBootOption, "vmap=%s", v)
			}
			cfg.VMap, cfg.VMapOffset = true, offset
		case "quiet":
			cfg.Quiet = v == "on" || v == "quiet"
		}
	}

	return cfg, nil
}
