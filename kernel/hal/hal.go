// Package hal probes the drivers for the firmware-described hardware and
// keeps track of the ones that initialized successfully.
package hal

import (
	"bytes"
	"sort"

	"walnut/device"
	"walnut/device/acpi"
	"walnut/kernel/kfmt"
	"walnut/kernel/mm/phys"

	"github.com/pkg/errors"
)

// ACPIProvider is implemented by drivers that expose the ACPI tables
// published by firmware.
type ACPIProvider interface {
	RSDP() phys.Addr
	Topology() (acpi.Topology, bool)
}

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	acpi ACPIProvider

	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver
}

var (
	devices managedDevices
	strBuf  bytes.Buffer
)

// ACPI returns the initialized ACPI driver or nil if no ACPI driver was
// detected.
func ACPI() ACPIProvider {
	return devices.acpi
}

// ActiveDrivers returns the drivers that were successfully initialized.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers
}

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers. An error is returned only if a driver flagged as required fails to
// initialize.
func DetectHardware(drivers device.DriverInfoList) error {
	// Sort by detection priority
	sort.Stable(drivers)

	return detectDrivers(drivers)
}

// detectDrivers executes the detection function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func detectDrivers(driverInfoList device.DriverInfoList) error {
	var w = kfmt.PrefixWriter{Sink: kfmt.Output()}

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Error())
			if info.Required {
				return errors.Wrap(err, drv.DriverName())
			}
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(info, drv)
		devices.activeDrivers = append(devices.activeDrivers, drv)
	}

	return nil
}

// onDriverInit is invoked by detectDrivers() whenever a piece of hardware is detected
// and successfully initialized.
func onDriverInit(_ *device.DriverInfo, drv device.Driver) {
	switch drvImpl := drv.(type) {
	case ACPIProvider:
		if devices.acpi != nil {
			return
		}

		devices.acpi = drvImpl
	}
}
