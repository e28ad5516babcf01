package device

import "io"

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) error
}

// ProbeFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it or nil if the hardware is
// not present.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function will be invoked
// by the hal package.
type DetectOrder int8

// The list of supported detection orders.
const (
	// DetectOrderEarly drivers are probed before everything else.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderBeforeACPI drivers are probed before the ACPI driver.
	DetectOrderBeforeACPI DetectOrder = -1

	// DetectOrderACPI is reserved for the ACPI driver.
	DetectOrderACPI DetectOrder = 0

	// DetectOrderLast drivers are probed after all other drivers.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo describes a driver that can be probed for.
type DriverInfo struct {
	// Order specifies when the driver is probed.
	Order DetectOrder

	// Probe is invoked to detect the hardware and obtain a driver for it.
	Probe ProbeFn

	// Required drivers abort hardware detection if their initialization
	// fails. Failures of other drivers are logged and skipped.
	Required bool
}

// DriverInfoList is a list of DriverInfo entries that implements
// sort.Interface, ordering entries by their detection order.
type DriverInfoList []*DriverInfo

func (l DriverInfoList) Len() int           { return len(l) }
func (l DriverInfoList) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }
