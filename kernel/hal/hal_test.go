package hal

import (
	"bytes"
	"io"
	"testing"

	"walnut/device"
	"walnut/device/acpi"
	"walnut/kernel"
	"walnut/kernel/kfmt"
	"walnut/kernel/mm/phys"

	"github.com/pkg/errors"
)

var errInitFailed = &kernel.Error{Module: "test", Message: "device not responding"}

type fakeDriver struct {
	name    string
	initErr error
	initLog string
}

func (d *fakeDriver) DriverName() string                      { return d.name }
func (d *fakeDriver) DriverVersion() (uint16, uint16, uint16) { return 1, 2, 3 }
func (d *fakeDriver) DriverInit(w io.Writer) error {
	if d.initLog != "" {
		kfmt.Fprintf(w, "%s\n", d.initLog)
	}
	return d.initErr
}

type fakeACPIDriver struct {
	fakeDriver
	rsdp phys.Addr
}

func (d *fakeACPIDriver) RSDP() phys.Addr { return d.rsdp }
func (d *fakeACPIDriver) Topology() (acpi.Topology, bool) {
	return acpi.Topology{CPUCount: 4}, true
}

func detectFn(drv device.Driver) device.ProbeFn {
	return func() device.Driver { return drv }
}

func resetDevices(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	devices = managedDevices{}
	kfmt.SetOutputSink(&buf)
	buf.Reset()
	return &buf
}

func TestDetectHardware(t *testing.T) {
	buf := resetDevices(t)
	defer func() {
		devices = managedDevices{}
		kfmt.SetOutputSink(nil)
	}()

	acpiDrv := &fakeACPIDriver{fakeDriver: fakeDriver{name: "ACPI", initLog: "2 tables"}, rsdp: 0x1000}
	serial := &fakeDriver{name: "serial", initErr: errInitFailed}
	early := &fakeDriver{name: "early"}

	drivers := device.DriverInfoList{
		{Order: device.DetectOrderLast, Probe: detectFn(serial)},
		{Order: device.DetectOrderACPI, Probe: detectFn(acpiDrv), Required: true},
		{Order: device.DetectOrderEarly, Probe: func() device.Driver { return nil }},
		{Order: device.DetectOrderEarly, Probe: detectFn(early)},
	}

	if err := DetectHardware(drivers); err != nil {
		t.Fatal(err)
	}

	exp := "[hal] early(1.2.3): initialized\n" +
		"[hal] ACPI(1.2.3): 2 tables\n" +
		"[hal] ACPI(1.2.3): initialized\n" +
		"[hal] serial(1.2.3): init failed: device not responding\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected output:\n%q\ngot:\n%q", exp, got)
	}

	if got := len(ActiveDrivers()); got != 2 {
		t.Fatalf("expected 2 active drivers; got %d", got)
	}

	if ACPI() != acpiDrv {
		t.Fatal("expected the ACPI driver to be tracked by the HAL")
	}
}

func TestDetectHardwareRequiredDriverFails(t *testing.T) {
	buf := resetDevices(t)
	defer func() {
		devices = managedDevices{}
		kfmt.SetOutputSink(nil)
	}()

	acpiDrv := &fakeACPIDriver{fakeDriver: fakeDriver{name: "ACPI", initErr: errInitFailed}}
	late := &fakeDriver{name: "late"}

	drivers := device.DriverInfoList{
		{Order: device.DetectOrderACPI, Probe: detectFn(acpiDrv), Required: true},
		{Order: device.DetectOrderLast, Probe: detectFn(late)},
	}

	err := DetectHardware(drivers)
	if errors.Cause(err) != errInitFailed {
		t.Fatalf("expected errInitFailed as the cause; got %v", err)
	}

	if exp := "ACPI: device not responding"; err.Error() != exp {
		t.Fatalf("expected error %q; got %q", exp, err.Error())
	}

	if exp := "[hal] ACPI(1.2.3): init failed: device not responding\n"; buf.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, buf.String())
	}

	if len(ActiveDrivers()) != 0 || ACPI() != nil {
		t.Fatal("expected no drivers to be active")
	}
}

func TestDetectHardwareWithoutSink(t *testing.T) {
	devices = managedDevices{}
	kfmt.SetOutputSink(io.Discard)
	kfmt.SetOutputSink(nil)
	defer func() {
		devices = managedDevices{}
		kfmt.SetOutputSink(nil)
	}()

	drivers := device.DriverInfoList{
		{Order: device.DetectOrderEarly, Probe: detectFn(&fakeDriver{name: "early"})},
	}
	if err := DetectHardware(drivers); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	if exp := "[hal] early(1.2.3): initialized\n"; buf.String() != exp {
		t.Fatalf("expected buffered output %q to be replayed; got %q", exp, buf.String())
	}
}
