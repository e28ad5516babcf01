package main

import (
	"walnut/kernel/hal/efi"
	"walnut/kernel/kfmt"
	"walnut/kernel/kmain"
	"walnut/kernel/mm/phys"
)

var (
	// The following variables are populated by the image entry
	// trampoline before main is invoked.
	imageHandle    uintptr
	systemTablePtr uintptr
	firmwareCaller efi.Caller

	// bootCmdLine is set at link time with
	// -ldflags "-X main.bootCmdLine=...".
	bootCmdLine string
)

// main decodes the firmware system table passed to the image entry point
// and hands control to the kernel boot path. It is intentionally defined to
// prevent the Go compiler from optimizing away the real kernel code.
//
// main is not expected to return.
func main() {
	var mem phys.Identity

	st, err := efi.DecodeSystemTable(mem, phys.Addr(systemTablePtr), firmwareCaller)
	if err != nil {
		kfmt.Panic(err)
		return
	}

	kmain.EfiMain(efi.Handle(imageHandle), st, mem, bootCmdLine, kmain.Kmain)
}
