package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"walnut/kernel/hal/efi"
	"walnut/kernel/mm"

	"github.com/pkg/errors"
)

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[efimap] error: %s\n", err.Error())
	os.Exit(1)
}

// printMap decodes a raw memory map whose descriptors are descSize bytes
// apart and prints every descriptor followed by the usable ranges. When
// vmap is set, the descriptors that would be passed to
// SetVirtualAddressMap with the given offset are printed as well.
func printMap(w io.Writer, data []byte, descSize uint64, vmap bool, offset uint64) error {
	m := efi.MemoryMap{Buffer: data, DescriptorSize: descSize, DescriptorVersion: efi.MemoryDescriptorVersion}
	if descSize < efi.SizeofMemoryDescriptor {
		return errors.Wrapf(efi.ErrBadDescriptorSize, "descriptor size %d", descSize)
	}
	if uint64(len(data))%descSize != 0 {
		fmt.Fprintf(w, "warning: ignoring %d trailing byte(s)\n", uint64(len(data))%descSize)
	}

	m.VisitMemRegions(func(desc *efi.MemoryDescriptor) bool {
		fmt.Fprintf(w, "%-24s 0x%016x %8d page(s) attr 0x%x\n",
			desc.Type.String(), desc.PhysicalStart, desc.NumberOfPages, desc.Attribute,
		)
		return true
	})

	set, err := m.UsableRanges()
	if err != nil {
		return errors.Wrap(err, "collect usable ranges")
	}

	fmt.Fprintf(w, "\nusable ranges:\n")
	set.Visit(func(r mm.Range) bool {
		fmt.Fprintf(w, "  [0x%016x - 0x%016x) %d bytes\n", r.Start, r.End, r.Size())
		return true
	})

	largest, _ := set.Largest()
	fmt.Fprintf(w, "largest: [0x%x - 0x%x)\n", largest.Start, largest.End)
	fmt.Fprintf(w, "total: %d bytes (%d KiB)\n", set.TotalSize(), set.TotalSize()/uint64(mm.Kb))

	if !vmap {
		return nil
	}

	var descs [mm.MaxRanges]efi.MemoryDescriptor
	n := efi.ToDescriptors(&set, descs[:])
	if err := efi.IDMap(descs[:n], offset); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nvirtual address map:\n")
	for _, desc := range descs[:n] {
		fmt.Fprintf(w, "  0x%016x -> 0x%016x %8d page(s)\n", desc.PhysicalStart, desc.VirtualStart, desc.NumberOfPages)
	}

	return nil
}

func main() {
	var (
		in       = flag.String("in", "", "path to a raw memory map dump")
		descSize = flag.Uint64("desc-size", efi.SizeofMemoryDescriptor, "size of each descriptor in the dump")
		vmap     = flag.String("vmap", "", "print the virtual address map for this hex offset")
	)
	flag.Parse()

	if *in == "" {
		exit(errors.New("missing -in argument"))
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		exit(err)
	}

	var offset uint64
	if *vmap != "" {
		if offset, err = strconv.ParseUint(*vmap, 0, 64); err != nil {
			exit(errors.Wrapf(err, "invalid -vmap offset %q", *vmap))
		}
	}

	if err = printMap(os.Stdout, data, *descSize, *vmap != "", offset); err != nil {
		exit(err)
	}
}
