package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"walnut/device/acpi"
	"walnut/device/acpi/table"
	"walnut/kernel/hal/efi"
	"walnut/kernel/mm/phys"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const defaultSystab = "/sys/firmware/efi/systab"

// physMemory is a physical memory backend that holds OS resources.
type physMemory interface {
	phys.Memory
	io.Closer
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[acpidump] error: %s\n", err.Error())
	os.Exit(1)
}

// parseSystab extracts the ACPI entries of the EFI systab file exported by
// Linux. Each line has the form KEY=0xADDR.
func parseSystab(r io.Reader) ([]efi.ConfigurationTable, error) {
	var tables []efi.ConfigurationTable

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		kv := strings.SplitN(strings.TrimSpace(scanner.Text()), "=", 2)
		if len(kv) != 2 {
			continue
		}

		var guid efi.GUID
		switch kv[0] {
		case "ACPI20":
			guid = efi.ACPI20TableGUID
		case "ACPI":
			guid = efi.ACPITableGUID
		default:
			continue
		}

		addr, err := strconv.ParseUint(kv[1], 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "systab entry %s", kv[0])
		}

		tables = append(tables, efi.ConfigurationTable{VendorGUID: guid, VendorTable: addr})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return tables, nil
}

// configTables returns the configuration tables pointing at the RSDP. An
// explicit rsdp address takes precedence over the systab file.
func configTables(rsdp, systab string) ([]efi.ConfigurationTable, error) {
	if rsdp != "" {
		addr, err := strconv.ParseUint(rsdp, 0, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid RSDP address %q", rsdp)
		}
		return []efi.ConfigurationTable{{VendorGUID: efi.ACPI20TableGUID, VendorTable: addr}}, nil
	}

	f, err := os.Open(systab)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseSystab(f)
}

// dumpLive walks the ACPI tables of the running machine through mem.
func dumpLive(w io.Writer, mem phys.Memory, tables []efi.ConfigurationTable, lenient bool) error {
	drv := acpi.NewDriver(mem, tables, acpi.Options{Lenient: lenient}, false)
	if err := drv.DriverInit(w); err != nil {
		return err
	}

	if topo, ok := drv.Topology(); ok {
		printTopology(w, &topo)
	}

	return nil
}

// tableFile is the result of validating a single table dump.
type tableFile struct {
	name   string
	size   int
	header acpi.Header
	topo   *acpi.Topology
	err    error
}

// checkTableFile validates the table stored in path. The table is mapped
// at physical address 0 of a private memory.
func checkTableFile(path string) tableFile {
	res := tableFile{name: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		res.err = err
		return res
	}
	res.size = len(data)

	mem := &phys.Regions{}
	if res.err = mem.Map(0, data); res.err != nil {
		return res
	}

	if res.header, res.err = acpi.ReadHeader(mem, 0); res.err != nil {
		return res
	}

	if res.header.Type == table.TableMADT {
		topo, err := acpi.ParseMADT(mem, res.header.PayloadAddr, res.header.PayloadLen)
		if err != nil {
			res.err = err
			return res
		}
		res.topo = &topo
	}

	return res
}

// dumpDir validates every table file in dir concurrently and prints a line
// per table in name order.
func dumpDir(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)

	results := make([]tableFile, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			results[i] = checkTableFile(path)
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return err
	}

	var failed int
	for i := range results {
		res := &results[i]
		if res.err != nil {
			failed++
			fmt.Fprintf(w, "%-8s %7d bytes  FAIL: %s\n", res.name, res.size, res.err)
			continue
		}

		fmt.Fprintf(w, "%-8s %7d bytes  %s rev %d (%s %s) ok\n",
			res.name, res.size, res.header.Name(), res.header.Revision,
			strings.TrimRight(string(res.header.OEMID[:]), " \x00"),
			strings.TrimRight(string(res.header.OEMTableID[:]), " \x00"),
		)
		if res.topo != nil {
			printTopology(w, res.topo)
		}
	}

	if failed != 0 {
		return errors.Errorf("%d of %d table(s) failed validation", failed, len(results))
	}

	return nil
}

func printTopology(w io.Writer, topo *acpi.Topology) {
	fmt.Fprintf(w, "  local APIC at 0x%x, %d CPU(s), %d IO APIC(s)\n", topo.LocalAPICAddr, topo.CPUCount, topo.IOAPICCount)
	for _, cpu := range topo.Processors {
		fmt.Fprintf(w, "  cpu %3d: APIC id %3d, x2APIC %t, usable %t\n", cpu.ProcessorID, cpu.APICID, cpu.X2APIC, cpu.Usable())
	}
	for _, ioapic := range topo.IOAPICs {
		fmt.Fprintf(w, "  IO APIC %d at 0x%x, GSI base %d\n", ioapic.ID, ioapic.Address, ioapic.SysInterruptBase)
	}
	for _, ovr := range topo.Overrides {
		fmt.Fprintf(w, "  bus %d IRQ %d -> GSI %d (flags 0x%x)\n", ovr.Bus, ovr.IRQ, ovr.GlobalInterrupt, ovr.Flags)
	}
}

func main() {
	var (
		devMem  = flag.String("devmem", "", "walk the live ACPI tables by reading physical memory from this device (e.g. /dev/mem)")
		rsdp    = flag.String("rsdp", "", "physical address of the RSDP; read from "+defaultSystab+" when omitted")
		systab  = flag.String("systab", defaultSystab, "path to the EFI systab file")
		dir     = flag.String("dir", "", "validate the table dumps in this directory (e.g. /sys/firmware/acpi/tables)")
		lenient = flag.Bool("lenient", false, "skip malformed tables instead of aborting the walk")
	)
	flag.Parse()

	switch {
	case *dir != "":
		if err := dumpDir(os.Stdout, *dir); err != nil {
			exit(err)
		}
	case *devMem != "":
		tables, err := configTables(*rsdp, *systab)
		if err != nil {
			exit(err)
		}

		mem, err := openMemory(*devMem)
		if err != nil {
			exit(err)
		}
		defer mem.Close()

		if err = dumpLive(os.Stdout, mem, tables, *lenient); err != nil {
			mem.Close()
			exit(err)
		}
	default:
		exit(errors.New("one of -dir or -devmem is required"))
	}
}
