package phys

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const devMemPageSize = 4096

// DevMem is a Memory backed by the Linux /dev/mem device. Pages are mapped
// read-only on first access and stay mapped until Close is called.
type DevMem struct {
	mu    sync.Mutex
	fd    int
	pages map[Addr][]byte
}

// OpenDevMem opens the physical memory device at path (usually /dev/mem).
func OpenDevMem(path string) (*DevMem, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_SYNC|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	return &DevMem{fd: fd, pages: make(map[Addr][]byte)}, nil
}

// ReadPhys implements Memory.
func (m *DevMem) ReadPhys(addr Addr, p []byte) error {
	if _, ok := addr.Add(uint64(len(p))); !ok {
		return ErrAddrOverflow
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for len(p) > 0 {
		page, err := m.page(addr &^ (devMemPageSize - 1))
		if err != nil {
			return err
		}

		n := copy(p, page[addr&(devMemPageSize-1):])
		p = p[n:]
		addr += Addr(n)
	}

	return nil
}

func (m *DevMem) page(base Addr) ([]byte, error) {
	if page, ok := m.pages[base]; ok {
		return page, nil
	}

	page, err := unix.Mmap(m.fd, int64(base), devMemPageSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap physical page 0x%x", uint64(base))
	}

	m.pages[base] = page
	return page, nil
}

// Close unmaps all cached pages and closes the device.
func (m *DevMem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for base, page := range m.pages {
		if err := unix.Munmap(page); err != nil {
			return errors.Wrapf(err, "munmap physical page 0x%x", uint64(base))
		}
		delete(m.pages, base)
	}

	return unix.Close(m.fd)
}
