package efi

import (
	"sync/atomic"

	"walnut/kernel"
)

var (
	// ErrCouldntRegisterSystemTable is returned by Register if a system
	// table is already registered.
	ErrCouldntRegisterSystemTable = &kernel.Error{Module: "efi", Message: "system table already registered"}

	// ErrCouldntAccessSystemTable is returned by Load if no system table
	// is registered or boot services have been exited.
	ErrCouldntAccessSystemTable = &kernel.Error{Module: "efi", Message: "system table is not available"}

	activeSystemTable atomic.Pointer[SystemTable]
)

// Register makes st the system table returned by Load. Only one system
// table can be registered at a time.
func Register(st *SystemTable) *kernel.Error {
	if st == nil || !activeSystemTable.CompareAndSwap(nil, st) {
		return ErrCouldntRegisterSystemTable
	}
	return nil
}

// Load returns the registered system table.
func Load() (*SystemTable, *kernel.Error) {
	st := activeSystemTable.Load()
	if st == nil {
		return nil, ErrCouldntAccessSystemTable
	}
	return st, nil
}

// Destroy unregisters the system table. It is called once boot services
// have been exited since the table's boot services are no longer valid.
func Destroy() {
	activeSystemTable.Store(nil)
}
