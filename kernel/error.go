package kernel

// Error describes a kernel error. Errors with a fixed message are defined as
// package-level variables that point to an Error so they can be compared by
// identity and returned before the Go allocator is available.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Module + ": " + e.Message
}
