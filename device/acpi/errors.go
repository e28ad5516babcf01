package acpi

import "walnut/device/acpi/table"

// ErrorKind classifies the failures reported while decoding ACPI tables.
type ErrorKind uint8

// The list of ACPI error kinds.
const (
	// RSDPNotFound indicates that firmware did not publish an RSDP.
	RSDPNotFound ErrorKind = iota + 1

	// ChecksumMismatch indicates that the bytes of a table do not sum to
	// zero.
	ChecksumMismatch

	// SignatureMismatch indicates that a structure does not start with
	// its expected signature.
	SignatureMismatch

	// RevisionTooOld indicates an ACPI 1.0 RSDP; only ACPI 2.0+ systems
	// are supported.
	RevisionTooOld

	// RSDPExtendedSizeMismatch indicates an extended RSDP whose length
	// field does not match the extended descriptor size.
	RSDPExtendedSizeMismatch

	// TableTypeMismatch indicates that a table has a different type than
	// the one referenced.
	TableTypeMismatch

	// LengthMismatch indicates that a table or record length does not
	// agree with its contents.
	LengthMismatch

	// XSDTBadEntries indicates an XSDT payload that is not a whole
	// number of 8-byte entries.
	XSDTBadEntries

	// IntegerOverflow indicates that an address computation overflowed.
	IntegerOverflow

	// IntegerUnderflow indicates that a length computation underflowed.
	IntegerUnderflow
)

var kindMessages = [...]string{
	RSDPNotFound:             "RSDP not found",
	ChecksumMismatch:         "checksum mismatch",
	SignatureMismatch:        "signature mismatch",
	RevisionTooOld:           "ACPI revision too old",
	RSDPExtendedSizeMismatch: "extended RSDP size mismatch",
	TableTypeMismatch:        "table type mismatch",
	LengthMismatch:           "length mismatch",
	XSDTBadEntries:           "XSDT payload is not a multiple of the entry size",
	IntegerOverflow:          "integer overflow",
	IntegerUnderflow:         "integer underflow",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if int(k) < len(kindMessages) && kindMessages[k] != "" {
		return kindMessages[k]
	}
	return "unknown error"
}

// Error describes a failure to decode an ACPI table.
type Error struct {
	Kind ErrorKind

	// Table is the table that failed to decode. For TableTypeMismatch
	// errors it holds the expected type.
	Table table.TableType

	// Found holds the encountered type for TableTypeMismatch errors.
	Found table.TableType

	// Signature is the raw signature of the table, when known. It names
	// tables that map to TableUnknown.
	Signature [4]byte
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case ChecksumMismatch, SignatureMismatch, LengthMismatch:
		return e.Kind.String() + " (" + e.tableName(e.Table) + ")"
	case TableTypeMismatch:
		return e.Kind.String() + " (expected " + e.Table.String() + ", found " + e.tableName(e.Found) + ")"
	default:
		return e.Kind.String()
	}
}

// tableName returns the name of typ, falling back to the raw signature for
// unknown tables.
func (e *Error) tableName(typ table.TableType) string {
	if typ == table.TableUnknown && e.Signature != [4]byte{} {
		return string(e.Signature[:])
	}
	return typ.String()
}

// Is reports whether target is an *Error of the same kind, allowing
// errors.Is(err, &acpi.Error{Kind: acpi.ChecksumMismatch}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KernelModule returns the name of the module that generated the error.
func (*Error) KernelModule() string {
	return "acpi"
}

func errorf(kind ErrorKind, typ table.TableType) *Error {
	return &Error{Kind: kind, Table: typ}
}
