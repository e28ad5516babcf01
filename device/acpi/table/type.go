package table

// TableType identifies an ACPI table by its signature.
type TableType uint8

// The list of table types known to the acpi package. Tables with any other
// signature map to TableUnknown; their raw signature stays available in
// their SDTHeader.
const (
	TableUnknown TableType = iota
	TableRSDP
	TableRSDPExtended
	TableRSDT
	TableXSDT
	TableFADT
	TableDSDT
	TableMADT
	TableSRAT
	TableSPCR
)

var tableSignatures = [...]struct {
	sig [4]byte
	typ TableType
}{
	{[4]byte{'R', 'S', 'D', 'P'}, TableRSDP},
	{[4]byte{'R', 'S', 'D', 'T'}, TableRSDT},
	{[4]byte{'X', 'S', 'D', 'T'}, TableXSDT},
	{[4]byte{'F', 'A', 'C', 'P'}, TableFADT},
	{[4]byte{'D', 'S', 'D', 'T'}, TableDSDT},
	{[4]byte{'A', 'P', 'I', 'C'}, TableMADT},
	{[4]byte{'S', 'R', 'A', 'T'}, TableSRAT},
	{[4]byte{'S', 'P', 'C', 'R'}, TableSPCR},
}

// TypeOf maps a table signature to its TableType.
func TypeOf(sig [4]byte) TableType {
	for _, entry := range tableSignatures {
		if entry.sig == sig {
			return entry.typ
		}
	}
	return TableUnknown
}

// String implements fmt.Stringer.
func (t TableType) String() string {
	switch t {
	case TableRSDP:
		return "RSDP"
	case TableRSDPExtended:
		return "RSDP (extended)"
	case TableRSDT:
		return "RSDT"
	case TableXSDT:
		return "XSDT"
	case TableFADT:
		return "FADT"
	case TableDSDT:
		return "DSDT"
	case TableMADT:
		return "MADT"
	case TableSRAT:
		return "SRAT"
	case TableSPCR:
		return "SPCR"
	default:
		return "unknown"
	}
}
