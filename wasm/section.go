package wasm

// SectionID identifies a top-level section of a wasm binary.
type SectionID byte

// Known section ids, in the order they must appear on disk (custom
// sections, id 0, may appear any number of times between any two of
// these, or before the first / after the last).
const (
	SectionCustom SectionID = 0
	SectionType   SectionID = 1
	SectionImport SectionID = 2
	SectionFunc   SectionID = 3
	SectionTable  SectionID = 4
	SectionMemory SectionID = 5
	SectionGlobal SectionID = 6
	SectionExport SectionID = 7
	SectionStart  SectionID = 8
	SectionElem   SectionID = 9
	SectionCode   SectionID = 10
	SectionData   SectionID = 11
)

func (id SectionID) String() string {
	switch id {
	case SectionCustom:
		return "custom"
	case SectionType:
		return "type"
	case SectionImport:
		return "import"
	case SectionFunc:
		return "function"
	case SectionTable:
		return "table"
	case SectionMemory:
		return "memory"
	case SectionGlobal:
		return "global"
	case SectionExport:
		return "export"
	case SectionStart:
		return "start"
	case SectionElem:
		return "element"
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	default:
		return "unknown"
	}
}

// Magic is the 4-byte wasm module header ('\0asm').
const Magic uint32 = 0x6d736100

// Version is the single binary format version this core accepts.
const Version uint32 = 0x1

// MaxPages is the largest number of 64KiB linear-memory pages a module's
// declared maximum may request.
const MaxPages uint32 = 65536

// PageSize is the fixed size, in bytes, of one linear-memory page. The
// linker uses it to turn an input's page-count contribution into a byte
// shift for that input's data-segment offsets (§4.4 Pass 4).
const PageSize uint32 = 65536

// External kinds, used by both import descriptors and export descriptors.
const (
	ExternalFunc   byte = 0x00
	ExternalTable  byte = 0x01
	ExternalMemory byte = 0x02
	ExternalGlobal byte = 0x03
)
