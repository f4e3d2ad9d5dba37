package wasm

// RelocType identifies what kind of index a relocation record's operand
// LEB encodes, mirroring the linkable-object relocation types used by
// the custom "reloc.<section>" sections (§3/§6).
type RelocType uint32

const (
	RelocFuncIndexLEB    RelocType = iota // call target operand
	RelocTableIndexSLEB                   // element-segment function reference
	RelocGlobalIndexLEB                   // get_global/set_global operand
	RelocMemoryAddrLEB                    // data segment / memory.init offset
	RelocTypeIndexLEB                     // call_indirect signature operand
	RelocFuncIndexI32                     // table/elem entries stored as raw i32
)

func (t RelocType) String() string {
	switch t {
	case RelocFuncIndexLEB:
		return "R_FUNC_INDEX_LEB"
	case RelocTableIndexSLEB:
		return "R_TABLE_INDEX_SLEB"
	case RelocGlobalIndexLEB:
		return "R_GLOBAL_INDEX_LEB"
	case RelocMemoryAddrLEB:
		return "R_MEMORY_ADDR_LEB"
	case RelocTypeIndexLEB:
		return "R_TYPE_INDEX_LEB"
	case RelocFuncIndexI32:
		return "R_FUNC_INDEX_I32"
	default:
		return "R_UNKNOWN"
	}
}

// RelocEntry is a single relocation record: the byte offset (relative to
// the start of the target section's payload) of a LEB128 operand that
// must be rewritten once indices are renumbered, plus an optional addend
// for relocation types that need one.
type RelocEntry struct {
	Type   RelocType
	Offset uint32
	Addend int32
}

// RelocSection is the decoded content of one "reloc.<section-name>"
// custom section: which section it targets, plus its relocation records
// in file order.
type RelocSection struct {
	TargetSection SectionID
	CustomName    string // set only when TargetSection == SectionCustom
	Entries       []RelocEntry
}

// NameEntry is one function's debug-name record from the "name" custom
// section: the function's own name plus its locals' names.
type NameEntry struct {
	FuncIdx    uint32
	Name       string
	LocalNames []string
}
