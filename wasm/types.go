package wasm

// FuncType is a function signature: an ordered list of parameter types
// and at most one result type, stored in the type section and referenced
// by index from imports, module-local functions, and call_indirect.
//
// Adapted from the teacher's wasm.FuncType (vertexvm/wasm/module.go),
// unchanged in shape: the reader never builds a *Module, so this struct
// now travels through a single OnSignature event instead of living inside
// a TypeSec container.
type FuncType struct {
	Params []ValueType
	Result ValueType // Void if the function has no result
}

// Limits is a resizable-thing's (table/memory) size bounds. Initial must
// be <= Max when HasMax is set, and for memories Max (and Initial) must
// never exceed MaxPages.
type Limits struct {
	Initial uint32
	HasMax  bool
	Max     uint32
}

// TableType describes the single table kind the MVP supports: a resizable
// array of AnyFunc elements.
type TableType struct {
	ElemType byte // always ElemTypeFuncRef in the MVP
	Limits   Limits
}

// ElemTypeFuncRef is the only table element type the MVP format allows.
const ElemTypeFuncRef byte = 0x70

// MemType describes a linear memory's size bounds, in 64KiB pages.
type MemType struct {
	Limits Limits
}

// GlobalType is a global's value type plus its mutability flag.
type GlobalType struct {
	Value   ValueType
	Mutable bool
}

// ImportDesc is the kind-specific payload of an Import.
type ImportDesc struct {
	Kind    byte
	TypeIdx uint32 // valid when Kind == ExternalFunc
	Table   *TableType
	Mem     *MemType
	Global  *GlobalType
}

// Import is a single entry of the import section: a symbolic reference
// resolved against another module's exports, keyed by (Module, Field).
type Import struct {
	Module string
	Field  string
	Desc   ImportDesc
}

// ExportDesc names the kind and the index-in-kind an export resolves to.
// The index space is the union of imports-of-that-kind followed by
// module-local definitions of that kind.
type ExportDesc struct {
	Kind byte
	Idx  uint32
}

// Export is a single entry of the export section. Neither the reader nor
// the Compiler checks export names for uniqueness.
type Export struct {
	Name string
	Desc ExportDesc
}

// ConstExpr is a decoded, already-evaluated init-expression: a global
// initializer or an element/data segment offset. Exactly one of the wasm
// numeric types is populated, selected by Type.
type ConstExpr struct {
	Type       ValueType
	I32        int32
	I64        int64
	F32Bits    uint32
	F64Bits    uint64
	GlobalIdx  uint32 // valid when this expression was get_global <idx>
	IsGetGlobal bool
}

// Global is a module-level or imported global: its type plus, for
// module-local globals, its evaluated constant initializer.
type Global struct {
	Type GlobalType
	Init ConstExpr
}

// LocalGroup is one count-compressed run of same-typed locals inside a
// function body, e.g. "3 x i32" rather than three separate entries.
type LocalGroup struct {
	Count uint32
	Type  ValueType
}

// Element is one entry of the element section: a constant table offset
// plus the sequence of function indices to populate starting there.
type Element struct {
	TableIdx uint32
	Offset   ConstExpr
	Funcs    []uint32
}

// DataSegment is one entry of the data section: a constant memory offset
// plus the raw bytes to copy starting there.
type DataSegment struct {
	MemIdx uint32
	Offset ConstExpr
	Init   []byte
}
