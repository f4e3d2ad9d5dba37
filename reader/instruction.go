package reader

import "github.com/vertexdlt/wasmlink/wasm"

// BrTableImm is the decoded immediate of a br_table instruction: zero or
// more explicit targets plus the mandatory default.
type BrTableImm struct {
	Targets []uint32
	Default uint32
}

// Instruction is one decoded expression-stream opcode plus whichever of
// its immediates apply, handed to Handler.OnInstruction in byte order.
// Only the fields relevant to Op.Code are populated; the rest are zero.
type Instruction struct {
	Op     wasm.Opcode
	Offset uint32 // byte offset of this opcode within the enclosing body

	I32       int32
	I64       int64
	F32Bits   uint32
	F64Bits   uint64
	LocalIdx  uint32
	GlobalIdx uint32
	FuncIdx   uint32
	TypeIdx   uint32
	TableIdx  uint32
	MemAlign  uint32
	MemOffset uint32
	BlockType wasm.ValueType
	BrDepth   uint32
	BrTable   *BrTableImm
}
