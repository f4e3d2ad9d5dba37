package wasm

import (
	"encoding/binary"

	"github.com/vertexdlt/wasmlink/leb128"
)

// Encoders for the structural types this package defines. These are the
// re-emission counterpart of reader/sections.go's decode functions: given
// an already-decoded value (optionally with its indices renumbered by the
// linker), produce the identical wire encoding a compliant writer would.
//
// Nothing here frames a section (id + size); callers wrap the payload
// these return with WriteSection.

// WriteSection appends a complete section (id, uLEB128 size, payload) to
// dst.
func WriteSection(dst []byte, id SectionID, payload []byte) []byte {
	dst = append(dst, byte(id))
	dst = leb128.EncodeU32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// EncodeName appends a length-prefixed string.
func EncodeName(dst []byte, s string) []byte {
	dst = leb128.EncodeU32(dst, uint32(len(s)))
	return append(dst, s...)
}

// EncodeValueType appends the signed-LEB128 encoding of a concrete value
// type or Void.
func EncodeValueType(dst []byte, t ValueType) []byte {
	return append(dst, byte(t)&0x7f)
}

// EncodeFuncType appends one type-section entry: form byte 0x60, params,
// then 0 or 1 result.
func EncodeFuncType(dst []byte, ft FuncType) []byte {
	dst = append(dst, 0x60)
	dst = leb128.EncodeU32(dst, uint32(len(ft.Params)))
	for _, p := range ft.Params {
		dst = EncodeValueType(dst, p)
	}
	if ft.Result == Void {
		dst = leb128.EncodeU32(dst, 0)
	} else {
		dst = leb128.EncodeU32(dst, 1)
		dst = EncodeValueType(dst, ft.Result)
	}
	return dst
}

// EncodeLimits appends a limits record: flag byte then min (and max, when
// present).
func EncodeLimits(dst []byte, l Limits) []byte {
	if l.HasMax {
		dst = append(dst, 0x01)
		dst = leb128.EncodeU32(dst, l.Initial)
		dst = leb128.EncodeU32(dst, l.Max)
	} else {
		dst = append(dst, 0x00)
		dst = leb128.EncodeU32(dst, l.Initial)
	}
	return dst
}

// EncodeTableType appends a table type: element kind byte then limits.
func EncodeTableType(dst []byte, t TableType) []byte {
	dst = append(dst, t.ElemType)
	return EncodeLimits(dst, t.Limits)
}

// EncodeMemType appends a memory type: just limits.
func EncodeMemType(dst []byte, m MemType) []byte {
	return EncodeLimits(dst, m.Limits)
}

// EncodeGlobalType appends a global type: value type byte then
// mutability flag.
func EncodeGlobalType(dst []byte, g GlobalType) []byte {
	dst = EncodeValueType(dst, g.Value)
	if g.Mutable {
		return append(dst, 0x01)
	}
	return append(dst, 0x00)
}

// EncodeConstExpr appends a constant expression: one literal or
// get_global, followed by end. globalIdx, when ce.IsGetGlobal, is the
// already-renumbered index to emit (the caller owns renumbering; this
// package never renumbers on its own).
func EncodeConstExpr(dst []byte, ce ConstExpr, globalIdx uint32) []byte {
	switch {
	case ce.IsGetGlobal:
		dst = append(dst, opGetGlobal)
		dst = leb128.EncodeU32(dst, globalIdx)
	case ce.Type == I32:
		dst = append(dst, opI32Const)
		dst = leb128.EncodeI32(dst, ce.I32)
	case ce.Type == I64:
		dst = append(dst, opI64Const)
		dst = leb128.EncodeI64(dst, ce.I64)
	case ce.Type == F32:
		dst = append(dst, opF32Const)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], ce.F32Bits)
		dst = append(dst, b[:]...)
	case ce.Type == F64:
		dst = append(dst, opF64Const)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], ce.F64Bits)
		dst = append(dst, b[:]...)
	}
	return append(dst, opEnd)
}

// EncodeImport appends an import-section entry.
func EncodeImport(dst []byte, imp Import) []byte {
	dst = EncodeName(dst, imp.Module)
	dst = EncodeName(dst, imp.Field)
	dst = append(dst, imp.Desc.Kind)
	switch imp.Desc.Kind {
	case ExternalFunc:
		dst = leb128.EncodeU32(dst, imp.Desc.TypeIdx)
	case ExternalTable:
		dst = EncodeTableType(dst, *imp.Desc.Table)
	case ExternalMemory:
		dst = EncodeMemType(dst, *imp.Desc.Mem)
	case ExternalGlobal:
		dst = EncodeGlobalType(dst, *imp.Desc.Global)
	}
	return dst
}

// EncodeExport appends an export-section entry.
func EncodeExport(dst []byte, e Export) []byte {
	dst = EncodeName(dst, e.Name)
	dst = append(dst, e.Desc.Kind)
	return leb128.EncodeU32(dst, e.Desc.Idx)
}

// EncodeElement appends an element-segment entry. globalIdx is passed
// through to EncodeConstExpr for the get_global case (unused for the
// i32.const-only offsets the linker ever emits, but kept symmetric).
func EncodeElement(dst []byte, e Element, globalIdx uint32) []byte {
	dst = leb128.EncodeU32(dst, e.TableIdx)
	dst = EncodeConstExpr(dst, e.Offset, globalIdx)
	dst = leb128.EncodeU32(dst, uint32(len(e.Funcs)))
	for _, f := range e.Funcs {
		dst = leb128.EncodeU32(dst, f)
	}
	return dst
}

// EncodeDataSegment appends a data-segment entry.
func EncodeDataSegment(dst []byte, d DataSegment, globalIdx uint32) []byte {
	dst = leb128.EncodeU32(dst, d.MemIdx)
	dst = EncodeConstExpr(dst, d.Offset, globalIdx)
	dst = leb128.EncodeU32(dst, uint32(len(d.Init)))
	return append(dst, d.Init...)
}
