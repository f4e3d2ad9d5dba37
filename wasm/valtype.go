// Package wasm holds the immutable, wire-level data model shared by the
// reader, the validator/compiler, and the linker: value types, opcode
// metadata, section identifiers and the structural types decoded from a
// module (signatures, limits, imports, exports, segments).
//
// Nothing in this package performs I/O. It is the "format primitives +
// data model" layer the rest of the core is built on, grounded in the
// teacher's const-block style for section and value-type bytes
// (vertexvm/wasm/module.go) but reshaped into static tables instead of
// scattered constants, per the opcode-table design note.
package wasm

import "fmt"

// ValueType is one of the four concrete wasm value types, plus two marker
// values used only inside the validator and never serialized: Any (a
// stack slot made polymorphic by preceding unreachable code) and Void
// (the absence of a result). Concrete types are encoded on the wire as
// the signed LEB128 of a small negative integer.
type ValueType int8

const (
	I32 ValueType = -0x01 // 0x7f
	I64 ValueType = -0x02 // 0x7e
	F32 ValueType = -0x03 // 0x7d
	F64 ValueType = -0x04 // 0x7c

	// AnyFunc is the element type of the (sole, MVP) table kind.
	AnyFunc ValueType = -0x10 // 0x70

	// Void marks an empty block/if signature or a function with no result.
	Void ValueType = -0x40 // 0x40

	// Any is the validator-internal bottom/top element: it unifies with
	// any concrete type and marks a value-stack slot unreachable after an
	// unconditional branch. It is never read from or written to the wire.
	Any ValueType = 0x7f
)

// IsConcrete reports whether t is one of {i32, i64, f32, f64}.
func (t ValueType) IsConcrete() bool {
	switch t {
	case I32, I64, F32, F64:
		return true
	default:
		return false
	}
}

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case AnyFunc:
		return "anyfunc"
	case Void:
		return "void"
	case Any:
		return "any"
	default:
		return fmt.Sprintf("valtype(%d)", int8(t))
	}
}

// DecodeValueType maps a wire byte to a ValueType, rejecting anything that
// isn't one of the four concrete types. Block signatures additionally
// accept Void and are decoded separately (see DecodeBlockType) since they
// share the encoding space with type indices.
func DecodeValueType(b byte) (ValueType, bool) {
	if b&0x80 != 0 {
		return 0, false
	}
	// Sign-extend the 7-bit single-byte signed LEB128 payload.
	vt := ValueType(int8(b<<1) >> 1)
	switch vt {
	case I32, I64, F32, F64:
		return vt, true
	default:
		return 0, false
	}
}

// DecodeBlockType maps a block/if signature byte to either Void or a
// concrete ValueType. Any other byte, including the first byte of a type
// index, yields ok == false.
func DecodeBlockType(b byte) (vt ValueType, ok bool) {
	if b&0x80 != 0 {
		return 0, false
	}
	vt = ValueType(int8(b<<1) >> 1)
	switch vt {
	case Void, I32, I64, F32, F64:
		return vt, true
	default:
		return 0, false
	}
}
