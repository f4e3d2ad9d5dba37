package wasm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/vertexdlt/wasmlink/leb128"
)

// Opcodes legal inside a constant expression (§4.5): one literal or
// get_global, followed by end.
const (
	opI32Const    byte = 0x41
	opI64Const    byte = 0x42
	opF32Const    byte = 0x43
	opF64Const    byte = 0x44
	opGetGlobal   byte = 0x23
	opEnd         byte = 0x0B
)

// ErrEmptyConstExpr is returned when a constant expression is just `end`
// with no preceding literal.
var ErrEmptyConstExpr = errors.New("wasm: empty constant expression")

// ErrInvalidConstExpr is returned when a constant expression contains an
// opcode outside the {const, get_global} ∪ {end} set, or the get_global
// operand refers to anything other than an already-declared import.
var ErrInvalidConstExpr = errors.New("wasm: invalid constant expression")

// GlobalResolver supplies the declared initial value of an already-known
// imported global, used to evaluate `get_global` inside an init-expr
// (imported globals are always evaluated before any module-local one).
type GlobalResolver func(idx uint32) (ConstExpr, bool)

// EvalConstExpr decodes and evaluates a single constant expression from
// the raw instruction bytes of a global initializer or segment offset
// (the bytes up to and including the trailing `end`). It does not
// validate the result's type against the surrounding declaration; that is
// the validator's job (§4.5).
func EvalConstExpr(expr []byte, globals GlobalResolver) (ConstExpr, error) {
	if len(expr) == 0 || expr[0] == opEnd {
		return ConstExpr{}, ErrEmptyConstExpr
	}
	op := expr[0]
	rest := expr[1:]
	switch op {
	case opI32Const:
		v, _, err := leb128.DecodeI32(rest)
		if err != nil {
			return ConstExpr{}, fmt.Errorf("wasm: decode i32.const operand: %w", err)
		}
		return ConstExpr{Type: I32, I32: v}, nil
	case opI64Const:
		v, _, err := leb128.DecodeI64(rest)
		if err != nil {
			return ConstExpr{}, fmt.Errorf("wasm: decode i64.const operand: %w", err)
		}
		return ConstExpr{Type: I64, I64: v}, nil
	case opF32Const:
		if len(rest) < 4 {
			return ConstExpr{}, fmt.Errorf("wasm: truncated f32.const operand")
		}
		bits := binary.LittleEndian.Uint32(rest)
		return ConstExpr{Type: F32, F32Bits: canonicalizeF32(bits)}, nil
	case opF64Const:
		if len(rest) < 8 {
			return ConstExpr{}, fmt.Errorf("wasm: truncated f64.const operand")
		}
		bits := binary.LittleEndian.Uint64(rest)
		return ConstExpr{Type: F64, F64Bits: bits}, nil
	case opGetGlobal:
		idx, _, err := leb128.DecodeU32(rest)
		if err != nil {
			return ConstExpr{}, fmt.Errorf("wasm: decode get_global operand: %w", err)
		}
		if globals == nil {
			return ConstExpr{}, ErrInvalidConstExpr
		}
		g, ok := globals(idx)
		if !ok {
			return ConstExpr{}, fmt.Errorf("%w: get_global %d refers to an undeclared import", ErrInvalidConstExpr, idx)
		}
		g.IsGetGlobal = true
		g.GlobalIdx = idx
		return g, nil
	default:
		return ConstExpr{}, fmt.Errorf("%w: opcode 0x%02x", ErrInvalidConstExpr, op)
	}
}

// canonicalizeF32 normalizes NaN payloads to a single canonical bit
// pattern. The wasm spec permits any NaN payload to round-trip through a
// constant expression, but comparing two modules byte-for-byte (as the
// linker idempotence property requires) needs a stable representation;
// math32 operates directly on the float32 domain so this never rounds
// through float64 and loses mantissa bits the way a math.IsNaN(float64(f))
// check would for certain payloads.
func canonicalizeF32(bits uint32) uint32 {
	f := math32.Float32frombits(bits)
	if math32.IsNaN(f) {
		return 0x7fc00000
	}
	return bits
}
