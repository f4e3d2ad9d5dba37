package wasm

import "sort"

// Opcode is a decoded instruction code: a primary byte plus an optional
// extension prefix byte reserved for threads/SIMD/future opcodes not
// covered by the MVP set. code alone addresses every MVP-era instruction;
// prefix is non-zero only for the extended space.
type Opcode struct {
	Prefix byte
	Code   byte
}

// OpcodeInfo is the static metadata every opcode carries: its mnemonic,
// its operand/result shape for the validator, and its memory-access size
// for load/store instructions (0 otherwise). Kept as one sorted table per
// the "do not scatter this knowledge across event handlers" design note,
// rather than as per-handler switch statements.
type OpcodeInfo struct {
	Op       Opcode
	Mnemonic string
	Arg1     ValueType // Void if the instruction takes no first operand
	Arg2     ValueType // Void if there is no second operand
	Result   ValueType // Void if the instruction produces no value
	MemSize  uint8     // byte width of a load/store access, else 0

	// Polymorphic instructions (select, br, br_if, br_table, return,
	// unreachable, call, call_indirect) don't have a fixed Arg/Result
	// shape; IsPolymorphic marks them. The Compiler special-cases them by
	// opcode instead of reading Arg1/Arg2/Result.
	IsPolymorphic bool
}

// invalidOpcode is the sentinel metadata returned for an unrecognized
// (prefix, code) pair, carrying the raw bytes so callers can still report
// a useful diagnostic instead of losing the original encoding.
func invalidOpcode(op Opcode) OpcodeInfo {
	return OpcodeInfo{Op: op, Mnemonic: "invalid"}
}

var opcodeTable []OpcodeInfo

func reg(code byte, mnemonic string, arg1, arg2, result ValueType, memSize uint8) {
	opcodeTable = append(opcodeTable, OpcodeInfo{
		Op:       Opcode{Code: code},
		Mnemonic: mnemonic,
		Arg1:     arg1,
		Arg2:     arg2,
		Result:   result,
		MemSize:  memSize,
	})
}

func regPoly(code byte, mnemonic string) {
	opcodeTable = append(opcodeTable, OpcodeInfo{
		Op:            Opcode{Code: code},
		Mnemonic:      mnemonic,
		IsPolymorphic: true,
	})
}

func init() {
	// Control flow.
	regPoly(0x00, "unreachable")
	reg(0x01, "nop", Void, Void, Void, 0)
	regPoly(0x02, "block")
	regPoly(0x03, "loop")
	regPoly(0x04, "if")
	regPoly(0x05, "else")
	regPoly(0x0B, "end")
	regPoly(0x0C, "br")
	regPoly(0x0D, "br_if")
	regPoly(0x0E, "br_table")
	regPoly(0x0F, "return")
	regPoly(0x10, "call")
	regPoly(0x11, "call_indirect")

	// Parametric.
	reg(0x1A, "drop", Any, Void, Void, 0)
	regPoly(0x1B, "select")

	// Variable access. Result/Arg types are resolved against the local's
	// declared type at validation time; Any here means "whatever the
	// local's type is".
	reg(0x20, "local.get", Void, Void, Any, 0)
	reg(0x21, "local.set", Any, Void, Void, 0)
	reg(0x22, "local.tee", Any, Void, Any, 0)
	reg(0x23, "global.get", Void, Void, Any, 0)
	reg(0x24, "global.set", Any, Void, Void, 0)

	// Memory.
	memLoad := []struct {
		code byte
		name string
		typ  ValueType
		size uint8
	}{
		{0x28, "i32.load", I32, 4}, {0x29, "i64.load", I64, 8},
		{0x2A, "f32.load", F32, 4}, {0x2B, "f64.load", F64, 8},
		{0x2C, "i32.load8_s", I32, 1}, {0x2D, "i32.load8_u", I32, 1},
		{0x2E, "i32.load16_s", I32, 2}, {0x2F, "i32.load16_u", I32, 2},
		{0x30, "i64.load8_s", I64, 1}, {0x31, "i64.load8_u", I64, 1},
		{0x32, "i64.load16_s", I64, 2}, {0x33, "i64.load16_u", I64, 2},
		{0x34, "i64.load32_s", I64, 4}, {0x35, "i64.load32_u", I64, 4},
	}
	for _, m := range memLoad {
		reg(m.code, m.name, I32, Void, m.typ, m.size)
	}
	memStore := []struct {
		code byte
		name string
		typ  ValueType
		size uint8
	}{
		{0x36, "i32.store", I32, 4}, {0x37, "i64.store", I64, 8},
		{0x38, "f32.store", F32, 4}, {0x39, "f64.store", F64, 8},
		{0x3A, "i32.store8", I32, 1}, {0x3B, "i32.store16", I32, 2},
		{0x3C, "i64.store8", I64, 1}, {0x3D, "i64.store16", I64, 2},
		{0x3E, "i64.store32", I64, 4},
	}
	for _, m := range memStore {
		reg(m.code, m.name, I32, m.typ, Void, m.size)
	}
	reg(0x3F, "memory.size", Void, Void, I32, 0)
	reg(0x40, "memory.grow", I32, Void, I32, 0)

	// Constants.
	reg(0x41, "i32.const", Void, Void, I32, 0)
	reg(0x42, "i64.const", Void, Void, I64, 0)
	reg(0x43, "f32.const", Void, Void, F32, 0)
	reg(0x44, "f64.const", Void, Void, F64, 0)

	// i32 comparisons/arithmetic.
	regIntCompare(0x45, "i32.eqz", I32, Void)
	for i, name := range []string{"eq", "ne", "lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u"} {
		reg(0x46+byte(i), "i32."+name, I32, I32, I32, 0)
	}
	for i, name := range []string{"clz", "ctz", "popcnt"} {
		reg(0x67+byte(i), "i32."+name, I32, Void, I32, 0)
	}
	for i, name := range []string{"add", "sub", "mul", "div_s", "div_u", "rem_s", "rem_u", "and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr"} {
		reg(0x6A+byte(i), "i32."+name, I32, I32, I32, 0)
	}

	// i64 comparisons/arithmetic.
	regIntCompare(0x50, "i64.eqz", I64, Void)
	for i, name := range []string{"eq", "ne", "lt_s", "lt_u", "gt_s", "gt_u", "le_s", "le_u", "ge_s", "ge_u"} {
		reg(0x51+byte(i), "i64."+name, I64, I64, I32, 0)
	}
	for i, name := range []string{"clz", "ctz", "popcnt"} {
		reg(0x79+byte(i), "i64."+name, I64, Void, I64, 0)
	}
	for i, name := range []string{"add", "sub", "mul", "div_s", "div_u", "rem_s", "rem_u", "and", "or", "xor", "shl", "shr_s", "shr_u", "rotl", "rotr"} {
		reg(0x7C+byte(i), "i64."+name, I64, I64, I64, 0)
	}

	// f32 comparisons/arithmetic.
	for i, name := range []string{"eq", "ne", "lt", "gt", "le", "ge"} {
		reg(0x5B+byte(i), "f32."+name, F32, F32, I32, 0)
	}
	for i, name := range []string{"abs", "neg", "ceil", "floor", "trunc", "nearest", "sqrt"} {
		reg(0x8B+byte(i), "f32."+name, F32, Void, F32, 0)
	}
	for i, name := range []string{"add", "sub", "mul", "div", "min", "max", "copysign"} {
		reg(0x92+byte(i), "f32."+name, F32, F32, F32, 0)
	}

	// f64 comparisons/arithmetic.
	for i, name := range []string{"eq", "ne", "lt", "gt", "le", "ge"} {
		reg(0x61+byte(i), "f64."+name, F64, F64, I32, 0)
	}
	for i, name := range []string{"abs", "neg", "ceil", "floor", "trunc", "nearest", "sqrt"} {
		reg(0x99+byte(i), "f64."+name, F64, Void, F64, 0)
	}
	for i, name := range []string{"add", "sub", "mul", "div", "min", "max", "copysign"} {
		reg(0xA0+byte(i), "f64."+name, F64, F64, F64, 0)
	}

	// Conversions.
	conv := []struct {
		code byte
		name string
		from ValueType
		to   ValueType
	}{
		{0xA7, "i32.wrap_i64", I64, I32},
		{0xA8, "i32.trunc_f32_s", F32, I32}, {0xA9, "i32.trunc_f32_u", F32, I32},
		{0xAA, "i32.trunc_f64_s", F64, I32}, {0xAB, "i32.trunc_f64_u", F64, I32},
		{0xAC, "i64.extend_i32_s", I32, I64}, {0xAD, "i64.extend_i32_u", I32, I64},
		{0xAE, "i64.trunc_f32_s", F32, I64}, {0xAF, "i64.trunc_f32_u", F32, I64},
		{0xB0, "i64.trunc_f64_s", F64, I64}, {0xB1, "i64.trunc_f64_u", F64, I64},
		{0xB2, "f32.convert_i32_s", I32, F32}, {0xB3, "f32.convert_i32_u", I32, F32},
		{0xB4, "f32.convert_i64_s", I64, F32}, {0xB5, "f32.convert_i64_u", I64, F32},
		{0xB6, "f32.demote_f64", F64, F32},
		{0xB7, "f64.convert_i32_s", I32, F64}, {0xB8, "f64.convert_i32_u", I32, F64},
		{0xB9, "f64.convert_i64_s", I64, F64}, {0xBA, "f64.convert_i64_u", I64, F64},
		{0xBB, "f64.promote_f32", F32, F64},
		{0xBC, "i32.reinterpret_f32", F32, I32},
		{0xBD, "i64.reinterpret_f64", F64, I64},
		{0xBE, "f32.reinterpret_i32", I32, F32},
		{0xBF, "f64.reinterpret_i64", I64, F64},
	}
	for _, c := range conv {
		reg(c.code, c.name, c.from, Void, c.to, 0)
	}

	sort.Slice(opcodeTable, func(i, j int) bool { return key(opcodeTable[i].Op) < key(opcodeTable[j].Op) })
}

func regIntCompare(code byte, name string, arg ValueType, unused ValueType) {
	reg(code, name, arg, Void, I32, 0)
}

func key(op Opcode) uint32 {
	return uint32(op.Prefix)<<8 | uint32(op.Code)
}

// Lookup returns the static metadata for op, or the invalid sentinel (with
// Mnemonic == "invalid" and Op == op) if op is not a recognized encoding.
// Lookup is a binary search over the sorted table, per the opcode-table
// design note: do not scatter opcode knowledge across event handlers.
func Lookup(op Opcode) OpcodeInfo {
	k := key(op)
	i := sort.Search(len(opcodeTable), func(i int) bool { return key(opcodeTable[i].Op) >= k })
	if i < len(opcodeTable) && key(opcodeTable[i].Op) == k {
		return opcodeTable[i]
	}
	return invalidOpcode(op)
}
