package reader

import "github.com/vertexdlt/wasmlink/wasm"

// decodeInstruction decodes the immediate operands (if any) that follow
// opByte, already consumed from the cursor, and returns the populated
// Instruction. offset is opByte's position relative to the start of the
// enclosing function body, which the Compiler reports in validation
// errors.
func (r *reader) decodeInstruction(opByte byte, offset uint32) (Instruction, error) {
	instr := Instruction{Op: wasm.Opcode{Code: opByte}, Offset: offset}

	switch opByte {
	case 0x00, 0x01, 0x05, 0x0B, 0x0F, // unreachable, nop, else, end, return
		0x1A, 0x1B, // drop, select
		0x45, 0x50: // i32.eqz, i64.eqz
		return instr, nil

	case 0x02, 0x03, 0x04: // block, loop, if
		b, err := r.c.readByte()
		if err != nil {
			return instr, err
		}
		vt, ok := wasm.DecodeBlockType(b)
		if !ok {
			return instr, r.c.errf("invalid block type 0x%02x", b)
		}
		instr.BlockType = vt
		return instr, nil

	case 0x0C, 0x0D: // br, br_if
		depth, err := r.c.readU32LEB("branch depth")
		if err != nil {
			return instr, err
		}
		instr.BrDepth = depth
		return instr, nil

	case 0x0E: // br_table
		count, err := r.c.readU32LEB("br_table target count")
		if err != nil {
			return instr, err
		}
		targets := make([]uint32, count)
		for i := range targets {
			targets[i], err = r.c.readU32LEB("br_table target")
			if err != nil {
				return instr, err
			}
		}
		def, err := r.c.readU32LEB("br_table default target")
		if err != nil {
			return instr, err
		}
		instr.BrTable = &BrTableImm{Targets: targets, Default: def}
		return instr, nil

	case 0x10: // call
		idx, err := r.c.readU32LEB("call function index")
		if err != nil {
			return instr, err
		}
		if idx >= r.counts.totalFuncs() {
			return instr, r.c.errf("call references undeclared function %d", idx)
		}
		instr.FuncIdx = idx
		return instr, nil

	case 0x11: // call_indirect
		typeIdx, err := r.c.readU32LEB("call_indirect type index")
		if err != nil {
			return instr, err
		}
		if int(typeIdx) >= len(r.typeSec) {
			return instr, r.c.errf("call_indirect references undeclared type %d", typeIdx)
		}
		reserved, err := r.c.readByte()
		if err != nil {
			return instr, err
		}
		if reserved != 0x00 {
			return instr, r.c.errf("call_indirect reserved byte must be zero")
		}
		instr.TypeIdx = typeIdx
		return instr, nil

	case 0x20, 0x21, 0x22: // local.get/set/tee
		idx, err := r.c.readU32LEB("local index")
		if err != nil {
			return instr, err
		}
		instr.LocalIdx = idx
		return instr, nil

	case 0x23, 0x24: // global.get/set
		idx, err := r.c.readU32LEB("global index")
		if err != nil {
			return instr, err
		}
		if idx >= r.counts.totalGlobals() {
			return instr, r.c.errf("global index %d out of range", idx)
		}
		instr.GlobalIdx = idx
		return instr, nil

	case 0x3F, 0x40: // memory.size, memory.grow
		reserved, err := r.c.readByte()
		if err != nil {
			return instr, err
		}
		if reserved != 0x00 {
			return instr, r.c.errf("reserved byte must be zero")
		}
		return instr, nil

	case 0x41: // i32.const
		v, err := r.c.readI32LEB("i32.const operand")
		if err != nil {
			return instr, err
		}
		instr.I32 = v
		return instr, nil

	case 0x42: // i64.const
		v, err := r.c.readI64LEB("i64.const operand")
		if err != nil {
			return instr, err
		}
		instr.I64 = v
		return instr, nil

	case 0x43: // f32.const
		v, err := r.c.readU32LE()
		if err != nil {
			return instr, err
		}
		instr.F32Bits = v
		return instr, nil

	case 0x44: // f64.const
		v, err := r.c.readU64LE()
		if err != nil {
			return instr, err
		}
		instr.F64Bits = v
		return instr, nil
	}

	if opByte >= 0x28 && opByte <= 0x3E { // memory loads/stores
		align, err := r.c.readU32LEB("memory access alignment")
		if err != nil {
			return instr, err
		}
		off, err := r.c.readU32LEB("memory access offset")
		if err != nil {
			return instr, err
		}
		instr.MemAlign = align
		instr.MemOffset = off
		return instr, nil
	}

	info := wasm.Lookup(instr.Op)
	if info.Mnemonic == "invalid" {
		return instr, r.c.errf("unknown opcode 0x%02x", opByte)
	}
	// Every remaining recognized opcode (comparisons, unary/binary
	// arithmetic, conversions) carries no immediate operand.
	return instr, nil
}
