package compile

import (
	"github.com/vertexdlt/wasmlink/compile/istream"
	"github.com/vertexdlt/wasmlink/reader"
	"github.com/vertexdlt/wasmlink/wasm"
)

// popChecked pops and type-checks one operand against want (wasm.Any
// matches anything). If the innermost label is already at its entry floor,
// the pop only succeeds when that label is marked Unreachable (§4.3
// "push any... until the nearest enclosing label closes"), in which case
// it yields wasm.Any instead of underflowing.
func (c *Compiler) popChecked(offset uint32, want wasm.ValueType) (wasm.ValueType, error) {
	lbl := c.labels.top()
	if c.ts.depth() <= lbl.StackDepthOnEntry {
		if lbl.Unreachable {
			return wasm.Any, nil
		}
		return 0, c.errf(offset, "type-stack", "stack underflow")
	}
	got := c.ts.pop()
	if want != wasm.Any && got != wasm.Any && got != want {
		return 0, c.errf(offset, "type-stack", "expected %s, got %s", want, got)
	}
	if want == wasm.Any {
		return got, nil
	}
	return want, nil
}

// arity is 0 for a void result, 1 for a concrete one — the MVP never
// allows more than a single result value (§3, §6).
func arity(vt wasm.ValueType) int {
	if vt == wasm.Void {
		return 0
	}
	return 1
}

func (c *Compiler) localTypeAt(offset uint32, idx uint32) (wasm.ValueType, error) {
	if int(idx) >= len(c.addressable) {
		return 0, c.errf(offset, "local-index", "local index %d out of range", idx)
	}
	return c.addressable[idx], nil
}

func (c *Compiler) globalTypeAt(offset uint32, idx uint32) (wasm.GlobalType, error) {
	if int(idx) >= len(c.globalTypes) {
		return wasm.GlobalType{}, c.errf(offset, "global-index", "global index %d out of range", idx)
	}
	return c.globalTypes[idx], nil
}

// resolveBranchTarget either writes the label's known branch target
// directly (Loop, whose target is its own entry point) or records a fixup
// to be patched once the label closes (Block/If/Else, whose target is
// their `end`).
func (c *Compiler) resolveBranchTarget(lbl *label) uint32 {
	at := c.w.WriteU32(0)
	if lbl.BranchTargetKnown {
		c.w.PatchU32(at, lbl.BranchTarget)
	} else {
		c.branchFixups[lbl.ID] = append(c.branchFixups[lbl.ID], at)
	}
	return at
}

// emitBranch lowers br/br_if/br_table's shared tail: compute
// (drop, keep) from the current stack depth relative to the target
// label's entry depth and arity, emit drop_keep, then the branch itself
// (§4.3 "br depth, br_if depth, br_table").
func (c *Compiler) emitBranch(offset uint32, depth uint32) (*label, error) {
	lbl, ok := c.labels.at(depth)
	if !ok {
		return nil, c.errf(offset, "branch-depth", "branch depth %d exceeds label stack", depth)
	}
	a := arity(lbl.ResultType)
	if a == 1 {
		if c.ts.depth() <= lbl.StackDepthOnEntry {
			if !c.labels.top().Unreachable {
				return nil, c.errf(offset, "branch-depth", "stack underflow")
			}
		} else {
			got := c.ts.peek(0)
			if _, ok := unify(lbl.ResultType, got); !ok {
				return nil, c.errf(offset, "branch-depth", "expected %s, got %s", lbl.ResultType, got)
			}
		}
	}
	drop := c.ts.depth() - lbl.StackDepthOnEntry - a
	if drop < 0 {
		return nil, c.errf(offset, "branch-depth", "stack underflow computing drop_keep for branch")
	}
	c.w.WriteOp(istream.OpDropKeep)
	c.w.WriteU32(uint32(drop))
	c.w.WriteU8(uint8(a))
	return lbl, nil
}

// emitReturn lowers `return` and an implicit function-end: drop everything
// but the function's result (§4.3 "return: emit drop_keep (stack_depth -
// result_arity) result_arity then return").
func (c *Compiler) emitReturn(offset uint32) error {
	fn := c.labels.funcLabel()
	a := arity(fn.ResultType)
	if a == 1 {
		if _, err := c.popChecked(offset, fn.ResultType); err != nil {
			return err
		}
		c.ts.push(fn.ResultType)
	}
	drop := c.ts.depth() - fn.StackDepthOnEntry - a
	if drop < 0 {
		return c.errf(offset, "return", "stack underflow computing drop_keep for return")
	}
	c.w.WriteOp(istream.OpDropKeep)
	c.w.WriteU32(uint32(drop))
	c.w.WriteU8(uint8(a))
	c.w.WriteOp(istream.OpReturn)
	return nil
}

// checkLabelResult validates a label's produced value against its declared
// result type at the point it closes (an explicit `else` or `end`), per
// §4.3's unification rule, tolerating a polymorphic (Unreachable) stack.
func (c *Compiler) checkLabelResult(offset uint32, lbl *label) error {
	a := arity(lbl.ResultType)
	if lbl.Unreachable {
		c.ts.truncate(lbl.StackDepthOnEntry)
		if a == 1 {
			c.ts.push(lbl.ResultType)
		}
		return nil
	}
	if c.ts.depth() != lbl.StackDepthOnEntry+a {
		return c.errf(offset, "label-result", "%s produces %d value(s), expected %d", lbl.Kind, c.ts.depth()-lbl.StackDepthOnEntry, a)
	}
	if a == 1 {
		got := c.ts.peek(0)
		if _, ok := unify(lbl.ResultType, got); !ok {
			return c.errf(offset, "label-result", "%s arm produces %s, expected %s", lbl.Kind, got, lbl.ResultType)
		}
	}
	return nil
}

// resolveBranchFixups patches every pending branch targeting lbl to the
// current istream position, invoked when lbl closes (§4.3 "end: ...
// resolves any pending branch fixups targeting this depth").
func (c *Compiler) resolveBranchFixups(lbl *label) {
	for _, at := range c.branchFixups[lbl.ID] {
		c.w.PatchU32(at, c.w.Offset())
	}
	delete(c.branchFixups, lbl.ID)
}

// lower dispatches one decoded instruction to its istream emission and
// type-checking rule.
func (c *Compiler) lower(instr reader.Instruction) error {
	op := instr.Op.Code
	off := instr.Offset

	switch op {
	case 0x00: // unreachable
		c.w.WriteOp(istream.OpUnreachable)
		c.labels.top().Unreachable = true
		return nil

	case 0x01: // nop
		c.w.WriteOp(istream.OpNop)
		return nil

	case 0x02, 0x03, 0x04: // block, loop, if
		return c.lowerBlockLike(op, instr)

	case 0x05: // else
		return c.lowerElse(off)

	case 0x0B: // end
		return c.lowerEnd(off)

	case 0x0C: // br
		lbl, err := c.emitBranch(off, instr.BrDepth)
		if err != nil {
			return err
		}
		c.w.WriteOp(istream.OpBr)
		c.resolveBranchTarget(lbl)
		c.labels.top().Unreachable = true
		return nil

	case 0x0D: // br_if
		return c.lowerBrIf(instr)

	case 0x0E: // br_table
		return c.lowerBrTable(instr)

	case 0x0F: // return
		if err := c.emitReturn(off); err != nil {
			return err
		}
		c.labels.top().Unreachable = true
		return nil

	case 0x10: // call
		return c.lowerCall(instr)

	case 0x11: // call_indirect
		return c.lowerCallIndirect(instr)

	case 0x1A: // drop
		if _, err := c.popChecked(off, wasm.Any); err != nil {
			return err
		}
		c.w.WriteOp(istream.OpDrop)
		return nil

	case 0x1B: // select
		return c.lowerSelect(off)

	case 0x20, 0x21, 0x22: // local.get/set/tee
		return c.lowerLocal(instr)

	case 0x23, 0x24: // global.get/set
		return c.lowerGlobal(instr)

	case 0x41: // i32.const
		c.ts.push(wasm.I32)
		c.w.WriteOp(op)
		c.w.WriteU32(uint32(instr.I32))
		return nil

	case 0x42: // i64.const
		c.ts.push(wasm.I64)
		c.w.WriteOp(op)
		c.w.WriteU64(uint64(instr.I64))
		return nil

	case 0x43: // f32.const
		c.ts.push(wasm.F32)
		c.w.WriteOp(op)
		c.w.WriteU32(instr.F32Bits)
		return nil

	case 0x44: // f64.const
		c.ts.push(wasm.F64)
		c.w.WriteOp(op)
		c.w.WriteU64(instr.F64Bits)
		return nil

	case 0x3F, 0x40: // memory.size, memory.grow
		return c.lowerGeneric(instr)
	}

	if op >= 0x28 && op <= 0x3E { // memory loads/stores
		return c.lowerMemAccess(instr)
	}

	// Everything else (comparisons, unary/binary arithmetic, conversions)
	// is a fixed (Arg1, Arg2, Result) shape straight out of the opcode
	// table, with no immediate and no index translation.
	return c.lowerGeneric(instr)
}

func (c *Compiler) lowerGeneric(instr reader.Instruction) error {
	info := wasm.Lookup(instr.Op)
	if info.Mnemonic == "invalid" {
		return c.errf(instr.Offset, "opcode", "unrecognized opcode 0x%02x", instr.Op.Code)
	}
	if info.Arg2 != wasm.Void {
		if _, err := c.popChecked(instr.Offset, info.Arg2); err != nil {
			return err
		}
	}
	if info.Arg1 != wasm.Void {
		if _, err := c.popChecked(instr.Offset, info.Arg1); err != nil {
			return err
		}
	}
	if info.Result != wasm.Void {
		c.ts.push(info.Result)
	}
	c.w.WriteOp(instr.Op.Code)
	return nil
}

func (c *Compiler) lowerMemAccess(instr reader.Instruction) error {
	info := wasm.Lookup(instr.Op)
	if info.Arg2 != wasm.Void { // store: value then address
		if _, err := c.popChecked(instr.Offset, info.Arg2); err != nil {
			return err
		}
	}
	if _, err := c.popChecked(instr.Offset, info.Arg1); err != nil { // address
		return err
	}
	if info.Result != wasm.Void {
		c.ts.push(info.Result)
	}
	c.w.WriteOp(instr.Op.Code)
	c.w.WriteU32(instr.MemAlign)
	c.w.WriteU32(instr.MemOffset)
	return nil
}

func (c *Compiler) lowerLocal(instr reader.Instruction) error {
	vt, err := c.localTypeAt(instr.Offset, instr.LocalIdx)
	if err != nil {
		return err
	}
	// Translated per §4.3 ("current_stack_depth - wasm_local_index"),
	// measured at entry to the instruction, before its own push/pop.
	translated := uint32(c.ts.depth()) - instr.LocalIdx
	switch instr.Op.Code {
	case 0x20: // local.get
		c.ts.push(vt)
	case 0x21: // local.set
		if _, err := c.popChecked(instr.Offset, vt); err != nil {
			return err
		}
	case 0x22: // local.tee
		if _, err := c.popChecked(instr.Offset, vt); err != nil {
			return err
		}
		c.ts.push(vt)
	}
	c.w.WriteOp(instr.Op.Code)
	c.w.WriteU32(translated)
	return nil
}

func (c *Compiler) lowerGlobal(instr reader.Instruction) error {
	gt, err := c.globalTypeAt(instr.Offset, instr.GlobalIdx)
	if err != nil {
		return err
	}
	switch instr.Op.Code {
	case 0x23: // global.get
		c.ts.push(gt.Value)
	case 0x24: // global.set
		if !gt.Mutable {
			return c.errf(instr.Offset, "global-mutability", "global %d is immutable", instr.GlobalIdx)
		}
		if _, err := c.popChecked(instr.Offset, gt.Value); err != nil {
			return err
		}
	}
	c.w.WriteOp(instr.Op.Code)
	c.w.WriteU32(instr.GlobalIdx)
	return nil
}

func (c *Compiler) lowerSelect(offset uint32) error {
	if _, err := c.popChecked(offset, wasm.I32); err != nil { // condition
		return err
	}
	b, err := c.popChecked(offset, wasm.Any)
	if err != nil {
		return err
	}
	a, err := c.popChecked(offset, b)
	if err != nil {
		return err
	}
	result, ok := unify(a, b)
	if !ok {
		return c.errf(offset, "select", "mismatched operand types %s and %s", a, b)
	}
	c.ts.push(result)
	c.w.WriteOp(istream.OpSelect)
	return nil
}

func (c *Compiler) lowerCall(instr reader.Instruction) error {
	if int(instr.FuncIdx) >= len(c.funcTypeIdxs) {
		return c.errf(instr.Offset, "call", "function index %d out of range", instr.FuncIdx)
	}
	ft := c.funcTypeAt(instr.FuncIdx)
	for i := len(ft.Params) - 1; i >= 0; i-- {
		if _, err := c.popChecked(instr.Offset, ft.Params[i]); err != nil {
			return err
		}
	}
	if ft.Result != wasm.Void {
		c.ts.push(ft.Result)
	}
	if c.isImportFunc(instr.FuncIdx) {
		c.w.WriteOp(istream.OpCallHost)
		c.w.WriteU32(instr.FuncIdx)
		return nil
	}
	c.w.WriteOp(istream.OpCall)
	if target, ok := c.funcOffsets[instr.FuncIdx]; ok {
		c.w.WriteU32(target)
	} else {
		at := c.w.WriteU32(0)
		c.callFixups[instr.FuncIdx] = append(c.callFixups[instr.FuncIdx], at)
	}
	return nil
}

func (c *Compiler) lowerCallIndirect(instr reader.Instruction) error {
	if int(instr.TypeIdx) >= len(c.signatures) {
		return c.errf(instr.Offset, "call_indirect", "type index %d out of range", instr.TypeIdx)
	}
	if _, err := c.popChecked(instr.Offset, wasm.I32); err != nil { // table index
		return err
	}
	ft := c.signatures[instr.TypeIdx]
	for i := len(ft.Params) - 1; i >= 0; i-- {
		if _, err := c.popChecked(instr.Offset, ft.Params[i]); err != nil {
			return err
		}
	}
	if ft.Result != wasm.Void {
		c.ts.push(ft.Result)
	}
	c.w.WriteOp(istream.OpCallIndirect)
	c.w.WriteU32(instr.TypeIdx)
	return nil
}

func (c *Compiler) lowerBlockLike(op byte, instr reader.Instruction) error {
	if op == 0x04 { // if
		if _, err := c.popChecked(instr.Offset, wasm.I32); err != nil {
			return err
		}
	}
	l := label{ResultType: instr.BlockType, StackDepthOnEntry: c.ts.depth()}
	switch op {
	case 0x02:
		l.Kind = labelBlock
	case 0x03:
		l.Kind = labelLoop
		l.BranchTarget = c.w.Offset()
		l.BranchTargetKnown = true
	case 0x04:
		l.Kind = labelIf
	}
	pushed := c.labels.push(l)
	if op == 0x04 {
		c.w.WriteOp(istream.OpBrUnless)
		pushed.PendingFixup = c.w.WriteU32(0)
	}
	return nil
}

func (c *Compiler) lowerElse(offset uint32) error {
	lbl := c.labels.top()
	if lbl.Kind != labelIf {
		return c.errf(offset, "else", "else without a matching if")
	}
	if err := c.checkLabelResult(offset, lbl); err != nil {
		return err
	}
	c.w.WriteOp(istream.OpBr)
	endFixup := c.w.WriteU32(0)
	c.w.PatchU32(lbl.PendingFixup, c.w.Offset())
	c.ts.truncate(lbl.StackDepthOnEntry)
	lbl.Kind = labelElse
	lbl.PendingFixup = endFixup
	lbl.Unreachable = false
	return nil
}

func (c *Compiler) lowerEnd(offset uint32) error {
	lbl := c.labels.top()
	switch lbl.Kind {
	case labelIf:
		if arity(lbl.ResultType) != 0 {
			return c.errf(offset, "if", "if without else must not produce a value")
		}
		if err := c.checkLabelResult(offset, lbl); err != nil {
			return err
		}
		c.w.PatchU32(lbl.PendingFixup, c.w.Offset())
		c.resolveBranchFixups(lbl)
		c.labels.pop()
		return nil

	case labelElse:
		if err := c.checkLabelResult(offset, lbl); err != nil {
			return err
		}
		c.w.PatchU32(lbl.PendingFixup, c.w.Offset())
		c.resolveBranchFixups(lbl)
		c.labels.pop()
		return nil

	case labelBlock, labelLoop:
		if err := c.checkLabelResult(offset, lbl); err != nil {
			return err
		}
		c.resolveBranchFixups(lbl)
		c.labels.pop()
		return nil

	case labelFunc:
		if err := c.checkLabelResult(offset, lbl); err != nil {
			return err
		}
		c.resolveBranchFixups(lbl)
		if err := c.emitReturn(offset); err != nil {
			return err
		}
		c.labels.pop()
		return nil
	}
	return c.errf(offset, "end", "unbalanced end")
}

func (c *Compiler) lowerBrIf(instr reader.Instruction) error {
	if _, err := c.popChecked(instr.Offset, wasm.I32); err != nil {
		return err
	}
	lbl, ok := c.labels.at(instr.BrDepth)
	if !ok {
		return c.errf(instr.Offset, "br_if", "branch depth %d exceeds label stack", instr.BrDepth)
	}
	// br_if doesn't dead-end: lower it as "skip past the drop_keep+br
	// unless taken", reusing the same primitives `if` does, since br_if
	// isn't itself part of the istream opcode set (§6). The kept value (if
	// any) is only peeked, never popped: br_if leaves it on the stack
	// whether or not the branch is taken.
	a := arity(lbl.ResultType)
	if a == 1 {
		if c.ts.depth() <= lbl.StackDepthOnEntry {
			if !c.labels.top().Unreachable {
				return c.errf(instr.Offset, "br_if", "stack underflow")
			}
		} else {
			got := c.ts.peek(0)
			if _, ok := unify(lbl.ResultType, got); !ok {
				return c.errf(instr.Offset, "br_if", "expected %s, got %s", lbl.ResultType, got)
			}
		}
	}
	drop := c.ts.depth() - lbl.StackDepthOnEntry - a
	if drop < 0 {
		return c.errf(instr.Offset, "br_if", "stack underflow computing drop_keep for branch")
	}

	c.w.WriteOp(istream.OpBrUnless)
	skipFixup := c.w.WriteU32(0)
	c.w.WriteOp(istream.OpDropKeep)
	c.w.WriteU32(uint32(drop))
	c.w.WriteU8(uint8(a))
	c.w.WriteOp(istream.OpBr)
	c.resolveBranchTarget(lbl)

	c.w.PatchU32(skipFixup, c.w.Offset())
	return nil
}

func (c *Compiler) lowerBrTable(instr reader.Instruction) error {
	if _, err := c.popChecked(instr.Offset, wasm.I32); err != nil { // index
		return err
	}
	all := append(append([]uint32{}, instr.BrTable.Targets...), instr.BrTable.Default)

	c.w.WriteOp(istream.OpBrTable)
	c.w.WriteU32(uint32(len(instr.BrTable.Targets)))
	tableOffsetAt := c.w.WriteU32(0)
	c.w.WriteOp(istream.OpData)
	c.w.WriteU32(uint32(len(all)) * 9)
	c.w.PatchU32(tableOffsetAt, c.w.Offset())

	for _, depth := range all {
		lbl, ok := c.labels.at(depth)
		if !ok {
			return c.errf(instr.Offset, "br_table", "branch depth %d exceeds label stack", depth)
		}
		a := arity(lbl.ResultType)
		drop := c.ts.depth() - lbl.StackDepthOnEntry - a
		if drop < 0 {
			return c.errf(instr.Offset, "br_table", "stack underflow computing drop_keep for branch target")
		}
		c.resolveBranchTarget(lbl)
		c.w.WriteU32(uint32(drop))
		c.w.WriteU8(uint8(a))
	}
	c.labels.top().Unreachable = true
	return nil
}
