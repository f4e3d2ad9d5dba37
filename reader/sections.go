package reader

import (
	"unicode/utf8"

	"github.com/vertexdlt/wasmlink/wasm"
)

// Per-section decode functions, one per known section id, structured the
// way the teacher's wasm/module.go lays out readSectionType /
// readSectionImport / ... (one function per section, looping a declared
// count), but emitting Handler events instead of populating a *Module,
// and wrapping every read with the running index-bounds checks §4.2
// requires of the Reader itself.

func (r *reader) readCustomSection(size uint32) error {
	start := r.c.offset()
	name, err := r.c.readName()
	if err != nil {
		return err
	}
	consumed := r.c.offset() - start
	if consumed > size {
		return r.c.errf("custom section name overruns declared size")
	}
	payload, err := r.c.readBytes(size - consumed)
	if err != nil {
		return err
	}

	switch {
	case name == "name" && r.opts.ReadDebugNames:
		entries, err := decodeNameSection(payload)
		if err != nil {
			return err
		}
		return r.h.OnNameSection(entries)
	case len(name) >= len("reloc.") && name[:len("reloc.")] == "reloc.":
		sec, err := decodeRelocSection(name, payload)
		if err != nil {
			return err
		}
		return r.h.OnRelocSection(sec)
	default:
		return r.h.OnCustomSection(name, payload)
	}
}

func (r *reader) readTypeSection() error {
	n, err := r.c.readU32LEB("type count")
	if err != nil {
		return err
	}
	if err := r.h.OnTypeCount(n); err != nil {
		return err
	}
	r.typeSec = make([]wasm.FuncType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := r.c.readByte()
		if err != nil {
			return err
		}
		if form != 0x60 {
			return r.c.errf("invalid functype signature byte 0x%02x", form)
		}
		paramCount, err := r.c.readU32LEB("param count")
		if err != nil {
			return err
		}
		params := make([]wasm.ValueType, paramCount)
		for j := range params {
			b, err := r.c.readByte()
			if err != nil {
				return err
			}
			vt, ok := wasm.DecodeValueType(b)
			if !ok {
				return r.c.errf("invalid value type 0x%02x", b)
			}
			params[j] = vt
		}
		resultCount, err := r.c.readU32LEB("result count")
		if err != nil {
			return err
		}
		if resultCount > 1 {
			return r.c.errf("function type declares %d results, at most 1 is supported", resultCount)
		}
		result := wasm.Void
		for j := uint32(0); j < resultCount; j++ {
			b, err := r.c.readByte()
			if err != nil {
				return err
			}
			vt, ok := wasm.DecodeValueType(b)
			if !ok {
				return r.c.errf("invalid value type 0x%02x", b)
			}
			result = vt
		}
		ft := wasm.FuncType{Params: params, Result: result}
		r.typeSec = append(r.typeSec, ft)
		if err := r.h.OnSignature(i, ft); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readImportSection() error {
	n, err := r.c.readU32LEB("import count")
	if err != nil {
		return err
	}
	if err := r.h.OnImportCount(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := r.c.readName()
		if err != nil {
			return err
		}
		field, err := r.c.readName()
		if err != nil {
			return err
		}
		kind, err := r.c.readByte()
		if err != nil {
			return err
		}
		var desc wasm.ImportDesc
		desc.Kind = kind
		switch kind {
		case wasm.ExternalFunc:
			idx, err := r.c.readU32LEB("import func type index")
			if err != nil {
				return err
			}
			if int(idx) >= len(r.typeSec) {
				return r.c.errf("import function type index %d out of range", idx)
			}
			desc.TypeIdx = idx
			r.counts.funcImports++
		case wasm.ExternalTable:
			t, err := r.readTableType()
			if err != nil {
				return err
			}
			desc.Table = &t
			r.counts.tableImports++
		case wasm.ExternalMemory:
			m, err := r.readMemType()
			if err != nil {
				return err
			}
			desc.Mem = &m
			r.counts.memImports++
		case wasm.ExternalGlobal:
			g, err := r.readGlobalType()
			if err != nil {
				return err
			}
			desc.Global = &g
			r.counts.globalImports++
		default:
			return r.c.errf("invalid import external kind %d", kind)
		}
		if err := r.h.OnImport(i, wasm.Import{Module: mod, Field: field, Desc: desc}); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readFunctionSection() error {
	n, err := r.c.readU32LEB("function count")
	if err != nil {
		return err
	}
	if err := r.h.OnFuncCount(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		typeIdx, err := r.c.readU32LEB("function type index")
		if err != nil {
			return err
		}
		if int(typeIdx) >= len(r.typeSec) {
			return r.c.errf("function type index %d out of range", typeIdx)
		}
		r.counts.funcs++
		if err := r.h.OnFuncTypeIdx(i, typeIdx); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readTableType() (wasm.TableType, error) {
	var t wasm.TableType
	elem, err := r.c.readByte()
	if err != nil {
		return t, err
	}
	if elem != wasm.ElemTypeFuncRef {
		return t, r.c.errf("invalid table element type 0x%02x", elem)
	}
	t.ElemType = elem
	limits, err := r.readLimits(false)
	if err != nil {
		return t, err
	}
	t.Limits = limits
	return t, nil
}

func (r *reader) readMemType() (wasm.MemType, error) {
	limits, err := r.readLimits(true)
	if err != nil {
		return wasm.MemType{}, err
	}
	return wasm.MemType{Limits: limits}, nil
}

func (r *reader) readLimits(isMemory bool) (wasm.Limits, error) {
	var l wasm.Limits
	flag, err := r.c.readByte()
	if err != nil {
		return l, err
	}
	switch flag {
	case 0x00:
		l.Initial, err = r.c.readU32LEB("limits min")
	case 0x01:
		l.HasMax = true
		l.Initial, err = r.c.readU32LEB("limits min")
		if err == nil {
			l.Max, err = r.c.readU32LEB("limits max")
		}
	default:
		return l, r.c.errf("invalid limits flag 0x%02x", flag)
	}
	if err != nil {
		return l, err
	}
	if l.HasMax && l.Initial > l.Max {
		return l, r.c.errf("limits initial %d exceeds max %d", l.Initial, l.Max)
	}
	if isMemory {
		if l.Initial > wasm.MaxPages || (l.HasMax && l.Max > wasm.MaxPages) {
			return l, r.c.errf("memory limits exceed the maximum of %d pages", wasm.MaxPages)
		}
	}
	return l, nil
}

func (r *reader) readGlobalType() (wasm.GlobalType, error) {
	var g wasm.GlobalType
	b, err := r.c.readByte()
	if err != nil {
		return g, err
	}
	vt, ok := wasm.DecodeValueType(b)
	if !ok {
		return g, r.c.errf("invalid value type 0x%02x", b)
	}
	g.Value = vt
	m, err := r.c.readByte()
	if err != nil {
		return g, err
	}
	if m != 0x00 && m != 0x01 {
		return g, r.c.errf("invalid mutability flag 0x%02x", m)
	}
	g.Mutable = m == 0x01
	return g, nil
}

func (r *reader) readTableSection() error {
	n, err := r.c.readU32LEB("table count")
	if err != nil {
		return err
	}
	if err := r.h.OnTableCount(n); err != nil {
		return err
	}
	if r.counts.totalTables()+n > 1 {
		return r.c.errf("at most one table is supported")
	}
	for i := uint32(0); i < n; i++ {
		t, err := r.readTableType()
		if err != nil {
			return err
		}
		r.counts.tables++
		if err := r.h.OnTable(i, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readMemorySection() error {
	n, err := r.c.readU32LEB("memory count")
	if err != nil {
		return err
	}
	if err := r.h.OnMemoryCount(n); err != nil {
		return err
	}
	if r.counts.totalMems()+n > 1 {
		return r.c.errf("at most one memory is supported")
	}
	for i := uint32(0); i < n; i++ {
		m, err := r.readMemType()
		if err != nil {
			return err
		}
		r.counts.mems++
		if err := r.h.OnMemory(i, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) globalResolver() wasm.GlobalResolver {
	return func(idx uint32) (wasm.ConstExpr, bool) {
		if idx >= r.counts.globalImports {
			return wasm.ConstExpr{}, false
		}
		// Imported globals' initial values aren't known to the Reader
		// (they come from the host/linker), so the returned ConstExpr
		// only records the get_global index. Here we only validate that the index refers to an already-declared
		// import, per §3 "Global initializer".
		return wasm.ConstExpr{}, true
	}
}

func (r *reader) readGlobalSection() error {
	n, err := r.c.readU32LEB("global count")
	if err != nil {
		return err
	}
	if err := r.h.OnGlobalCount(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		gt, err := r.readGlobalType()
		if err != nil {
			return err
		}
		exprBytes, err := r.readExprBytes()
		if err != nil {
			return err
		}
		init, err := wasm.EvalConstExpr(exprBytes, r.globalResolver())
		if err != nil {
			return r.c.errf("global %d: %v", i, err)
		}
		r.counts.globals++
		if err := r.h.OnGlobal(i, gt, init); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readExportSection() error {
	n, err := r.c.readU32LEB("export count")
	if err != nil {
		return err
	}
	if err := r.h.OnExportCount(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := r.c.readName()
		if err != nil {
			return err
		}
		if !utf8.ValidString(name) {
			return r.c.errf("export name is not valid utf-8")
		}
		kind, err := r.c.readByte()
		if err != nil {
			return err
		}
		idx, err := r.c.readU32LEB("export index")
		if err != nil {
			return err
		}
		var ok bool
		switch kind {
		case wasm.ExternalFunc:
			ok = idx < r.counts.totalFuncs()
		case wasm.ExternalTable:
			ok = idx < r.counts.totalTables()
		case wasm.ExternalMemory:
			ok = idx < r.counts.totalMems()
		case wasm.ExternalGlobal:
			ok = idx < r.counts.totalGlobals()
		default:
			return r.c.errf("invalid export kind %d", kind)
		}
		if !ok {
			return r.c.errf("export %q index %d out of range for kind %d", name, idx, kind)
		}
		e := wasm.Export{Name: name, Desc: wasm.ExportDesc{Kind: kind, Idx: idx}}
		if err := r.h.OnExport(i, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readStartSection() error {
	idx, err := r.c.readU32LEB("start function index")
	if err != nil {
		return err
	}
	if idx >= r.counts.totalFuncs() {
		return r.c.errf("start function index %d out of range", idx)
	}
	return r.h.OnStart(idx)
}

func (r *reader) readElementSection() error {
	n, err := r.c.readU32LEB("element count")
	if err != nil {
		return err
	}
	if err := r.h.OnElementCount(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tableIdx, err := r.c.readU32LEB("element table index")
		if err != nil {
			return err
		}
		if tableIdx >= r.counts.totalTables() {
			return r.c.errf("element segment references undeclared table %d", tableIdx)
		}
		exprBytes, err := r.readExprBytes()
		if err != nil {
			return err
		}
		offset, err := wasm.EvalConstExpr(exprBytes, r.globalResolver())
		if err != nil {
			return r.c.errf("element %d offset: %v", i, err)
		}
		count, err := r.c.readU32LEB("element func count")
		if err != nil {
			return err
		}
		funcs := make([]uint32, count)
		for j := range funcs {
			idx, err := r.c.readU32LEB("element func index")
			if err != nil {
				return err
			}
			if idx >= r.counts.totalFuncs() {
				return r.c.errf("element segment references undeclared function %d", idx)
			}
			funcs[j] = idx
		}
		elem := wasm.Element{TableIdx: tableIdx, Offset: offset, Funcs: funcs}
		if err := r.h.OnElement(i, elem); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) readDataSection() error {
	n, err := r.c.readU32LEB("data count")
	if err != nil {
		return err
	}
	if err := r.h.OnDataCount(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		memIdx, err := r.c.readU32LEB("data memory index")
		if err != nil {
			return err
		}
		if memIdx >= r.counts.totalMems() {
			return r.c.errf("data segment references undeclared memory %d", memIdx)
		}
		exprBytes, err := r.readExprBytes()
		if err != nil {
			return err
		}
		offset, err := wasm.EvalConstExpr(exprBytes, r.globalResolver())
		if err != nil {
			return r.c.errf("data %d offset: %v", i, err)
		}
		size, err := r.c.readU32LEB("data byte count")
		if err != nil {
			return err
		}
		payload, err := r.c.readBytes(size)
		if err != nil {
			return err
		}
		owned := make([]byte, len(payload))
		copy(owned, payload)
		d := wasm.DataSegment{MemIdx: memIdx, Offset: offset, Init: owned}
		if err := r.h.OnData(i, d); err != nil {
			return err
		}
	}
	return nil
}

// readExprBytes reads a constant expression's raw bytes (through and
// including the trailing `end`), without going through the instruction
// event path used for function bodies: §4.5 constant expressions are
// evaluated by the Reader itself rather than walked opcode-by-opcode by
// the Handler.
func (r *reader) readExprBytes() ([]byte, error) {
	start := r.c.offset()
	op, err := r.c.readByte()
	for err == nil && op != 0x0B {
		// Skip each operand so that a 0x0B byte inside one is not
		// mistaken for the trailing `end`.
		switch op {
		case 0x41: // i32.const
			_, err = r.c.readI32LEB("constant expression operand")
		case 0x42: // i64.const
			_, err = r.c.readI64LEB("constant expression operand")
		case 0x23: // get_global
			_, err = r.c.readU32LEB("constant expression operand")
		case 0x43: // f32.const
			_, err = r.c.readBytes(4)
		case 0x44: // f64.const
			_, err = r.c.readBytes(8)
		}
		if err == nil {
			op, err = r.c.readByte()
		}
	}
	if err != nil {
		return nil, err
	}
	end := r.c.offset()
	return r.c.buf[start:end], nil
}
