package linker

// offsets is §4.4 Pass 1's output: the per-input index bases needed to
// renumber every type/function/global reference into the merged module's
// single index space, plus the totals Pass 4 needs to frame the merged
// sections. Computed after resolveSymbols, not before: the function and
// global offsets depend on which imports survived resolution (§9's open
// question — a second offset-calculation pass run after resolving
// symbols, with a canonical input-order-then-symbol-order iteration fixed
// here).
type offsets struct {
	typeOffset    []uint32
	funcOffset    []uint32 // added to a local function's (idx - numFuncImports)
	globalOffset  []uint32
	memPageOffset []uint32 // this input's starting page within the merged memory
	elemOffset    []uint32 // this input's starting slot within the merged element vector

	totalTypes               uint32
	totalActiveFuncImports   uint32
	totalActiveGlobalImports uint32
	totalFuncs               uint32 // active imports + every input's locally-declared functions
	totalGlobals             uint32
	totalMemPages            uint32
	totalElems                uint32

	activeFuncImport   map[ref]uint32 // import ref -> its slot in the merged import table
	activeGlobalImport map[ref]uint32
}

// planIndexes computes every per-input offset in two linear passes over
// the inputs, in canonical (input) order.
func planIndexes(objs []*object, res *resolution) *offsets {
	n := len(objs)
	o := &offsets{
		typeOffset:         make([]uint32, n),
		funcOffset:         make([]uint32, n),
		globalOffset:       make([]uint32, n),
		memPageOffset:      make([]uint32, n),
		elemOffset:         make([]uint32, n),
		activeFuncImport:   map[ref]uint32{},
		activeGlobalImport: map[ref]uint32{},
	}

	// Every active import, across every input, sorts ahead of every
	// input's locals in the merged index space, so the active-import
	// slots must be assigned before any input's local offset can be
	// computed. This walks the inputs once up front for that reason.
	for k, obj := range objs {
		for i := range obj.funcImports {
			r := ref{input: k, idx: uint32(i)}
			if _, inactive := res.funcTarget[r]; inactive {
				continue
			}
			o.activeFuncImport[r] = o.totalActiveFuncImports
			o.totalActiveFuncImports++
		}
		for i := range obj.globalImports {
			r := ref{input: k, idx: uint32(i)}
			if _, inactive := res.globalTarget[r]; inactive {
				continue
			}
			o.activeGlobalImport[r] = o.totalActiveGlobalImports
			o.totalActiveGlobalImports++
		}
	}

	var localFuncs, localGlobals uint32
	for k, obj := range objs {
		o.typeOffset[k] = o.totalTypes
		o.totalTypes += uint32(len(obj.signatures))

		// §4.4's formula offsets the function's *full* own-space index
		// (imports then locals); remapFuncIndex instead adds this offset
		// to the local-only index (idx - numFuncImports), so the "−
		// numFuncImports(k)" term the spec's formula carries is folded in
		// here by simply not applying it — the two are algebraically the
		// same mapping, just with the subtraction moved to the call site.
		o.funcOffset[k] = o.totalActiveFuncImports + localFuncs
		localFuncs += uint32(len(obj.funcTypeIdxs))

		o.globalOffset[k] = o.totalActiveGlobalImports + localGlobals
		localGlobals += uint32(len(obj.globals))

		o.memPageOffset[k] = o.totalMemPages
		o.totalMemPages += memPages(obj)

		o.elemOffset[k] = o.totalElems
		for _, e := range obj.elements {
			o.totalElems += uint32(len(e.Funcs))
		}
	}
	o.totalFuncs = o.totalActiveFuncImports + localFuncs
	o.totalGlobals = o.totalActiveGlobalImports + localGlobals

	return o
}

func memPages(obj *object) uint32 {
	if len(obj.memories) == 0 {
		return 0
	}
	return obj.memories[0].Limits.Initial
}

// remapFuncIndex resolves a function reference decoded from input k's own
// index space to its absolute index in the merged module, following an
// import-resolution chain when the reference targets an inactive import
// (§4.4 Pass 3).
func remapFuncIndex(objs []*object, res *resolution, offs *offsets, k int, idx uint32) uint32 {
	obj := objs[k]
	if idx < obj.numFuncImports() {
		r := ref{input: k, idx: idx}
		if target, ok := res.funcTarget[r]; ok {
			return remapFuncIndex(objs, res, offs, target.input, target.idx)
		}
		return offs.activeFuncImport[r]
	}
	return offs.funcOffset[k] + (idx - obj.numFuncImports())
}

// remapGlobalIndex is remapFuncIndex's counterpart for the global index
// space.
func remapGlobalIndex(objs []*object, res *resolution, offs *offsets, k int, idx uint32) uint32 {
	obj := objs[k]
	if idx < obj.numGlobalImports() {
		r := ref{input: k, idx: idx}
		if target, ok := res.globalTarget[r]; ok {
			return remapGlobalIndex(objs, res, offs, target.input, target.idx)
		}
		return offs.activeGlobalImport[r]
	}
	return offs.globalOffset[k] + (idx - obj.numGlobalImports())
}

// remapTypeIndex: types are never imported, so this is a flat offset add.
func remapTypeIndex(offs *offsets, k int, idx uint32) uint32 {
	return offs.typeOffset[k] + idx
}
