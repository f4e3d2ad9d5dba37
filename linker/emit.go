package linker

import (
	"encoding/binary"
	"fmt"

	"github.com/vertexdlt/wasmlink/leb128"
	"github.com/vertexdlt/wasmlink/wasm"
)

// emit implements §4.4 Pass 4: recompute the sections whose element
// counts or ordering change under merge (import, function, table, memory,
// global, export, start, element, name) directly from every input's
// decoded declarations with their indices renumbered, and reassemble the
// code section from the per-input relocated byte spans Pass 3 produced.
// Data segments are recomputed from their decoded, already-evaluated
// offsets (shifted by the owning input's memory-page base) rather than
// patched in place, since — unlike code — scanModule fully decodes every
// data segment's offset expression; only the code section actually needs
// the raw-bytes-plus-relocation treatment (see relocateCode).
func emit(objs []*object, res *resolution, offs *offsets, opts Options) ([]byte, error) {
	out := make([]byte, 0, 4096)
	out = binary.LittleEndian.AppendUint32(out, wasm.Magic)
	out = binary.LittleEndian.AppendUint32(out, wasm.Version)

	if payload := emitTypeSection(objs); len(payload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionType, payload)
	}

	imports := gatherImports(objs, res)
	if len(imports) > 0 {
		out = wasm.WriteSection(out, wasm.SectionImport, emitImportSection(imports))
	}

	if payload := emitFunctionSection(objs, offs); len(payload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionFunc, payload)
	}

	if res.localTableInput != -1 {
		out = wasm.WriteSection(out, wasm.SectionTable, emitTableSection(objs, offs, res))
	}

	if res.localMemInput != -1 {
		out = wasm.WriteSection(out, wasm.SectionMemory, emitMemorySection(objs, offs, res))
	}

	if payload := emitGlobalSection(objs, res, offs); len(payload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionGlobal, payload)
	}

	exportPayload, err := emitExportSection(objs, res, offs)
	if err != nil {
		return nil, err
	}
	if len(exportPayload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionExport, exportPayload)
	}

	startPayload, err := emitStartSection(objs, res, offs)
	if err != nil {
		return nil, err
	}
	if startPayload != nil {
		out = wasm.WriteSection(out, wasm.SectionStart, startPayload)
	}

	if offs.totalElems > 0 {
		out = wasm.WriteSection(out, wasm.SectionElem, emitElementSection(objs, res, offs))
	}

	codePayload, codeSpans, err := emitCodeSection(objs, res, offs)
	if err != nil {
		return nil, err
	}
	if len(codePayload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionCode, codePayload)
	}

	if payload := emitDataSection(objs, res, offs); len(payload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionData, payload)
	}

	if namePayload := emitNameSection(objs, res, offs); len(namePayload) > 0 {
		out = wasm.WriteSection(out, wasm.SectionCustom, namePayload)
	}

	if opts.Relocatable {
		if relocPayload := emitCodeRelocSection(objs, codeSpans); relocPayload != nil {
			out = wasm.WriteSection(out, wasm.SectionCustom, relocPayload)
		}
	}

	return out, nil
}

func emitTypeSection(objs []*object) []byte {
	var total uint32
	for _, o := range objs {
		total += uint32(len(o.signatures))
	}
	if total == 0 {
		return nil
	}
	payload := leb128.EncodeU32(nil, total)
	for _, o := range objs {
		for _, ft := range o.signatures {
			payload = wasm.EncodeFuncType(payload, ft)
		}
	}
	return payload
}

// gatherImports lists every import carried into the merged module's
// import table, in the same order planIndexes assigned merged indices:
// active func imports first (input order, then symbol order), then active
// global imports, then the at-most-one kept table/memory import.
func gatherImports(objs []*object, res *resolution) []wasm.Import {
	var out []wasm.Import
	for k, o := range objs {
		for i, imp := range o.funcImports {
			if _, inactive := res.funcTarget[ref{input: k, idx: uint32(i)}]; inactive {
				continue
			}
			out = append(out, imp)
		}
	}
	for k, o := range objs {
		for i, imp := range o.globalImports {
			if _, inactive := res.globalTarget[ref{input: k, idx: uint32(i)}]; inactive {
				continue
			}
			out = append(out, imp)
		}
	}
	if res.keptTableImport != nil {
		out = append(out, *res.keptTableImport)
	}
	if res.keptMemImport != nil {
		out = append(out, *res.keptMemImport)
	}
	return out
}

func emitImportSection(imports []wasm.Import) []byte {
	payload := leb128.EncodeU32(nil, uint32(len(imports)))
	for _, imp := range imports {
		payload = wasm.EncodeImport(payload, imp)
	}
	return payload
}

func emitFunctionSection(objs []*object, offs *offsets) []byte {
	var total uint32
	for _, o := range objs {
		total += uint32(len(o.funcTypeIdxs))
	}
	if total == 0 {
		return nil
	}
	payload := leb128.EncodeU32(nil, total)
	for k, o := range objs {
		for _, typeIdx := range o.funcTypeIdxs {
			payload = leb128.EncodeU32(payload, remapTypeIndex(offs, k, typeIdx))
		}
	}
	return payload
}

func emitTableSection(objs []*object, offs *offsets, res *resolution) []byte {
	o := objs[res.localTableInput]
	t := o.tables[0]
	if need := offs.totalElems; need > t.Limits.Initial {
		t.Limits.Initial = need
		if t.Limits.HasMax && t.Limits.Max < need {
			t.Limits.Max = need
		}
	}
	payload := leb128.EncodeU32(nil, 1)
	return wasm.EncodeTableType(payload, t)
}

func emitMemorySection(objs []*object, offs *offsets, res *resolution) []byte {
	o := objs[res.localMemInput]
	m := o.memories[0]
	if offs.totalMemPages > m.Limits.Initial {
		m.Limits.Initial = offs.totalMemPages
		if m.Limits.HasMax && m.Limits.Max < offs.totalMemPages {
			m.Limits.Max = offs.totalMemPages
		}
	}
	payload := leb128.EncodeU32(nil, 1)
	return wasm.EncodeMemType(payload, m)
}

func emitGlobalSection(objs []*object, res *resolution, offs *offsets) []byte {
	var total uint32
	for _, o := range objs {
		total += uint32(len(o.globals))
	}
	if total == 0 {
		return nil
	}
	payload := leb128.EncodeU32(nil, total)
	for k, o := range objs {
		for _, g := range o.globals {
			var globalIdx uint32
			if g.Init.IsGetGlobal {
				globalIdx = remapGlobalIndex(objs, res, offs, k, g.Init.GlobalIdx)
			}
			payload = wasm.EncodeGlobalType(payload, g.Type)
			payload = wasm.EncodeConstExpr(payload, g.Init, globalIdx)
		}
	}
	return payload
}

// emitExportSection merges every input's exports, remapping each index
// into the merged space. A name collision within the same kind keeps only
// the first definition in canonical order, matching resolveSymbols' export
// table (§3 "Export" requires per-kind uniqueness; the linker enforces it
// by construction rather than rejecting the input).
func emitExportSection(objs []*object, res *resolution, offs *offsets) ([]byte, error) {
	type kv struct {
		name string
		desc wasm.ExportDesc
	}
	seen := map[exportKey]bool{}
	var merged []kv
	for k, o := range objs {
		for _, e := range o.exports {
			key := exportKey{kind: e.Desc.Kind, name: e.Name}
			if seen[key] {
				continue
			}
			seen[key] = true
			idx, err := remapExportIdx(objs, res, offs, k, e.Desc)
			if err != nil {
				return nil, err
			}
			merged = append(merged, kv{name: e.Name, desc: wasm.ExportDesc{Kind: e.Desc.Kind, Idx: idx}})
		}
	}
	if len(merged) == 0 {
		return nil, nil
	}
	payload := leb128.EncodeU32(nil, uint32(len(merged)))
	for _, e := range merged {
		payload = wasm.EncodeExport(payload, wasm.Export{Name: e.name, Desc: e.desc})
	}
	return payload, nil
}

func remapExportIdx(objs []*object, res *resolution, offs *offsets, k int, desc wasm.ExportDesc) (uint32, error) {
	switch desc.Kind {
	case wasm.ExternalFunc:
		return remapFuncIndex(objs, res, offs, k, desc.Idx), nil
	case wasm.ExternalGlobal:
		return remapGlobalIndex(objs, res, offs, k, desc.Idx), nil
	case wasm.ExternalTable, wasm.ExternalMemory:
		return 0, nil
	default:
		return 0, fmt.Errorf("linker: export of unknown kind %d", desc.Kind)
	}
}

func emitStartSection(objs []*object, res *resolution, offs *offsets) ([]byte, error) {
	startInput := -1
	for k, o := range objs {
		if !o.hasStart {
			continue
		}
		if startInput != -1 {
			return nil, linkErrf("link", "more than one input declares a start function (%s and %s)", objs[startInput].path, o.path)
		}
		startInput = k
	}
	if startInput == -1 {
		return nil, nil
	}
	idx := remapFuncIndex(objs, res, offs, startInput, objs[startInput].start)
	return leb128.EncodeU32(nil, idx), nil
}

// emitElementSection collapses every input's element segments into a
// single merged segment at table offset 0 (§4.4 emit rules: "Element
// segment entries are appended in input order; their table offset is a
// single i32.const 0 for the merged table").
func emitElementSection(objs []*object, res *resolution, offs *offsets) []byte {
	var funcs []uint32
	for k, o := range objs {
		for _, e := range o.elements {
			for _, f := range e.Funcs {
				funcs = append(funcs, remapFuncIndex(objs, res, offs, k, f))
			}
		}
	}
	merged := wasm.Element{
		TableIdx: 0,
		Offset:   wasm.ConstExpr{Type: wasm.I32, I32: 0},
		Funcs:    funcs,
	}
	payload := leb128.EncodeU32(nil, 1)
	return wasm.EncodeElement(payload, merged, 0)
}

// codeSpan records where one input's relocated code bytes landed inside
// the merged code section's payload, so emitCodeRelocSection can rebase
// that input's original reloc offsets onto it.
type codeSpan struct {
	origCountLen uint32 // bytes the input's own item-count LEB occupied
	mergedStart  uint32 // byte offset of this input's first item within the merged payload
}

func emitCodeSection(objs []*object, res *resolution, offs *offsets) ([]byte, []codeSpan, error) {
	var total uint32
	for _, o := range objs {
		total += uint32(len(o.funcTypeIdxs))
	}
	if total == 0 {
		return nil, nil, nil
	}
	payload := leb128.EncodeU32(nil, total)
	spans := make([]codeSpan, len(objs))
	for k, o := range objs {
		raw, err := relocateCode(objs, res, offs, k)
		if err != nil {
			return nil, nil, err
		}
		_, n, err := leb128.DecodeU32(raw)
		if err != nil || n == 0 {
			return nil, nil, fmt.Errorf("linker: %s: malformed code section item count", o.path)
		}
		items := raw[n:]
		spans[k] = codeSpan{origCountLen: uint32(n), mergedStart: uint32(len(payload))}
		payload = append(payload, items...)
	}
	return payload, spans, nil
}

// emitDataSection recomputes every data segment from its decoded offset,
// with the memory index always 0 (§4.4 emit rules). An i32.const offset is
// shifted by the owning input's memory-page base; a get_global offset keeps
// its (remapped) global index and is not shifted.
func emitDataSection(objs []*object, res *resolution, offs *offsets) []byte {
	var total uint32
	for _, o := range objs {
		total += uint32(len(o.dataSegments))
	}
	if total == 0 {
		return nil
	}
	payload := leb128.EncodeU32(nil, total)
	for k, o := range objs {
		for _, d := range o.dataSegments {
			offset := d.Offset
			var globalIdx uint32
			switch {
			case offset.IsGetGlobal:
				globalIdx = remapGlobalIndex(objs, res, offs, k, offset.GlobalIdx)
			case offset.Type == wasm.I32:
				offset.I32 += int32(offs.memPageOffset[k] * wasm.PageSize)
			}
			seg := wasm.DataSegment{MemIdx: 0, Offset: offset, Init: d.Init}
			payload = wasm.EncodeDataSegment(payload, seg, globalIdx)
		}
	}
	return payload
}

// emitNameSection rebuilds the "name" custom section's function-name
// table from every input's decoded names, with function indices remapped
// into the merged space.
func emitNameSection(objs []*object, res *resolution, offs *offsets) []byte {
	var total int
	for _, o := range objs {
		total += len(o.names)
	}
	if total == 0 {
		return nil
	}
	payload := wasm.EncodeName(nil, "name")
	payload = leb128.EncodeU32(payload, uint32(total))
	for k, o := range objs {
		for _, n := range o.names {
			payload = leb128.EncodeU32(payload, remapFuncIndex(objs, res, offs, k, n.FuncIdx))
			payload = wasm.EncodeName(payload, n.Name)
			payload = leb128.EncodeU32(payload, uint32(len(n.LocalNames)))
			for _, ln := range n.LocalNames {
				payload = wasm.EncodeName(payload, ln)
			}
		}
	}
	return payload
}

// emitCodeRelocSection rebases every input's code-section relocation
// records onto the merged payload. The values these offsets point at are
// already final (relocateCode patched them), so a further link pass over
// this output would be a no-op; the records are carried forward only so a
// relocatable output stays self-describing about where its patched
// operands live (§4.4 Pass 4 "emit new reloc sections whose offsets are
// rebased to the combined section's payload").
func emitCodeRelocSection(objs []*object, spans []codeSpan) []byte {
	type entry struct {
		typ    wasm.RelocType
		offset uint32
		addend int32
	}
	var entries []entry
	for k, o := range objs {
		sec, ok := o.relocs[wasm.SectionCode]
		if !ok {
			continue
		}
		span := spans[k]
		for _, e := range sec.Entries {
			rebased := span.mergedStart + (e.Offset - span.origCountLen)
			entries = append(entries, entry{typ: e.Type, offset: rebased, addend: e.Addend})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	payload := wasm.EncodeName(nil, "reloc.CODE")
	payload = leb128.EncodeU32(payload, uint32(wasm.SectionCode))
	payload = leb128.EncodeU32(payload, uint32(len(entries)))
	for _, e := range entries {
		payload = leb128.EncodeU32(payload, uint32(e.typ))
		payload = leb128.EncodeU32(payload, e.offset)
		if e.typ == wasm.RelocMemoryAddrLEB {
			payload = leb128.EncodeI32(payload, e.addend)
		}
	}
	return payload
}
