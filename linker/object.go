package linker

import (
	"fmt"

	"github.com/vertexdlt/wasmlink/leb128"
	"github.com/vertexdlt/wasmlink/reader"
	"github.com/vertexdlt/wasmlink/wasm"
)

// globalDecl is one module-local global: its type plus its decoded (but
// not yet index-relocated) initializer.
type globalDecl struct {
	Type wasm.GlobalType
	Init wasm.ConstExpr
}

// object is the fully-scanned state of one input module: every decoded
// declaration the linker's later passes need, plus the raw payload bytes
// of every section (only the code section's are copied forward, after
// relocation) and the reloc records of every reloc.* section.
type object struct {
	path string

	signatures []wasm.FuncType

	funcImports   []wasm.Import
	tableImports  []wasm.Import
	memImports    []wasm.Import
	globalImports []wasm.Import

	funcTypeIdxs []uint32 // local functions only, 0-based within this input
	tables       []wasm.TableType
	memories     []wasm.MemType
	globals      []globalDecl // local only
	exports      []wasm.Export
	hasStart     bool
	start        uint32
	elements     []wasm.Element
	dataSegments []wasm.DataSegment
	names        []wasm.NameEntry

	relocs      map[wasm.SectionID]wasm.RelocSection
	rawSections map[wasm.SectionID][]byte
}

func (o *object) numFuncImports() uint32   { return uint32(len(o.funcImports)) }
func (o *object) numGlobalImports() uint32 { return uint32(len(o.globalImports)) }
func (o *object) numTableImports() uint32  { return uint32(len(o.tableImports)) }
func (o *object) numMemImports() uint32    { return uint32(len(o.memImports)) }

// exportIdx returns the local (imports-then-locals) index an export of the
// given kind refers to.
func (o *object) exportIdx(kind byte, name string) (uint32, bool) {
	for _, e := range o.exports {
		if e.Desc.Kind == kind && e.Name == name {
			return e.Desc.Idx, true
		}
	}
	return 0, false
}

// scanHandler implements reader.Handler by recording declarations into an
// object, ignoring the Reader's per-instruction events for function bodies
// (per the Handler design note in reader/handler.go): code is carried forward
// as an opaque, relocatable byte blob instead (§4.4 Pass 3/4).
type scanHandler struct {
	reader.BaseHandler
	obj *object
}

func (h *scanHandler) OnTypeCount(n uint32) error {
	h.obj.signatures = make([]wasm.FuncType, 0, n)
	return nil
}

func (h *scanHandler) OnSignature(idx uint32, ft wasm.FuncType) error {
	h.obj.signatures = append(h.obj.signatures, ft)
	return nil
}

func (h *scanHandler) OnImport(idx uint32, imp wasm.Import) error {
	switch imp.Desc.Kind {
	case wasm.ExternalFunc:
		h.obj.funcImports = append(h.obj.funcImports, imp)
	case wasm.ExternalTable:
		h.obj.tableImports = append(h.obj.tableImports, imp)
	case wasm.ExternalMemory:
		h.obj.memImports = append(h.obj.memImports, imp)
	case wasm.ExternalGlobal:
		h.obj.globalImports = append(h.obj.globalImports, imp)
	}
	return nil
}

func (h *scanHandler) OnFuncTypeIdx(idx uint32, typeIdx uint32) error {
	h.obj.funcTypeIdxs = append(h.obj.funcTypeIdxs, typeIdx)
	return nil
}

func (h *scanHandler) OnTable(idx uint32, t wasm.TableType) error {
	h.obj.tables = append(h.obj.tables, t)
	return nil
}

func (h *scanHandler) OnMemory(idx uint32, m wasm.MemType) error {
	h.obj.memories = append(h.obj.memories, m)
	return nil
}

func (h *scanHandler) OnGlobal(idx uint32, g wasm.GlobalType, init wasm.ConstExpr) error {
	h.obj.globals = append(h.obj.globals, globalDecl{Type: g, Init: init})
	return nil
}

func (h *scanHandler) OnExport(idx uint32, e wasm.Export) error {
	h.obj.exports = append(h.obj.exports, e)
	return nil
}

func (h *scanHandler) OnStart(funcIdx uint32) error {
	h.obj.hasStart = true
	h.obj.start = funcIdx
	return nil
}

func (h *scanHandler) OnElement(idx uint32, e wasm.Element) error {
	h.obj.elements = append(h.obj.elements, e)
	return nil
}

func (h *scanHandler) OnData(idx uint32, d wasm.DataSegment) error {
	h.obj.dataSegments = append(h.obj.dataSegments, d)
	return nil
}

func (h *scanHandler) OnNameSection(entries []wasm.NameEntry) error {
	h.obj.names = entries
	return nil
}

func (h *scanHandler) OnRelocSection(sec wasm.RelocSection) error {
	h.obj.relocs[sec.TargetSection] = sec
	return nil
}

// scanModule decodes one input module into an object: declarations via
// reader.Read + scanHandler, plus the raw section payloads rawSectionPayloads
// captures independently (the Handler interface never exposes a known
// section's raw bytes — only OnCustomSection does — so every section's
// payload is sliced directly from the input buffer; the linker copies
// forward only the code section's).
func scanModule(path string, data []byte) (*object, error) {
	obj := &object{path: path, relocs: map[wasm.SectionID]wasm.RelocSection{}}
	h := &scanHandler{obj: obj}
	if err := reader.Read(data, h, reader.Options{ReadDebugNames: true}); err != nil {
		return nil, fmt.Errorf("linker: %s: %w", path, err)
	}
	raw, err := rawSectionPayloads(data)
	if err != nil {
		return nil, fmt.Errorf("linker: %s: %w", path, err)
	}
	obj.rawSections = raw
	return obj, nil
}

// rawSectionPayloads re-walks a module's top-level section framing —
// independent of reader.Read, which never surfaces a known section's raw
// bytes to its Handler — collecting each section id's payload byte range
// verbatim. Grounded in reader.run's own section loop (reader/reader.go),
// minimized to the framing alone: no index bookkeeping, no Handler events.
func rawSectionPayloads(data []byte) (map[wasm.SectionID][]byte, error) {
	out := map[wasm.SectionID][]byte{}
	pos := 8 // magic + version, already validated by scanModule's reader.Read
	for pos < len(data) {
		id := wasm.SectionID(data[pos])
		pos++
		size, n, err := leb128.DecodeU32(data[pos:])
		if err != nil || n == 0 {
			return nil, fmt.Errorf("malformed section header at offset %d", pos)
		}
		pos += n
		end := pos + int(size)
		if end > len(data) {
			return nil, fmt.Errorf("section %s overruns input", id)
		}
		out[id] = data[pos:end]
		pos = end
	}
	return out, nil
}
