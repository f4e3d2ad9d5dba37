// Package reader implements a streaming, event-driven decoder of the wasm
// binary module format: LEB128 section framing and an expression stream,
// walked once from byte 0 and delivered to a pluggable Handler in file
// order (§4.2).
//
// Replaces the teacher's eager wasm.ReadModule (vertexvm/wasm/module.go),
// which decodes straight into one *Module value. This Reader never builds
// a module; it only ever holds the state needed to validate the section
// currently in flight (the running index counts a Handler needs to
// bounds-check references) and hands everything else to the Handler.
package reader

import (
	"fmt"

	"github.com/vertexdlt/wasmlink/wasm"
)

// reader carries the state of one Read invocation: the cursor, the
// handler being driven, and the running counts of declared-so-far items
// per index space (§4.2 "Index ranges").
type reader struct {
	c       *cursor
	h       Handler
	opts    Options
	counts  indexCounts
	typeSec []wasm.FuncType // retained so type indices can be bounds-checked
}

// indexCounts tracks how many items of each kind have been declared so
// far (imports first, then module-local declarations), the basis for the
// Reader's bounds checks.
type indexCounts struct {
	funcImports   uint32
	globalImports uint32
	tableImports  uint32
	memImports    uint32

	funcs   uint32
	globals uint32
	tables  uint32
	mems    uint32
}

func (ic indexCounts) totalFuncs() uint32   { return ic.funcImports + ic.funcs }
func (ic indexCounts) totalGlobals() uint32 { return ic.globalImports + ic.globals }
func (ic indexCounts) totalTables() uint32  { return ic.tableImports + ic.tables }
func (ic indexCounts) totalMems() uint32    { return ic.memImports + ic.mems }

// Read decodes data as a wasm binary module, delivering one event per
// decoded unit to h in file order, and returns the first error
// encountered (nil on success). No partial success is possible: either
// the whole binary parses or Read returns a non-nil *DecodeError or the
// error a handler method returned, unchanged.
func Read(data []byte, h Handler, opts Options) error {
	if h == nil {
		h = BaseHandler{}
	}
	r := &reader{c: newCursor(data), h: h, opts: opts}
	if err := r.run(); err != nil {
		_ = h.OnError(r.errContext(), err.Error())
		return err
	}
	return nil
}

func (r *reader) errContext() string {
	return fmt.Sprintf("offset %d", r.c.offset())
}

func (r *reader) run() error {
	magic, err := r.c.readU32LE()
	if err != nil {
		return err
	}
	if magic != wasm.Magic {
		return r.c.errf("invalid magic number")
	}
	version, err := r.c.readU32LE()
	if err != nil {
		return err
	}
	if version != wasm.Version {
		return r.c.errf("unsupported version %d", version)
	}
	if err := r.h.BeginModule(version); err != nil {
		return err
	}

	var lastKnown wasm.SectionID = 0
	seenKnown := false
	for !r.c.atEnd() {
		idByte, err := r.c.readByte()
		if err != nil {
			return err
		}
		id := wasm.SectionID(idByte)

		size, err := r.c.readU32LEB("section size")
		if err != nil {
			return err
		}

		if id != wasm.SectionCustom {
			if seenKnown && id <= lastKnown {
				return r.c.errf("sections must occur at most once and in the prescribed order (section %s after %s)", id, lastKnown)
			}
			lastKnown = id
			seenKnown = true
		}

		sectionStart := r.c.offset()
		if uint32(r.c.remaining()) < size {
			return r.c.errf("section %s declares size %d but only %d bytes remain", id, size, r.c.remaining())
		}

		if err := r.h.BeginSection(id, size); err != nil {
			return err
		}
		if err := r.dispatchSection(id, size); err != nil {
			return err
		}
		if got := r.c.offset() - sectionStart; got != size {
			return r.c.errf("unfinished section %s: consumed %d bytes, declared %d", id, got, size)
		}
		if err := r.h.EndSection(); err != nil {
			return err
		}
	}

	return r.h.EndModule()
}

func (r *reader) dispatchSection(id wasm.SectionID, size uint32) error {
	switch id {
	case wasm.SectionCustom:
		return r.readCustomSection(size)
	case wasm.SectionType:
		return r.readTypeSection()
	case wasm.SectionImport:
		return r.readImportSection()
	case wasm.SectionFunc:
		return r.readFunctionSection()
	case wasm.SectionTable:
		return r.readTableSection()
	case wasm.SectionMemory:
		return r.readMemorySection()
	case wasm.SectionGlobal:
		return r.readGlobalSection()
	case wasm.SectionExport:
		return r.readExportSection()
	case wasm.SectionStart:
		return r.readStartSection()
	case wasm.SectionElem:
		return r.readElementSection()
	case wasm.SectionCode:
		return r.readCodeSection()
	case wasm.SectionData:
		return r.readDataSection()
	default:
		return r.c.errf("unknown section id %d", id)
	}
}
