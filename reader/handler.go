package reader

import "github.com/vertexdlt/wasmlink/wasm"

// Handler is the capability interface the Reader drives with one event
// per decoded unit (§4.2, §6). Two concrete implementations exist in this
// module: compile.Compiler (validates and lowers to an istream) and
// linker.scanHandler (records declarations and relocations and ignores
// the per-instruction events). Embedding BaseHandler gives a handler
// every method as a no-op, so a caller only overrides what it needs —
// the capability-interface pattern called for in the opcode/handler
// design note, in place of the teacher-era "record of function pointers
// with per-field null checks".
type Handler interface {
	BeginModule(version uint32) error
	EndModule() error

	// BeginSection/EndSection bracket every section, known or custom.
	// For known sections the nested, section-specific callbacks below
	// fire in between; for a custom section exactly one of OnNameSection
	// (the "name" section, when decoded), OnRelocSection ("reloc.*") or
	// OnCustomSection fires.
	BeginSection(id wasm.SectionID, size uint32) error
	EndSection() error

	OnCustomSection(name string, payload []byte) error
	OnNameSection(entries []wasm.NameEntry) error
	OnRelocSection(section wasm.RelocSection) error

	OnTypeCount(n uint32) error
	OnSignature(idx uint32, ft wasm.FuncType) error

	OnImportCount(n uint32) error
	OnImport(idx uint32, imp wasm.Import) error

	OnFuncCount(n uint32) error
	OnFuncTypeIdx(idx uint32, typeIdx uint32) error

	OnTableCount(n uint32) error
	OnTable(idx uint32, t wasm.TableType) error

	OnMemoryCount(n uint32) error
	OnMemory(idx uint32, m wasm.MemType) error

	OnGlobalCount(n uint32) error
	OnGlobal(idx uint32, g wasm.GlobalType, init wasm.ConstExpr) error

	OnExportCount(n uint32) error
	OnExport(idx uint32, e wasm.Export) error

	OnStart(funcIdx uint32) error

	OnElementCount(n uint32) error
	OnElement(idx uint32, e wasm.Element) error

	OnCodeCount(n uint32) error
	BeginFunctionBody(idx uint32, bodySize uint32) error
	OnLocalDeclCount(n uint32) error
	OnLocalDecl(groupIdx uint32, group wasm.LocalGroup) error
	OnInstruction(instr Instruction) error
	EndFunctionBody(idx uint32) error

	OnDataCount(n uint32) error
	OnData(idx uint32, d wasm.DataSegment) error

	// OnError is invoked with a human-readable diagnostic immediately
	// before the Reader unwinds with failure (§4.2 "Failure model"). The
	// Reader ignores its return value and returns the original error
	// unchanged, so a handler can neither alter nor suppress the failure.
	OnError(context string, message string) error
}

// BaseHandler implements Handler with every method a no-op returning nil.
// Embed it in a concrete handler and override only the events it cares
// about.
type BaseHandler struct{}

func (BaseHandler) BeginModule(uint32) error { return nil }
func (BaseHandler) EndModule() error         { return nil }

func (BaseHandler) BeginSection(wasm.SectionID, uint32) error { return nil }
func (BaseHandler) EndSection() error                         { return nil }

func (BaseHandler) OnCustomSection(string, []byte) error       { return nil }
func (BaseHandler) OnNameSection([]wasm.NameEntry) error       { return nil }
func (BaseHandler) OnRelocSection(wasm.RelocSection) error     { return nil }

func (BaseHandler) OnTypeCount(uint32) error                 { return nil }
func (BaseHandler) OnSignature(uint32, wasm.FuncType) error  { return nil }

func (BaseHandler) OnImportCount(uint32) error           { return nil }
func (BaseHandler) OnImport(uint32, wasm.Import) error   { return nil }

func (BaseHandler) OnFuncCount(uint32) error           { return nil }
func (BaseHandler) OnFuncTypeIdx(uint32, uint32) error { return nil }

func (BaseHandler) OnTableCount(uint32) error            { return nil }
func (BaseHandler) OnTable(uint32, wasm.TableType) error { return nil }

func (BaseHandler) OnMemoryCount(uint32) error          { return nil }
func (BaseHandler) OnMemory(uint32, wasm.MemType) error { return nil }

func (BaseHandler) OnGlobalCount(uint32) error                              { return nil }
func (BaseHandler) OnGlobal(uint32, wasm.GlobalType, wasm.ConstExpr) error { return nil }

func (BaseHandler) OnExportCount(uint32) error         { return nil }
func (BaseHandler) OnExport(uint32, wasm.Export) error { return nil }

func (BaseHandler) OnStart(uint32) error { return nil }

func (BaseHandler) OnElementCount(uint32) error          { return nil }
func (BaseHandler) OnElement(uint32, wasm.Element) error { return nil }

func (BaseHandler) OnCodeCount(uint32) error                  { return nil }
func (BaseHandler) BeginFunctionBody(uint32, uint32) error    { return nil }
func (BaseHandler) OnLocalDeclCount(uint32) error             { return nil }
func (BaseHandler) OnLocalDecl(uint32, wasm.LocalGroup) error { return nil }
func (BaseHandler) OnInstruction(Instruction) error           { return nil }
func (BaseHandler) EndFunctionBody(uint32) error              { return nil }

func (BaseHandler) OnDataCount(uint32) error              { return nil }
func (BaseHandler) OnData(uint32, wasm.DataSegment) error { return nil }

func (BaseHandler) OnError(string, string) error { return nil }
