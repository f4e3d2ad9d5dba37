package linker

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/vertexdlt/wasmlink/leb128"
	"github.com/vertexdlt/wasmlink/reader"
	"github.com/vertexdlt/wasmlink/wasm"
)

// header returns the 8-byte magic+version preamble every test module
// starts with.
func header() []byte {
	out := make([]byte, 0, 8)
	out = binary.LittleEndian.AppendUint32(out, wasm.Magic)
	out = binary.LittleEndian.AppendUint32(out, wasm.Version)
	return out
}

// funcBody frames one code-section item: body_size, zero local groups,
// then the given instruction bytes (already including the trailing end).
func funcBody(instrs []byte) []byte {
	inner := leb128.EncodeU32(nil, 0) // local decl group count
	inner = append(inner, instrs...)
	out := leb128.EncodeU32(nil, uint32(len(inner)))
	return append(out, inner...)
}

func relocSection(target wasm.SectionID, entries []wasm.RelocEntry) []byte {
	payload := wasm.EncodeName(nil, "reloc.CODE")
	payload = leb128.EncodeU32(payload, uint32(target))
	payload = leb128.EncodeU32(payload, uint32(len(entries)))
	for _, e := range entries {
		payload = leb128.EncodeU32(payload, uint32(e.Type))
		payload = leb128.EncodeU32(payload, e.Offset)
	}
	return payload
}

// moduleA exports a zero-argument, i32-result function "foo" that returns
// the constant 7.
func moduleA() []byte {
	out := header()

	typePayload := leb128.EncodeU32(nil, 1)
	typePayload = wasm.EncodeFuncType(typePayload, wasm.FuncType{Result: wasm.I32})
	out = wasm.WriteSection(out, wasm.SectionType, typePayload)

	funcPayload := leb128.EncodeU32(nil, 1)
	funcPayload = leb128.EncodeU32(funcPayload, 0) // type index 0
	out = wasm.WriteSection(out, wasm.SectionFunc, funcPayload)

	exportPayload := leb128.EncodeU32(nil, 1)
	exportPayload = wasm.EncodeExport(exportPayload, wasm.Export{Name: "foo", Desc: wasm.ExportDesc{Kind: wasm.ExternalFunc, Idx: 0}})
	out = wasm.WriteSection(out, wasm.SectionExport, exportPayload)

	body := funcBody([]byte{0x41, 0x07, 0x0B}) // i32.const 7; end
	codePayload := leb128.EncodeU32(nil, 1)
	codePayload = append(codePayload, body...)
	out = wasm.WriteSection(out, wasm.SectionCode, codePayload)

	return out
}

// moduleB imports "foo" and defines a zero-argument, i32-result function
// that calls it. The call's operand is a fixed-5-byte LEB at a known
// offset, with a matching reloc.CODE record, mirroring how a relocatable
// object's compiler would emit a forward/external call site.
func moduleB() []byte {
	out := header()

	typePayload := leb128.EncodeU32(nil, 1)
	typePayload = wasm.EncodeFuncType(typePayload, wasm.FuncType{Result: wasm.I32})
	out = wasm.WriteSection(out, wasm.SectionType, typePayload)

	importPayload := leb128.EncodeU32(nil, 1)
	importPayload = wasm.EncodeImport(importPayload, wasm.Import{Module: "env", Field: "foo", Desc: wasm.ImportDesc{Kind: wasm.ExternalFunc, TypeIdx: 0}})
	out = wasm.WriteSection(out, wasm.SectionImport, importPayload)

	funcPayload := leb128.EncodeU32(nil, 1)
	funcPayload = leb128.EncodeU32(funcPayload, 0)
	out = wasm.WriteSection(out, wasm.SectionFunc, funcPayload)

	exportPayload := leb128.EncodeU32(nil, 1)
	exportPayload = wasm.EncodeExport(exportPayload, wasm.Export{Name: "bar", Desc: wasm.ExportDesc{Kind: wasm.ExternalFunc, Idx: 1}})
	out = wasm.WriteSection(out, wasm.SectionExport, exportPayload)

	// call opcode, then a fixed-5-byte LEB encoding import index 0, then end.
	fixed := leb128.EncodeU32Fixed5(0)
	instrs := append([]byte{0x10}, fixed[:]...)
	instrs = append(instrs, 0x0B)
	body := funcBody(instrs)
	codePayload := leb128.EncodeU32(nil, 1)
	codeItemsStart := uint32(len(codePayload))
	codePayload = append(codePayload, body...)
	out = wasm.WriteSection(out, wasm.SectionCode, codePayload)

	// The call operand sits 1 (opcode) byte after the body's
	// local-decl-group-count byte, inside the body_size-prefixed item
	// whose own header is: body_size LEB (1 byte, value 8) + 1 byte local
	// group count = 2 bytes, then the call opcode, then the operand.
	bodySizeLen := 1
	operandOffset := codeItemsStart + uint32(bodySizeLen) + 1 /*local group count*/ + 1 /*call opcode*/
	relocPayload := relocSection(wasm.SectionCode, []wasm.RelocEntry{{Type: wasm.RelocFuncIndexLEB, Offset: operandOffset}})
	out = wasm.WriteSection(out, wasm.SectionCustom, relocPayload)

	return out
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLinkResolvesImportAcrossInputs(t *testing.T) {
	pathA := writeTemp(t, "a.wasm", moduleA())
	pathB := writeTemp(t, "b.wasm", moduleB())

	out, err := Link(Options{Relocatable: false, Inputs: []string{pathA, pathB}})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	var h countingHandler
	if err := reader.Read(out, &h, reader.Options{}); err != nil {
		t.Fatalf("merged module failed to parse: %v", err)
	}

	if h.imports != 0 {
		t.Errorf("merged module should have no func imports left (foo resolved), got %d", h.imports)
	}
	if h.funcs != 2 {
		t.Errorf("expected 2 function bodies (foo + bar), got %d", h.funcs)
	}
	if h.exports != 2 {
		t.Errorf("expected 2 exports (foo, bar), got %d", h.exports)
	}
}

func TestLinkUnresolvedImportFailsInExecutableMode(t *testing.T) {
	pathB := writeTemp(t, "b.wasm", moduleB())
	_, err := Link(Options{Relocatable: false, Inputs: []string{pathB}})
	if err == nil {
		t.Fatal("expected an undefined-symbol link error")
	}
}

func TestLinkKeepsUnresolvedImportInRelocatableMode(t *testing.T) {
	pathB := writeTemp(t, "b.wasm", moduleB())
	out, err := Link(Options{Relocatable: true, Inputs: []string{pathB}})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	var h countingHandler
	if err := reader.Read(out, &h, reader.Options{}); err != nil {
		t.Fatalf("relinked module failed to parse: %v", err)
	}
	if h.imports != 1 {
		t.Errorf("expected the unresolved import to survive, got %d imports", h.imports)
	}
}

type countingHandler struct {
	reader.BaseHandler
	imports int
	funcs   int
	exports int
}

func (h *countingHandler) OnImport(uint32, wasm.Import) error { h.imports++; return nil }
func (h *countingHandler) OnCodeCount(n uint32) error         { h.funcs = int(n); return nil }
func (h *countingHandler) OnExport(uint32, wasm.Export) error { h.exports++; return nil }
