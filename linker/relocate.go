package linker

import (
	"encoding/binary"
	"fmt"

	"github.com/vertexdlt/wasmlink/leb128"
	"github.com/vertexdlt/wasmlink/wasm"
)

// relocateCode implements §4.4 Pass 3 for one input's code section: a
// mutable copy of the raw section payload with every relocation entry's
// operand rewritten to its merged-module index, in place. Every rewritten
// operand keeps its fixed width (5-byte LEB128, or 4 bytes for
// RelocFuncIndexI32) (§8 property 7), which is why
// scanModule's object only ever hands the linker raw, not decoded, code
// bytes in the first place — decoding and re-encoding from scratch would
// have no way to tell a deliberately-fixed-width forward reference from a
// canonical one.
func relocateCode(objs []*object, res *resolution, offs *offsets, k int) ([]byte, error) {
	obj := objs[k]
	raw := append([]byte(nil), obj.rawSections[wasm.SectionCode]...)
	sec, ok := obj.relocs[wasm.SectionCode]
	if !ok {
		return raw, nil
	}
	for _, e := range sec.Entries {
		if err := patchEntry(objs, res, offs, k, raw, e); err != nil {
			return nil, fmt.Errorf("linker: %s: code section: %w", obj.path, err)
		}
	}
	return raw, nil
}

func patchEntry(objs []*object, res *resolution, offs *offsets, k int, raw []byte, e wasm.RelocEntry) error {
	switch e.Type {
	case wasm.RelocFuncIndexLEB:
		old, err := readFixed5(raw, e.Offset)
		if err != nil {
			return err
		}
		writeFixed5(raw, e.Offset, remapFuncIndex(objs, res, offs, k, old))
	case wasm.RelocGlobalIndexLEB:
		old, err := readFixed5(raw, e.Offset)
		if err != nil {
			return err
		}
		writeFixed5(raw, e.Offset, remapGlobalIndex(objs, res, offs, k, old))
	case wasm.RelocTypeIndexLEB:
		old, err := readFixed5(raw, e.Offset)
		if err != nil {
			return err
		}
		writeFixed5(raw, e.Offset, remapTypeIndex(offs, k, old))
	case wasm.RelocTableIndexSLEB:
		old, err := readFixed5Signed(raw, e.Offset)
		if err != nil {
			return err
		}
		newIdx := remapFuncIndex(objs, res, offs, k, uint32(old))
		writeFixed5Signed(raw, e.Offset, int32(newIdx))
	case wasm.RelocFuncIndexI32:
		old, err := readRawU32(raw, e.Offset)
		if err != nil {
			return err
		}
		writeRawU32(raw, e.Offset, remapFuncIndex(objs, res, offs, k, old))
	case wasm.RelocMemoryAddrLEB:
		old, err := readFixed5(raw, e.Offset)
		if err != nil {
			return err
		}
		shifted := old + offs.memPageOffset[k]*wasm.PageSize + uint32(e.Addend)
		writeFixed5(raw, e.Offset, shifted)
	default:
		return fmt.Errorf("unsupported relocation type %s", e.Type)
	}
	return nil
}

// readFixed5 decodes the 5-byte unsigned LEB128 a relocatable producer is
// required to emit at any operand a reloc entry targets, so that
// relocation never changes a section's byte length.
func readFixed5(raw []byte, offset uint32) (uint32, error) {
	if int(offset)+5 > len(raw) {
		return 0, fmt.Errorf("relocation offset %d out of range", offset)
	}
	v, n, err := leb128.DecodeU32(raw[offset : offset+5])
	if err != nil || n != 5 {
		return 0, fmt.Errorf("relocation operand at offset %d is not a 5-byte LEB128", offset)
	}
	return v, nil
}

func writeFixed5(raw []byte, offset uint32, v uint32) {
	enc := leb128.EncodeU32Fixed5(v)
	copy(raw[offset:offset+5], enc[:])
}

func readFixed5Signed(raw []byte, offset uint32) (int32, error) {
	if int(offset)+5 > len(raw) {
		return 0, fmt.Errorf("relocation offset %d out of range", offset)
	}
	v, n, err := leb128.DecodeI32(raw[offset : offset+5])
	if err != nil || n != 5 {
		return 0, fmt.Errorf("relocation operand at offset %d is not a 5-byte signed LEB128", offset)
	}
	return v, nil
}

func writeFixed5Signed(raw []byte, offset uint32, v int32) {
	enc := leb128.EncodeI32Fixed5(v)
	copy(raw[offset:offset+5], enc[:])
}

func readRawU32(raw []byte, offset uint32) (uint32, error) {
	if int(offset)+4 > len(raw) {
		return 0, fmt.Errorf("relocation offset %d out of range", offset)
	}
	return binary.LittleEndian.Uint32(raw[offset : offset+4]), nil
}

func writeRawU32(raw []byte, offset uint32, v uint32) {
	binary.LittleEndian.PutUint32(raw[offset:offset+4], v)
}
