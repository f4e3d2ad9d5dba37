package reader

import (
	"fmt"
	"strings"

	"github.com/vertexdlt/wasmlink/wasm"
)

// decodeNameSection decodes the "name" custom section's function/local
// name table (§6): a count of functions followed by, per function, its
// name and a (possibly empty) vector of local names.
func decodeNameSection(payload []byte) ([]wasm.NameEntry, error) {
	c := newCursor(payload)
	count, err := c.readU32LEB("name section function count")
	if err != nil {
		return nil, err
	}
	entries := make([]wasm.NameEntry, count)
	for i := range entries {
		idx, err := c.readU32LEB("name function index")
		if err != nil {
			return nil, err
		}
		name, err := c.readName()
		if err != nil {
			return nil, err
		}
		localCount, err := c.readU32LEB("name local count")
		if err != nil {
			return nil, err
		}
		locals := make([]string, localCount)
		for j := range locals {
			locals[j], err = c.readName()
			if err != nil {
				return nil, err
			}
		}
		entries[i] = wasm.NameEntry{FuncIdx: idx, Name: name, LocalNames: locals}
	}
	return entries, nil
}

// decodeRelocSection decodes a "reloc.<section-name>" custom section
// (§3/§6): which section it targets, plus its relocation records.
func decodeRelocSection(customName string, payload []byte) (wasm.RelocSection, error) {
	c := newCursor(payload)
	targetID, err := c.readU32LEB("reloc target section id")
	if err != nil {
		return wasm.RelocSection{}, err
	}
	sec := wasm.RelocSection{TargetSection: wasm.SectionID(targetID)}
	if sec.TargetSection == wasm.SectionCustom {
		name, err := c.readName()
		if err != nil {
			return wasm.RelocSection{}, err
		}
		sec.CustomName = name
	}
	count, err := c.readU32LEB("reloc entry count")
	if err != nil {
		return wasm.RelocSection{}, err
	}
	sec.Entries = make([]wasm.RelocEntry, count)
	for i := range sec.Entries {
		typ, err := c.readU32LEB("reloc type")
		if err != nil {
			return wasm.RelocSection{}, err
		}
		offset, err := c.readU32LEB("reloc offset")
		if err != nil {
			return wasm.RelocSection{}, err
		}
		entry := wasm.RelocEntry{Type: wasm.RelocType(typ), Offset: offset}
		if relocHasAddend(entry.Type) {
			addend, err := c.readI32LEB("reloc addend")
			if err != nil {
				return wasm.RelocSection{}, err
			}
			entry.Addend = addend
		}
		sec.Entries[i] = entry
	}
	if !strings.HasPrefix(customName, "reloc.") {
		return wasm.RelocSection{}, fmt.Errorf("wasm: malformed reloc section name %q", customName)
	}
	return sec, nil
}

func relocHasAddend(t wasm.RelocType) bool {
	switch t {
	case wasm.RelocMemoryAddrLEB:
		return true
	default:
		return false
	}
}
