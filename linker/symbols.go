package linker

import "github.com/vertexdlt/wasmlink/wasm"

// ref names one function or global import (or export target) in its own
// input's union index space — imports numbered first, then locals, the
// same numbering wasm.ExportDesc.Idx already uses. It doubles as the key
// for both "is this import inactive" lookups and "what's its merged
// index" lookups, since both are per-(input, index-in-kind).
type ref struct {
	input int
	idx   uint32
}

// resolution is §4.4 Pass 2's output: which function/global imports of
// each input were resolved against another input's export (the import
// becomes "inactive" — dropped from the merged import table, its
// references redirected to the defining input) versus left unresolved
// ("active" — kept in the merged import table, or, outside relocatable
// mode, a fatal link error).
type resolution struct {
	funcTarget   map[ref]ref
	globalTarget map[ref]ref

	localTableInput int // index into objs declaring the merged table's local decl, -1 if none
	localMemInput   int

	keptTableImport *wasm.Import // carried into the merged import table when no input declares a local table
	keptMemImport   *wasm.Import
}

type exportKey struct {
	kind byte
	name string
}

// resolveSymbols builds a name -> (input, index) table from every input's
// exports, then resolves every function and global import against it.
// Canonical order is input order, then symbol order within an input (§9's
// open question on active/inactive iteration order): the exports map is
// populated in that order and "first definition wins" on a name collision,
// so resolution never depends on map iteration order.
func resolveSymbols(objs []*object, relocatable bool) (*resolution, error) {
	exports := map[exportKey]ref{}
	for k, o := range objs {
		for _, e := range o.exports {
			key := exportKey{kind: e.Desc.Kind, name: e.Name}
			if _, dup := exports[key]; dup {
				continue
			}
			exports[key] = ref{input: k, idx: e.Desc.Idx}
		}
	}

	res := &resolution{
		funcTarget:      map[ref]ref{},
		globalTarget:    map[ref]ref{},
		localTableInput: -1,
		localMemInput:   -1,
	}

	for k, o := range objs {
		for i, imp := range o.funcImports {
			target, ok := exports[exportKey{kind: wasm.ExternalFunc, name: imp.Field}]
			if !ok {
				if !relocatable {
					return nil, linkErrf("link", "undefined external function symbol %q (imported by %s)", imp.Field, o.path)
				}
				continue
			}
			res.funcTarget[ref{input: k, idx: uint32(i)}] = target
		}
		for i, imp := range o.globalImports {
			target, ok := exports[exportKey{kind: wasm.ExternalGlobal, name: imp.Field}]
			if !ok {
				if !relocatable {
					return nil, linkErrf("link", "undefined external global symbol %q (imported by %s)", imp.Field, o.path)
				}
				continue
			}
			res.globalTarget[ref{input: k, idx: uint32(i)}] = target
		}

		if len(o.tables) > 0 {
			if res.localTableInput != -1 {
				return nil, linkErrf("link", "more than one input declares a local table (%s and %s)", objs[res.localTableInput].path, o.path)
			}
			res.localTableInput = k
		}
		if len(o.memories) > 0 {
			if res.localMemInput != -1 {
				return nil, linkErrf("link", "more than one input declares a local memory (%s and %s)", objs[res.localMemInput].path, o.path)
			}
			res.localMemInput = k
		}
	}

	if res.localTableInput == -1 {
		for _, o := range objs {
			if len(o.tableImports) > 0 {
				imp := o.tableImports[0]
				res.keptTableImport = &imp
				break
			}
		}
	}
	if res.localMemInput == -1 {
		for _, o := range objs {
			if len(o.memImports) > 0 {
				imp := o.memImports[0]
				res.keptMemImport = &imp
				break
			}
		}
	}

	return res, nil
}
