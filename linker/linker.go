// Package linker implements the batch, multi-input linking pass (§4.4):
// index planning, symbol resolution, relocation, and re-emission of a
// single merged wasm module from N relocatable inputs.
//
// This subsystem has no direct teacher precedent — vertexvm never links
// anything — so it is grounded instead in the Reader's own section-framing
// style (reader/sections.go's one-function-per-section shape) applied to a
// second reader.Handler implementation, scanHandler, that records
// declarations and relocation records rather than lowering them (§4.2
// "two concrete implementations required").
package linker

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Options configures a Link invocation (§6).
type Options struct {
	Relocatable bool
	OutputPath  string
	Inputs      []string
	Logger      *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Link implements §4.4's four passes: scan every input, resolve imports
// against exports, plan the renumbered index space, then relocate and
// reassemble one combined module. The combined binary is always returned;
// when OutputPath is set it is also written to disk.
func Link(opts Options) ([]byte, error) {
	log := opts.logger()
	if len(opts.Inputs) == 0 {
		return nil, linkErrf("link", "no input modules given")
	}

	objs := make([]*object, len(opts.Inputs))
	for i, path := range opts.Inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("linker: %s: %w", path, err)
		}
		obj, err := scanModule(path, data)
		if err != nil {
			return nil, err
		}
		objs[i] = obj
		log.Debug("scanned linker input",
			zap.String("path", path),
			zap.Int("types", len(obj.signatures)),
			zap.Int("funcs", len(obj.funcTypeIdxs)),
			zap.Int("func_imports", len(obj.funcImports)),
		)
	}

	res, err := resolveSymbols(objs, opts.Relocatable)
	if err != nil {
		return nil, err
	}
	offs := planIndexes(objs, res)

	out, err := emit(objs, res, offs, opts)
	if err != nil {
		return nil, err
	}
	log.Info("linked module", zap.Int("inputs", len(objs)), zap.Int("bytes", len(out)))

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, out, 0o644); err != nil {
			return nil, fmt.Errorf("linker: writing %s: %w", opts.OutputPath, err)
		}
	}
	return out, nil
}
