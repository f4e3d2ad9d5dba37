// Package compile implements the Validator + Interpreter Compiler (§4.3):
// a reader.Handler that type-checks a module's function bodies against the
// structured control-flow rules of wasm and lowers each one into a flat,
// directly-threaded instruction stream (the istream subpackage) for a
// future stack interpreter — an interpreter this repo does not implement
// (§1 Non-goals).
//
// Where the teacher's vm package (vm/frame.go, vm/block.go) tracks a stack
// of runtime Frame/Block values to *execute* a function, Compiler tracks
// the analogous shape — typeStack and labelStack — to *validate and lower*
// one instead, generalized from runtime values to static types.
package compile

import (
	"errors"

	"go.uber.org/zap"

	"github.com/vertexdlt/wasmlink/compile/istream"
	"github.com/vertexdlt/wasmlink/reader"
	"github.com/vertexdlt/wasmlink/wasm"
)

// Options configures a Compiler. It mirrors reader.Options' shape (§1
// Ambient Stack: struct options throughout the core, no env/file config).
type Options struct {
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// CompiledModule is the Compiler's output on success: one istream shared
// by every function body the module declares, plus the entry offset of
// each locally-defined function, keyed by its absolute function index
// (imports occupy the low indices and have no body of their own).
type CompiledModule struct {
	Istream        []byte
	FuncOffsets    map[uint32]uint32
	NumFuncImports uint32
}

// Compiler implements reader.Handler. Construct with NewCompiler, drive it
// with reader.Read, then call Result.
type Compiler struct {
	reader.BaseHandler

	opts Options
	w    *istream.Writer
	err  error

	signatures     []wasm.FuncType
	funcTypeIdxs   []uint32 // combined import+local, indexed by absolute func index
	numFuncImports uint32
	globalTypes    []wasm.GlobalType // combined import+local

	funcOffsets  map[uint32]uint32
	callFixups   map[uint32][]uint32 // callee func index -> istream offsets awaiting patch
	branchFixups map[int][]uint32    // label ID -> istream offsets awaiting patch

	// Per-function-body state, reset at BeginFunctionBody.
	curFunc            uint32
	ts                 *typeStack
	labels             *labelStack
	addressable        []wasm.ValueType // params ++ locals, in declared order
	expectedLocalGroups uint32
	localGroups        []wasm.LocalGroup
}

// NewCompiler returns a Compiler ready to be driven by reader.Read.
func NewCompiler(opts Options) *Compiler {
	return &Compiler{
		opts:         opts,
		w:            istream.NewWriter(),
		funcOffsets:  make(map[uint32]uint32),
		callFixups:   make(map[uint32][]uint32),
		branchFixups: make(map[int][]uint32),
	}
}

// Result returns the compiled module, or the first validation error
// encountered. Call it after reader.Read returns (successfully or not) —
// if the Reader itself failed before any validation error, Result returns
// an error carrying the Reader's message and no module.
func (c *Compiler) Result() (*CompiledModule, error) {
	if c.err != nil {
		return nil, c.err
	}
	if len(c.callFixups) != 0 {
		return nil, &ValidationError{Context: "module", Message: "unresolved call fixups remain after compilation"}
	}
	if len(c.branchFixups) != 0 {
		return nil, &ValidationError{Context: "module", Message: "unresolved branch fixups remain after compilation"}
	}
	return &CompiledModule{
		Istream:        c.w.Bytes(),
		FuncOffsets:    c.funcOffsets,
		NumFuncImports: c.numFuncImports,
	}, nil
}

func (c *Compiler) fail(err error) error {
	if c.err == nil {
		c.err = err
	}
	return err
}

func (c *Compiler) funcTypeAt(idx uint32) wasm.FuncType {
	return c.signatures[c.funcTypeIdxs[idx]]
}

func (c *Compiler) isImportFunc(idx uint32) bool {
	return idx < c.numFuncImports
}

// --- reader.Handler: module and section shape (no lowering involved) ---

func (c *Compiler) OnTypeCount(n uint32) error {
	c.signatures = make([]wasm.FuncType, 0, n)
	return nil
}

func (c *Compiler) OnSignature(idx uint32, ft wasm.FuncType) error {
	c.signatures = append(c.signatures, ft)
	return nil
}

func (c *Compiler) OnImport(idx uint32, imp wasm.Import) error {
	switch imp.Desc.Kind {
	case wasm.ExternalFunc:
		c.funcTypeIdxs = append(c.funcTypeIdxs, imp.Desc.TypeIdx)
		c.numFuncImports++
	case wasm.ExternalGlobal:
		c.globalTypes = append(c.globalTypes, *imp.Desc.Global)
	}
	return nil
}

func (c *Compiler) OnFuncTypeIdx(idx uint32, typeIdx uint32) error {
	c.funcTypeIdxs = append(c.funcTypeIdxs, typeIdx)
	return nil
}

func (c *Compiler) OnGlobal(idx uint32, g wasm.GlobalType, init wasm.ConstExpr) error {
	c.globalTypes = append(c.globalTypes, g)
	return nil
}

// --- reader.Handler: function bodies, where lowering happens ---

func (c *Compiler) BeginFunctionBody(idx uint32, bodySize uint32) error {
	c.curFunc = idx
	c.ts = newTypeStack()
	c.labels = newLabelStack()
	c.addressable = nil
	c.expectedLocalGroups = 0
	c.localGroups = c.localGroups[:0]

	ft := c.funcTypeAt(idx)
	c.addressable = append(c.addressable, ft.Params...)
	for _, p := range ft.Params {
		c.ts.push(p)
	}

	c.funcOffsets[idx] = c.w.Offset()
	c.labels.push(label{Kind: labelFunc, ResultType: ft.Result, StackDepthOnEntry: c.ts.depth()})

	for _, at := range c.callFixups[idx] {
		c.w.PatchU32(at, c.funcOffsets[idx])
	}
	delete(c.callFixups, idx)

	return nil
}

func (c *Compiler) OnLocalDeclCount(n uint32) error {
	c.expectedLocalGroups = n
	if n == 0 {
		c.finalizeLocals()
	}
	return nil
}

func (c *Compiler) OnLocalDecl(groupIdx uint32, group wasm.LocalGroup) error {
	c.localGroups = append(c.localGroups, group)
	if uint32(len(c.localGroups)) == c.expectedLocalGroups {
		c.finalizeLocals()
	}
	return nil
}

// finalizeLocals reserves stack slots for the function's declared locals
// (§4.3 "When the function body first declares its locals, emit a
// synthesized alloca N"), eliding the opcode entirely when there are none
// (E3: "The leading alloca 0 may be elided if no locals are declared").
func (c *Compiler) finalizeLocals() {
	var total uint32
	for _, g := range c.localGroups {
		total += g.Count
		for i := uint32(0); i < g.Count; i++ {
			c.addressable = append(c.addressable, g.Type)
		}
	}
	if total > 0 {
		c.w.WriteOp(istream.OpAlloca)
		c.w.WriteU32(total)
		for _, g := range c.localGroups {
			for i := uint32(0); i < g.Count; i++ {
				c.ts.push(g.Type)
			}
		}
	}
	c.labels.funcLabel().StackDepthOnEntry = c.ts.depth()
}

func (c *Compiler) OnInstruction(instr reader.Instruction) error {
	if err := c.lower(instr); err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Compiler) EndFunctionBody(idx uint32) error {
	return nil
}

func (c *Compiler) OnError(context string, message string) error {
	if c.err == nil {
		c.err = errors.New(message)
	}
	return nil
}
