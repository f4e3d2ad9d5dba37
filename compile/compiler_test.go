package compile

import (
	"testing"

	"github.com/vertexdlt/wasmlink/compile/istream"
	"github.com/vertexdlt/wasmlink/reader"
)

// header returns the 8-byte wasm preamble shared by every test module.
func header() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
}

// compileModule drives data through a fresh Compiler and returns whatever
// reader.Read or Result first reports as an error, the way a real caller
// would: (§4.2 "Read returns the first error encountered").
func compileModule(data []byte) (*CompiledModule, error) {
	c := NewCompiler(Options{})
	if err := reader.Read(data, c, reader.Options{}); err != nil {
		return nil, err
	}
	return c.Result()
}

// TestCompileE3NoLocalsElidesAlloca builds `() -> i32 { i32.const 42 }` and
// checks the leading alloca is elided (no declared locals) and the
// function closes with the drop_keep/return pair an implicit end emits.
func TestCompileE3NoLocalsElidesAlloca(t *testing.T) {
	data := append(header(),
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F, // type 0: () -> i32
		0x03, 0x02, 0x01, 0x00, // function section: func 0 uses type 0
		0x0A, 0x06, 0x01, // code section, size 6, 1 body
		0x04, 0x00, // body size 4, 0 local decl groups
		0x41, 0x2A, // i32.const 42
		0x0B, // end
	)

	cm, err := compileModule(data)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	want := []byte{
		0x41, 42, 0, 0, 0, // i32.const 42
		istream.OpDropKeep, 0, 0, 0, 0, 1, // drop_keep 0 1
		istream.OpReturn,
	}
	if string(cm.Istream) != string(want) {
		t.Fatalf("istream = % x, want % x", cm.Istream, want)
	}
	if cm.FuncOffsets[0] != 0 {
		t.Fatalf("func 0 offset = %d, want 0", cm.FuncOffsets[0])
	}
}

// TestCompileE4BlockBranchTargetsEnd builds a function that branches out of
// a result-bearing block and checks the patched br target lands exactly at
// the istream offset the block's own `end` leaves behind (a block's `end`
// emits no bytes of its own, so the two must coincide).
func TestCompileE4BlockBranchTargetsEnd(t *testing.T) {
	data := append(header(),
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F, // type 0: () -> i32
		0x03, 0x02, 0x01, 0x00,
		0x0A, 0x0B, 0x01, // code section, size 11, 1 body
		0x09, 0x00, // body size 9, 0 local decl groups
		0x02, 0x7F, // block (result i32)
		0x41, 0x07, // i32.const 7
		0x0C, 0x00, // br 0
		0x0B, // end (block)
		0x0B, // end (func)
	)

	cm, err := compileModule(data)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	// Expect: i32.const 7 (5B) ; drop_keep 0 1 (6B) ; br <target> (5B) ;
	// drop_keep 0 1 (6B, implicit function return) ; return (1B).
	constLen := uint32(5)
	dropKeepLen := uint32(6)
	brLen := uint32(5)
	brTarget := constLen + dropKeepLen + brLen // offset right after the block's (byte-free) end

	want := append([]byte{0x41, 7, 0, 0, 0}, istream.OpDropKeep, 0, 0, 0, 0, 1)
	want = append(want, istream.OpBr)
	want = append(want, byte(brTarget), byte(brTarget>>8), byte(brTarget>>16), byte(brTarget>>24))
	want = append(want, istream.OpDropKeep, 0, 0, 0, 0, 1, istream.OpReturn)

	if string(cm.Istream) != string(want) {
		t.Fatalf("istream = % x, want % x", cm.Istream, want)
	}
}

// TestCompileE5IfElseResultMismatch builds `if (result i32) i64.const 2
// else i32.const 1 end` and checks the then arm's mismatched result type is
// caught as a *ValidationError.
func TestCompileE5IfElseResultMismatch(t *testing.T) {
	data := append(header(),
		0x01, 0x06, 0x01, 0x60, 0x01, 0x7F, 0x01, 0x7F, // type 0: (i32) -> i32
		0x03, 0x02, 0x01, 0x00,
		0x0A, 0x0E, 0x01, // code section, size 14, 1 body
		0x0C, 0x00, // body size 12, 0 local decl groups
		0x20, 0x00, // local.get 0 (if condition)
		0x04, 0x7F, // if (result i32)
		0x42, 0x02, // i64.const 2
		0x05,       // else
		0x41, 0x01, // i32.const 1
		0x0B, // end (if/else)
		0x0B, // end (func)
	)

	_, err := compileModule(data)
	if err == nil {
		t.Fatal("expected a validation error for the mismatched if-arm result")
	}
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
}

// TestCompileCallFixupAcrossFunctions checks a forward call to a
// not-yet-defined function is patched once that function's body begins.
func TestCompileCallFixupAcrossFunctions(t *testing.T) {
	data := append(header(),
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F, // type 0: () -> i32
		0x03, 0x03, 0x02, 0x00, 0x00, // two funcs, both type 0
		0x0A, 0x0B, 0x02, // code section, size 11, 2 bodies
		0x04, 0x00, 0x10, 0x01, 0x0B, // func 0: body size 4 -- call 1; end
		0x04, 0x00, 0x41, 0x2A, 0x0B, // func 1: body size 4 -- i32.const 42; end
	)

	cm, err := compileModule(data)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	callTarget := cm.FuncOffsets[1]
	want := []byte{istream.OpCall, byte(callTarget), byte(callTarget >> 8), byte(callTarget >> 16), byte(callTarget >> 24)}
	got := cm.Istream[cm.FuncOffsets[0] : cm.FuncOffsets[0]+5]
	if string(got) != string(want) {
		t.Fatalf("patched call = % x, want % x", got, want)
	}
}
