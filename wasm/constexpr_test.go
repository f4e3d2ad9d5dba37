package wasm

import "testing"

func TestEvalConstExprI32(t *testing.T) {
	// i32.const 42; end
	expr := []byte{opI32Const, 42, opEnd}
	got, err := EvalConstExpr(expr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != I32 || got.I32 != 42 {
		t.Errorf("got %+v", got)
	}
}

func TestEvalConstExprGetGlobal(t *testing.T) {
	expr := []byte{opGetGlobal, 3, opEnd}
	resolver := func(idx uint32) (ConstExpr, bool) {
		if idx != 3 {
			return ConstExpr{}, false
		}
		return ConstExpr{Type: I64, I64: 7}, true
	}
	got, err := EvalConstExpr(expr, resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsGetGlobal || got.GlobalIdx != 3 || got.Type != I64 || got.I64 != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestEvalConstExprEmpty(t *testing.T) {
	_, err := EvalConstExpr(nil, nil)
	if err != ErrEmptyConstExpr {
		t.Errorf("got %v, want ErrEmptyConstExpr", err)
	}
}

func TestEvalConstExprRejectsUnsupportedOpcode(t *testing.T) {
	expr := []byte{0x6A, opEnd} // i32.add is not a valid const-expr opcode
	_, err := EvalConstExpr(expr, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
