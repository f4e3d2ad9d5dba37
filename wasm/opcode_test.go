package wasm

import "testing"

func TestLookupKnownOpcodes(t *testing.T) {
	cases := []struct {
		code byte
		want string
	}{
		{0x00, "unreachable"},
		{0x0B, "end"},
		{0x20, "local.get"},
		{0x41, "i32.const"},
		{0x6A, "i32.add"},
		{0x7C, "i64.add"},
		{0xA7, "i32.wrap_i64"},
	}
	for _, c := range cases {
		info := Lookup(Opcode{Code: c.code})
		if info.Mnemonic != c.want {
			t.Errorf("Lookup(0x%02x) = %q, want %q", c.code, info.Mnemonic, c.want)
		}
	}
}

func TestLookupUnknownOpcodeIsInvalid(t *testing.T) {
	info := Lookup(Opcode{Code: 0xFF})
	if info.Mnemonic != "invalid" {
		t.Errorf("expected invalid sentinel, got %q", info.Mnemonic)
	}
	if info.Op.Code != 0xFF {
		t.Errorf("invalid sentinel lost original byte: got %v", info.Op)
	}
}

func TestI32AddIsBinary(t *testing.T) {
	info := Lookup(Opcode{Code: 0x6A})
	if info.Arg1 != I32 || info.Arg2 != I32 || info.Result != I32 {
		t.Errorf("i32.add shape = %+v", info)
	}
}
