package leb128

import "testing"

func TestU32RoundTrip(t *testing.T) {
	cases := []uint32{0, 1, 127, 128, 300, 1 << 20, 1<<32 - 1}
	for _, v := range cases {
		enc := EncodeU32(nil, v)
		got, n, err := DecodeU32(enc)
		if err != nil {
			t.Fatalf("DecodeU32(%d): unexpected error %v", v, err)
		}
		if n != len(enc) {
			t.Errorf("DecodeU32(%d): consumed %d bytes, want %d", v, n, len(enc))
		}
		if got != v {
			t.Errorf("DecodeU32(%d): got %d", v, got)
		}
		if len(enc) != SizeU32(v) {
			t.Errorf("SizeU32(%d) = %d, want %d", v, SizeU32(v), len(enc))
		}
	}
}

func TestI64RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 40), -9223372036854775808}
	for _, v := range cases {
		enc := EncodeI64(nil, v)
		got, n, err := DecodeI64(enc)
		if err != nil {
			t.Fatalf("DecodeI64(%d): unexpected error %v", v, err)
		}
		if n != len(enc) {
			t.Errorf("DecodeI64(%d): consumed %d bytes, want %d", v, n, len(enc))
		}
		if got != v {
			t.Errorf("DecodeI64(%d): got %d", v, got)
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	_, n, err := DecodeU32([]byte{0x80})
	if err == nil || n != 0 {
		t.Fatalf("expected truncated error, got n=%d err=%v", n, err)
	}
}

func TestFixed5Width(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 1<<32 - 1} {
		fixed := EncodeU32Fixed5(v)
		got, n, err := DecodeU32(fixed[:])
		if err != nil {
			t.Fatalf("decode fixed5(%d): %v", v, err)
		}
		if n != 5 {
			t.Errorf("fixed5(%d) consumed %d bytes, want 5", v, n)
		}
		if got != v {
			t.Errorf("fixed5(%d) round-tripped to %d", v, got)
		}
	}
}

func TestEncodeUnsignedCanonical(t *testing.T) {
	// 624485 is the classic LEB128 spec example: 0xE5 0x8E 0x26
	got := EncodeU32(nil, 624485)
	want := []byte{0xE5, 0x8E, 0x26}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}
}

func TestEncodeSignedCanonical(t *testing.T) {
	// -123456 encodes as 0xC0 0xBB 0x78.
	got := EncodeI32(nil, -123456)
	want := []byte{0xC0, 0xBB, 0x78}
	if len(got) != len(want) {
		t.Fatalf("got %x, want %x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %x, want %x", got, want)
		}
	}
}
