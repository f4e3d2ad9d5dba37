package reader

import (
	"testing"

	"github.com/vertexdlt/wasmlink/wasm"
)

type recordingHandler struct {
	BaseHandler
	events  []string
	lastSig wasm.FuncType
}

func (h *recordingHandler) BeginModule(version uint32) error {
	h.events = append(h.events, "begin_module")
	return nil
}
func (h *recordingHandler) EndModule() error {
	h.events = append(h.events, "end_module")
	return nil
}
func (h *recordingHandler) OnTypeCount(n uint32) error {
	h.events = append(h.events, "type_count")
	return nil
}
func (h *recordingHandler) OnSignature(idx uint32, ft wasm.FuncType) error {
	h.events = append(h.events, "signature")
	h.lastSig = ft
	return nil
}

func TestReadE1EmptyModule(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6D, 0x0D, 0x00, 0x00, 0x00}
	h := &recordingHandler{}
	if err := Read(data, h, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.events) != 2 || h.events[0] != "begin_module" || h.events[1] != "end_module" {
		t.Fatalf("unexpected events: %v", h.events)
	}
}

func TestReadE2TypeSection(t *testing.T) {
	// type section: id=1, size=5, payload: count=1, form=0x60, params=0, results=1, i32
	data := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7F,
	}
	h := &recordingHandler{}
	if err := Read(data, h, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.lastSig.Result != wasm.I32 || len(h.lastSig.Params) != 0 {
		t.Errorf("got signature %+v", h.lastSig)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}
	if err := Read(data, nil, Options{}); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadRejectsOutOfOrderSections(t *testing.T) {
	data := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x02, 0x01, 0x00, // import section, empty
		0x01, 0x01, 0x00, // type section, empty -- out of order
	}
	if err := Read(data, nil, Options{}); err == nil {
		t.Fatal("expected out-of-order section error")
	}
}

func TestReadRejectsUnfinishedSection(t *testing.T) {
	// declares size 5 but payload only decodes a 1-byte count of 0
	data := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x05, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
	if err := Read(data, nil, Options{}); err == nil {
		t.Fatal("expected unfinished section error")
	}
}
