package compile

import "github.com/vertexdlt/wasmlink/wasm"

// typeStack is the compiler's symbolic operand stack: one wasm.ValueType
// per value a runtime interpreter would hold, never the values themselves.
// Adapted from the teacher's vm.Frame operand stack (vm/frame.go), which
// plays the same "one entry per live operand" role for actual runtime
// values; here it carries static types instead.
type typeStack struct {
	vals []wasm.ValueType
}

func newTypeStack() *typeStack {
	return &typeStack{}
}

func (s *typeStack) depth() int {
	return len(s.vals)
}

func (s *typeStack) push(vt wasm.ValueType) {
	s.vals = append(s.vals, vt)
}

// truncate resets the stack to exactly n entries, used when a label closes
// under the unreachable-polymorphic rule (§4.3 "push any... until the
// nearest enclosing label closes") to re-establish a concrete shape for
// the code that follows.
func (s *typeStack) truncate(n int) {
	s.vals = s.vals[:n]
}

// peek returns the type at depth i (0 = top) without popping.
func (s *typeStack) peek(i int) wasm.ValueType {
	return s.vals[len(s.vals)-1-i]
}

// pop removes and returns the top value. The caller must have already
// checked depth() against the enclosing label's floor.
func (s *typeStack) pop() wasm.ValueType {
	vt := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return vt
}

// unify implements §4.3's unification rule for a label's declared result
// type against a value it just produced: wasm.Any is both top and bottom.
func unify(declared, produced wasm.ValueType) (wasm.ValueType, bool) {
	switch {
	case declared == wasm.Any:
		return produced, true
	case produced == wasm.Any:
		return declared, true
	case declared == produced:
		return declared, true
	default:
		return declared, false
	}
}
